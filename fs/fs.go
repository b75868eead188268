package appfs

import "embed"

// FS embeds the assets needed at runtime: SQL migrations (run by goose)
// and the email templates.
//
//go:embed migrations templates
var FS embed.FS
