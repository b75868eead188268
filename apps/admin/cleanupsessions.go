package main

import (
	"context"
)

// cleanupSessions is a one-shot of the API's background session GC, for cron.
func (cli *commandLine) cleanupSessions() error {
	cnt, err := cli.sessSvc.CleanupExpired(context.Background())
	if err != nil {
		return err
	}
	logger.Printf("cleaned up %d dead sessions\n", cnt)
	return nil
}
