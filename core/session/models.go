package session

import "time"

// Session is one authenticated device login for a User; distinct from the
// bearer token presented per request. A session is valid iff it is active
// and has not expired.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Token        string    `json:"-"`
	RefreshToken string    `json:"-"`
	UserAgent    string    `json:"user_agent,omitempty"`
	IP           string    `json:"ip,omitempty"`
	IsActive     bool      `json:"is_active"`
	LastActivity time.Time `json:"last_activity"` // UTC
	ExpiresAt    time.Time `json:"expires_at"`    // UTC
	CreatedAt    time.Time `json:"created_at"`    // UTC
}

func (s *Session) Valid(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}

// Device carries the client metadata captured at login.
type Device struct {
	UserAgent string
	IP        string
}
