package domain

import "time"

// AuditLog represents an auth audit event.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Actions recorded by the auth flows.
const (
	ActionLogin           = "login"
	ActionLoginFailure    = "login_failure"
	ActionRefresh         = "refresh"
	ActionReuseDetected   = "reuse_detected"
	ActionLogout          = "logout"
	ActionSessionsRevoked = "sessions_revoked"
)
