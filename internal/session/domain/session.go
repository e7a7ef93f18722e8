package domain

import "time"

// Session is one link of a refresh-token lineage. A session is created on
// login or rotation, becomes terminal when RevokedAt is set, and is never
// reactivated or physically deleted.
type Session struct {
	ID                  string
	UserID              string
	TokenHash           string // SHA-256 hash of the current refresh token; plaintext is never persisted
	ReplacedByTokenHash string // hash of the successor's token; empty until rotated forward
	RevokedAt           *time.Time
	ExpiresAt           time.Time
	UserAgent           string // write-once provenance
	IPAddress           string // write-once provenance
	CreatedAt           time.Time
}

// Active reports whether the session can still be rotated at the given
// instant. Expiry is strict: ExpiresAt equal to now counts as expired.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// Terminal reports whether the session has been rotated or revoked.
// Terminal sessions are retained for audit and reuse detection.
func (s *Session) Terminal() bool {
	return s.RevokedAt != nil
}
