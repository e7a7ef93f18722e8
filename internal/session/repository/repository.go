package repository

import (
	"context"

	"comanda/backend/internal/session/domain"
)

// Repository defines persistence for refresh-token sessions. There is no
// delete operation: terminal rows are retained for audit and reuse detection.
type Repository interface {
	// Create persists a new active session row.
	Create(ctx context.Context, s *domain.Session) error
	// FindActive returns the active session matching tokenHash, sessionID, and
	// userID with expires_at strictly in the future, or nil if no such row exists.
	FindActive(ctx context.Context, tokenHash, sessionID, userID string) (*domain.Session, error)
	// Rotate atomically marks current as rotated (revoked, pointing at next's
	// token hash) and inserts next as the new active row. When current has
	// already been rotated by a concurrent request, Rotate returns
	// ErrSessionRotated and inserts nothing.
	Rotate(ctx context.Context, current *domain.Session, next *domain.Session) error
	// RevokeAllForUser revokes every active session for the user. Terminal rows are untouched.
	RevokeAllForUser(ctx context.Context, userID string) error
	// RevokeBySession revokes the active session matching sessionID and userID, if any.
	RevokeBySession(ctx context.Context, sessionID, userID string) error
}
