package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"comanda/backend/internal/session/domain"
)

// ErrSessionRotated is returned by Rotate when the current row was already
// rotated or revoked by a concurrent request. Exactly one of two concurrent
// rotations of the same row can win.
var ErrSessionRotated = errors.New("session already rotated")

// PostgresRepository implements Repository on Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, token_hash, replaced_by_token_hash, revoked_at, expires_at, user_agent, ip_address, created_at`

// Create persists the session to the database. The session must have ID and TokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, expires_at, user_agent, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.UserAgent, s.IPAddress, s.CreatedAt)
	return err
}

// FindActive returns the active session matching tokenHash, sessionID, and userID,
// or nil if no such row exists. Expiry is strict (expires_at > now).
func (r *PostgresRepository) FindActive(ctx context.Context, tokenHash, sessionID, userID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE token_hash = $1 AND id = $2 AND user_id = $3
		   AND revoked_at IS NULL AND expires_at > $4`,
		tokenHash, sessionID, userID, time.Now().UTC())
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Rotate marks current as rotated and inserts next in a single transaction.
// The conditional UPDATE makes concurrent rotations of the same row race to a
// single winner; losers get ErrSessionRotated and the transaction rolls back.
func (r *PostgresRepository) Rotate(ctx context.Context, current *domain.Session, next *domain.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2, replaced_by_token_hash = $3
		 WHERE id = $1 AND revoked_at IS NULL`,
		current.ID, time.Now().UTC(), next.TokenHash)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionRotated
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, expires_at, user_agent, ip_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		next.ID, next.UserID, next.TokenHash, next.ExpiresAt, next.UserAgent, next.IPAddress, next.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// RevokeAllForUser revokes all active sessions for the given user.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`,
		userID, time.Now().UTC())
	return err
}

// RevokeBySession revokes the active session matching sessionID and userID.
// No-op when no active row matches; logout stays idempotent.
func (r *PostgresRepository) RevokeBySession(ctx context.Context, sessionID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $3 WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL`,
		sessionID, userID, time.Now().UTC())
	return err
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var (
		s          domain.Session
		replacedBy sql.NullString
		revokedAt  sql.NullTime
		userAgent  sql.NullString
		ipAddress  sql.NullString
	)
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &replacedBy, &revokedAt,
		&s.ExpiresAt, &userAgent, &ipAddress, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.ReplacedByTokenHash = replacedBy.String
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	s.UserAgent = userAgent.String
	s.IPAddress = ipAddress.String
	return &s, nil
}
