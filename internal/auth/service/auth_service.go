package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"comanda/backend/internal/audit"
	auditdomain "comanda/backend/internal/audit/domain"
	"comanda/backend/internal/security"
	sessiondomain "comanda/backend/internal/session/domain"
	sessionrepo "comanda/backend/internal/session/repository"
	userdomain "comanda/backend/internal/user/domain"
)

// Sentinel errors for the auth service; the HTTP handler maps them to status codes.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrRefreshTokenReuse   = errors.New("refresh token reuse detected; all sessions revoked")
	ErrUnauthorizedRole    = errors.New("role not allowed for this operation")
)

// AuthResult holds the outcome of Login or Refresh: the authenticated user
// plus a fresh token pair.
type AuthResult struct {
	User           *userdomain.User
	AccessToken    string
	RefreshToken   string
	RefreshExpires time.Time
}

// ClientInfo carries request metadata recorded on the session row.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	FindActive(ctx context.Context, tokenHash, sessionID, userID string) (*sessiondomain.Session, error)
	Rotate(ctx context.Context, current, next *sessiondomain.Session) error
	RevokeAllForUser(ctx context.Context, userID string) error
	RevokeBySession(ctx context.Context, sessionID, userID string) error
}

// AuthService implements login, refresh with rotation, and logout.
type AuthService struct {
	userRepo    UserRepo
	sessionRepo SessionRepo
	hasher      *security.Hasher
	tokens      *security.TokenProvider
	auditor     audit.AuditLogger
}

// NewAuthService returns an AuthService with the given dependencies.
// auditor may be nil; audit logging is then skipped.
func NewAuthService(
	userRepo UserRepo,
	sessionRepo SessionRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	auditor audit.AuditLogger,
) *AuthService {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		tokens:      tokens,
		auditor:     auditor,
	}
}

// Login authenticates with email and password, creates a session, and returns
// both tokens. Unknown email yields ErrUserNotFound; a known email with a bad
// password yields ErrInvalidCredentials. Callers must not collapse the two.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.auditor.LogEvent(ctx, "", auditdomain.ActionLoginFailure, "unknown email")
		return nil, ErrUserNotFound
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.auditor.LogEvent(ctx, user.ID, auditdomain.ActionLoginFailure, "bad password")
		return nil, ErrInvalidCredentials
	}

	result, err := s.startSession(ctx, user, client)
	if err != nil {
		return nil, err
	}
	s.auditor.LogEvent(ctx, user.ID, auditdomain.ActionLogin, "")
	return result, nil
}

// Refresh validates the refresh token, rotates the session, and returns a new
// token pair. Presenting a token whose session row is no longer active is
// treated as replay: every active session of that user is revoked and
// ErrRefreshTokenReuse is returned.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	userID, sessionID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	tokenHash := security.HashRefreshToken(refreshToken)
	sess, err := s.sessionRepo.FindActive(ctx, tokenHash, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		// Signature and expiry checked out, so the row was rotated or revoked.
		return nil, s.nukeFamily(ctx, userID)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = s.sessionRepo.RevokeAllForUser(ctx, userID)
		return nil, ErrInvalidRefreshToken
	}

	nextID := uuid.New().String()
	newRefresh, refreshExp, err := s.tokens.IssueRefresh(userID, nextID)
	if err != nil {
		return nil, err
	}
	accessToken, _, err := s.tokens.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	next := &sessiondomain.Session{
		ID:        nextID,
		UserID:    userID,
		TokenHash: security.HashRefreshToken(newRefresh),
		ExpiresAt: refreshExp,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessionRepo.Rotate(ctx, sess, next); err != nil {
		if errors.Is(err, sessionrepo.ErrSessionRotated) {
			// A concurrent refresh won the race; this presentation is a replay.
			return nil, s.nukeFamily(ctx, userID)
		}
		return nil, err
	}
	s.auditor.LogEvent(ctx, userID, auditdomain.ActionRefresh, "")
	return &AuthResult{
		User:           user,
		AccessToken:    accessToken,
		RefreshToken:   newRefresh,
		RefreshExpires: refreshExp,
	}, nil
}

// Logout revokes the session identified by the refresh token. Invalid or
// already-revoked tokens are ignored; logout never fails on behalf of the client.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	userID, sessionID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return
	}
	if err := s.sessionRepo.RevokeBySession(ctx, sessionID, userID); err != nil {
		return
	}
	s.auditor.LogEvent(ctx, userID, auditdomain.ActionLogout, "")
}

func (s *AuthService) startSession(ctx context.Context, user *userdomain.User, client ClientInfo) (*AuthResult, error) {
	sessionID := uuid.New().String()
	refreshToken, refreshExp, err := s.tokens.IssueRefresh(user.ID, sessionID)
	if err != nil {
		return nil, err
	}
	accessToken, _, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.Session{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: security.HashRefreshToken(refreshToken),
		ExpiresAt: refreshExp,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &AuthResult{
		User:           user,
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		RefreshExpires: refreshExp,
	}, nil
}

func (s *AuthService) nukeFamily(ctx context.Context, userID string) error {
	if err := s.sessionRepo.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	s.auditor.LogEvent(ctx, userID, auditdomain.ActionReuseDetected, "")
	s.auditor.LogEvent(ctx, userID, auditdomain.ActionSessionsRevoked, "")
	return ErrRefreshTokenReuse
}
