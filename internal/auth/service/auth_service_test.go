package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"comanda/backend/internal/security"
	sessiondomain "comanda/backend/internal/session/domain"
	sessionrepo "comanda/backend/internal/session/repository"
	userdomain "comanda/backend/internal/user/domain"
)

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*userdomain.User
	byEmail map[string]*userdomain.User
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail[email], nil
}

func (r *memUserRepo) add(u *userdomain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
}

func (r *memUserRepo) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		delete(r.byEmail, u.Email)
		delete(r.byID, id)
	}
}

type memSessionRepo struct {
	mu        sync.Mutex
	m         map[string]*sessiondomain.Session
	rotateErr error
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.ID] = &s2
	return nil
}

func (r *memSessionRepo) FindActive(ctx context.Context, tokenHash, sessionID, userID string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[sessionID]
	if !ok || s.UserID != userID || s.TokenHash != tokenHash || !s.Active(time.Now().UTC()) {
		return nil, nil
	}
	s2 := *s
	return &s2, nil
}

func (r *memSessionRepo) Rotate(ctx context.Context, current, next *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rotateErr != nil {
		return r.rotateErr
	}
	s, ok := r.m[current.ID]
	if !ok || s.RevokedAt != nil {
		return sessionrepo.ErrSessionRotated
	}
	now := time.Now().UTC()
	s.RevokedAt = &now
	s.ReplacedByTokenHash = next.TokenHash
	n2 := *next
	r.m[next.ID] = &n2
	return nil
}

func (r *memSessionRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, s := range r.m {
		if s.UserID == userID && s.RevokedAt == nil {
			s.RevokedAt = &now
		}
	}
	return nil
}

func (r *memSessionRepo) RevokeBySession(ctx context.Context, sessionID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[sessionID]; ok && s.UserID == userID && s.RevokedAt == nil {
		now := time.Now().UTC()
		s.RevokedAt = &now
	}
	return nil
}

func (r *memSessionRepo) activeCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.m {
		if s.UserID == userID && s.Active(time.Now().UTC()) {
			n++
		}
	}
	return n
}

func (r *memSessionRepo) get(id string) *sessiondomain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s2 := *s
		return &s2
	}
	return nil
}

const testPassword = "cocina-secreta-99"

func newTestAuthService(t *testing.T) (*AuthService, *memUserRepo, *memSessionRepo) {
	t.Helper()
	userRepo := &memUserRepo{byID: make(map[string]*userdomain.User), byEmail: make(map[string]*userdomain.User)}
	sessionRepo := &memSessionRepo{m: make(map[string]*sessiondomain.Session)}
	hasher := security.NewHasher(4)
	tokens := security.NewTestTokenProvider()

	hashed, err := hasher.Hash([]byte(testPassword))
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	userRepo.add(&userdomain.User{
		ID:           "user-1",
		Email:        "mesero@comanda.mx",
		Name:         "Marta",
		Role:         userdomain.RoleWaiter,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	})

	svc := NewAuthService(userRepo, sessionRepo, hasher, tokens, nil)
	return svc, userRepo, sessionRepo
}

func TestAuthService_Login(t *testing.T) {
	svc, _, sessions := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "mesero@comanda.mx", testPassword, ClientInfo{UserAgent: "test", IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("Login should return both tokens")
	}
	if res.User == nil || res.User.ID != "user-1" || res.User.Role != userdomain.RoleWaiter {
		t.Fatalf("Login user = %+v", res.User)
	}
	if got := sessions.activeCount("user-1"); got != 1 {
		t.Fatalf("active sessions = %d, want 1", got)
	}
}

func TestAuthService_Login_NormalizesEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	if _, err := svc.Login(context.Background(), "  MESERO@comanda.mx ", testPassword, ClientInfo{}); err != nil {
		t.Fatalf("Login with unnormalized email: %v", err)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "nadie@comanda.mx", testPassword, ClientInfo{})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_Login_BadPassword(t *testing.T) {
	svc, _, sessions := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "mesero@comanda.mx", "wrong", ClientInfo{})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
	if got := sessions.activeCount("user-1"); got != 0 {
		t.Fatalf("failed login must not create sessions, got %d", got)
	}
}

func TestAuthService_Login_EmptyInput(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	for _, tc := range []struct{ email, password string }{
		{"", testPassword},
		{"mesero@comanda.mx", ""},
		{"", ""},
	} {
		if _, err := svc.Login(context.Background(), tc.email, tc.password, ClientInfo{}); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q, %q): want ErrInvalidCredentials, got %v", tc.email, tc.password, err)
		}
	}
}

func TestAuthService_Refresh_Rotates(t *testing.T) {
	svc, _, sessions := newTestAuthService(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, "mesero@comanda.mx", testPassword, ClientInfo{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	res, err := svc.Refresh(ctx, login.RefreshToken, ClientInfo{})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if res.RefreshToken == login.RefreshToken {
		t.Fatal("Refresh must mint a new refresh token")
	}
	if res.User == nil || res.User.ID != "user-1" {
		t.Fatalf("Refresh user = %+v", res.User)
	}
	if got := sessions.activeCount("user-1"); got != 1 {
		t.Fatalf("active sessions after rotation = %d, want 1", got)
	}

	// The old row must be revoked and point at its successor.
	_, oldSessionID, err := security.NewTestTokenProvider().ValidateRefresh(login.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateRefresh: %v", err)
	}
	old := sessions.get(oldSessionID)
	if old == nil || old.RevokedAt == nil {
		t.Fatal("rotated session must be revoked")
	}
	if old.ReplacedByTokenHash != security.HashRefreshToken(res.RefreshToken) {
		t.Fatal("rotated session must record the successor token hash")
	}
}

func TestAuthService_Refresh_Chain(t *testing.T) {
	svc, _, sessions := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "mesero@comanda.mx", testPassword, ClientInfo{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	for i := 0; i < 3; i++ {
		res, err = svc.Refresh(ctx, res.RefreshToken, ClientInfo{})
		if err != nil {
			t.Fatalf("Refresh %d: %v", i, err)
		}
	}
	if got := sessions.activeCount("user-1"); got != 1 {
		t.Fatalf("active sessions after chain = %d, want 1", got)
	}
}

func TestAuthService_Refresh_ReplayNukesFamily(t *testing.T) {
	svc, _, sessions := newTestAuthService(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, "mesero@comanda.mx", testPassword, ClientInfo{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	// Second device.
	if _, err := svc.Login(ctx, "mesero@comanda.mx", testPassword, ClientInfo{}); err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if _, err := svc.Refresh(ctx, first.RefreshToken, ClientInfo{}); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	// Replaying the already-rotated token revokes everything, including the
	// second device's untouched session.
	_, err = svc.Refresh(ctx, first.RefreshToken, ClientInfo{})
	if !errors.Is(err, ErrRefreshTokenReuse) {
		t.Fatalf("want ErrRefreshTokenReuse, got %v", err)
	}
	if got := sessions.activeCount("user-1"); got != 0 {
		t.Fatalf("active sessions after replay = %d, want 0", got)
	}
}

func TestAuthService_Refresh_GarbageToken(t *testing.T) {
	svc, _, sessions := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Login(ctx, "mesero@comanda.mx", testPassword, ClientInfo{}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err := svc.Refresh(ctx, "not-a-jwt", ClientInfo{})
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken, got %v", err)
	}
	// A token that never validated must not touch existing sessions.
	if got := sessions.activeCount("user-1"); got != 1 {
		t.Fatalf("active sessions = %d, want 1", got)
	}
}

func TestAuthService_Refresh_ExpiredToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	expired := security.NewExpiredTestTokenProvider()
	token, _, err := expired.IssueRefresh("user-1", "sess-x")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	_, err = svc.Refresh(context.Background(), token, ClientInfo{})
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken, got %v", err)
	}
}

func TestAuthService_Refresh_DeletedUser(t *testing.T) {
	svc, users, sessions := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "mesero@comanda.mx", testPassword, ClientInfo{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	users.remove("user-1")

	_, err = svc.Refresh(ctx, res.RefreshToken, ClientInfo{})
	if !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("want ErrInvalidRefreshToken, got %v", err)
	}
	if got := sessions.activeCount("user-1"); got != 0 {
		t.Fatalf("sessions of a deleted user must be revoked, got %d active", got)
	}
}

func TestAuthService_Refresh_ConcurrentLoser(t *testing.T) {
	svc, _, sessions := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "mesero@comanda.mx", testPassword, ClientInfo{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	sessions.rotateErr = sessionrepo.ErrSessionRotated

	_, err = svc.Refresh(ctx, res.RefreshToken, ClientInfo{})
	if !errors.Is(err, ErrRefreshTokenReuse) {
		t.Fatalf("losing a rotation race must read as reuse, got %v", err)
	}
	if got := sessions.activeCount("user-1"); got != 0 {
		t.Fatalf("active sessions = %d, want 0", got)
	}
}

func TestAuthService_Logout(t *testing.T) {
	svc, _, sessions := newTestAuthService(t)
	ctx := context.Background()

	res, err := svc.Login(ctx, "mesero@comanda.mx", testPassword, ClientInfo{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	svc.Logout(ctx, res.RefreshToken)
	if got := sessions.activeCount("user-1"); got != 0 {
		t.Fatalf("active sessions after logout = %d, want 0", got)
	}

	// Idempotent: repeating or passing junk is a no-op.
	svc.Logout(ctx, res.RefreshToken)
	svc.Logout(ctx, "garbage")
	svc.Logout(ctx, "")

	// A revoked token can no longer refresh; detected as reuse of a dead row.
	if _, err := svc.Refresh(ctx, res.RefreshToken, ClientInfo{}); err == nil {
		t.Fatal("refresh after logout should fail")
	}
}
