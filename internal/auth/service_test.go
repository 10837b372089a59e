package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oakmart/storefront/internal/common"
)

// memStore is an in-memory store used across the auth tests.
type memStore struct {
	users   map[string]UserRecord // keyed by email
	byID    map[string]UserRecord
	session map[string]Session // keyed by refresh token hash
	resets  map[string]PasswordReset
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]UserRecord{},
		byID:    map[string]UserRecord{},
		session: map[string]Session{},
		resets:  map[string]PasswordReset{},
	}
}

func (m *memStore) CreateUser(ctx context.Context, name, email, passwordHash string) (UserRecord, error) {
	if _, dup := m.users[email]; dup {
		return UserRecord{}, &pgconn.PgError{Code: "23505"}
	}
	u := UserRecord{
		ID:           "usr-" + email,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.users[email] = u
	m.byID[u.ID] = u
	return u, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	u, ok := m.users[email]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (UserRecord, error) {
	u, ok := m.byID[id]
	if !ok {
		return UserRecord{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	u, ok := m.byID[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	m.byID[userID] = u
	m.users[u.Email] = u
	return nil
}

func (m *memStore) CreateSession(ctx context.Context, s Session) error {
	m.session[s.RefreshTokenHash] = s
	return nil
}

func (m *memStore) GetSessionByTokenHash(ctx context.Context, hash string) (Session, error) {
	s, ok := m.session[hash]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *memStore) RotateSessionToken(ctx context.Context, sessionID, newHash string, expiresAt time.Time) error {
	for hash, s := range m.session {
		if s.ID == sessionID {
			delete(m.session, hash)
			s.RefreshTokenHash = newHash
			s.ExpiresAt = expiresAt
			m.session[newHash] = s
			return nil
		}
	}
	return ErrNotFound
}

func (m *memStore) DeleteSessionByTokenHash(ctx context.Context, hash string) error {
	delete(m.session, hash)
	return nil
}

func (m *memStore) DeleteSessionsByUser(ctx context.Context, userID string) error {
	for hash, s := range m.session {
		if s.UserID == userID {
			delete(m.session, hash)
		}
	}
	return nil
}

func (m *memStore) CreatePasswordReset(ctx context.Context, reset PasswordReset) error {
	m.resets[reset.Token] = reset
	return nil
}

func (m *memStore) GetPasswordResetByToken(ctx context.Context, token string) (PasswordReset, error) {
	r, ok := m.resets[token]
	if !ok {
		return PasswordReset{}, ErrNotFound
	}
	return r, nil
}

func (m *memStore) UsePasswordReset(ctx context.Context, token string) error {
	r, ok := m.resets[token]
	if !ok {
		return ErrNotFound
	}
	r.Used = true
	m.resets[token] = r
	return nil
}

func (m *memStore) DeletePasswordResetsByUser(ctx context.Context, userID string) error {
	for token, r := range m.resets {
		if r.UserID == userID {
			delete(m.resets, token)
		}
	}
	return nil
}

func newTestService(t *testing.T, store *memStore) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Store:    store,
		Secret:   "test-secret-test-secret-test1234",
		Issuer:   "oakmart-storefront",
		Audience: "oakmart-web",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func registerAndLogin(t *testing.T, svc *Service) LoginResult {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Test User", "user@example.com", "correct horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	result, err := svc.Login(ctx, "user@example.com", "correct horse", "go-test", "127.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return result
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService(t, newMemStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "A", "dup@example.com", "password1"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, "B", "DUP@example.com", "password2")
	appErr, ok := common.AsAppError(err)
	if !ok || appErr.Code != "EMAIL_ALREADY_USED" {
		t.Fatalf("expected EMAIL_ALREADY_USED, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, newMemStore())
	ctx := context.Background()

	cases := []struct {
		name, userName, email, password string
	}{
		{"missing name", "", "a@b.c", "password1"},
		{"missing email", "A", "", "password1"},
		{"short password", "A", "a@b.c", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.userName, tc.email, tc.password)
			appErr, ok := common.AsAppError(err)
			if !ok || appErr.Code != "VALIDATION_ERROR" {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}
}

func TestLoginIssuesValidAccessToken(t *testing.T) {
	svc := newTestService(t, newMemStore())
	result := registerAndLogin(t, svc)

	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	subject, err := svc.ParseAccessToken(result.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if subject != result.User.ID {
		t.Fatalf("subject = %q, want %q", subject, result.User.ID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t, newMemStore())
	registerAndLogin(t, svc)

	_, err := svc.Login(context.Background(), "user@example.com", "wrong", "", "")
	appErr, ok := common.AsAppError(err)
	if !ok || appErr.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	result := registerAndLogin(t, svc)

	refreshed, err := svc.Refresh(context.Background(), result.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == result.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	// The previous token is now dead.
	if _, err := svc.Refresh(context.Background(), result.RefreshToken); err == nil {
		t.Fatal("expected stale refresh token to be rejected")
	}
}

func TestRefreshExpiredSessionIsRejectedAndDeleted(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	result := registerAndLogin(t, svc)

	// Jump past the refresh TTL.
	svc.WithNow(func() time.Time { return time.Now().Add(48 * time.Hour) })

	if _, err := svc.Refresh(context.Background(), result.RefreshToken); err == nil {
		t.Fatal("expected expired refresh token to be rejected")
	}
	if len(store.session) != 0 {
		t.Fatalf("expected expired session to be deleted, %d remain", len(store.session))
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	result := registerAndLogin(t, svc)

	if err := svc.Logout(context.Background(), result.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), result.RefreshToken); err == nil {
		t.Fatal("expected revoked refresh token to be rejected")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	result := registerAndLogin(t, svc)

	mail := &common.InMemoryEmail{}
	svc.mail = mail
	if err := svc.InitiatePasswordReset(context.Background(), "user@example.com", "https://shop.example.com"); err != nil {
		t.Fatalf("initiate reset: %v", err)
	}
	if len(store.resets) != 1 {
		t.Fatalf("expected one reset grant, got %d", len(store.resets))
	}
	var token string
	for tok := range store.resets {
		token = tok
	}

	if err := svc.ResetPassword(context.Background(), token, "new password 1"); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	// Old sessions are revoked and the new password works.
	if _, err := svc.Refresh(context.Background(), result.RefreshToken); err == nil {
		t.Fatal("expected sessions to be revoked after password reset")
	}
	user := store.users["user@example.com"]
	ok, err := argon2id.ComparePasswordAndHash("new password 1", user.PasswordHash)
	if err != nil || !ok {
		t.Fatal("new password does not verify")
	}

	// The token is single use.
	if err := svc.ResetPassword(context.Background(), token, "another password"); err == nil {
		t.Fatal("expected used reset token to be rejected")
	}
}

func TestInitiatePasswordResetUnknownEmailIsSilent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	if err := svc.InitiatePasswordReset(context.Background(), "ghost@example.com", ""); err != nil {
		t.Fatalf("expected nil error for unknown email, got %v", err)
	}
	if len(store.resets) != 0 {
		t.Fatal("no reset grant should be created for unknown email")
	}
}

func TestParseAccessTokenRejectsTampering(t *testing.T) {
	svc := newTestService(t, newMemStore())
	result := registerAndLogin(t, svc)

	other := newTestService(t, newMemStore())
	other.secret = []byte("a-completely-different-secret-xx")
	if _, err := other.ParseAccessToken(result.AccessToken); err == nil {
		t.Fatal("expected token signed with another secret to be rejected")
	}

	if _, err := svc.ParseAccessToken(result.AccessToken + "x"); err == nil {
		t.Fatal("expected mangled token to be rejected")
	}
}
