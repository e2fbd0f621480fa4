package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"healthlog/internal/domain"
)

type mockUserRepo struct {
	getByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
	getByIDFn       func(ctx context.Context, id int64) (*domain.User, error)
	createFn        func(ctx context.Context, username, passwordHash string) (*domain.User, error)
	countFn         func(ctx context.Context) (int, error)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, username, passwordHash)
	}
	return &domain.User{ID: 1, Username: username, PasswordHash: passwordHash}, nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error
	getByTokenFn    func(ctx context.Context, token string) (*domain.Session, error)
	deleteFn        func(ctx context.Context, token string) error
	deleteExpiredFn func(ctx context.Context) error
}

func (m *mockSessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	if m.createFn != nil {
		return m.createFn(ctx, userID, token, userAgent, ip, expiresAt)
	}
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, token string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) error {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return nil
}

func userWithPassword(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return &domain.User{ID: 1, Username: "testuser", PasswordHash: string(hash)}
}

func TestAuthService_Login_Success(t *testing.T) {
	ctx := context.Background()
	user := userWithPassword(t, "testpass123")

	users := &mockUserRepo{
		getByUsernameFn: func(context.Context, string) (*domain.User, error) { return user, nil },
	}

	var gotTTL time.Duration
	sessions := &mockSessionRepo{
		createFn: func(_ context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
			if userID != 1 {
				t.Errorf("expected userID 1, got %d", userID)
			}
			if token == "" {
				t.Error("token should not be empty")
			}
			if userAgent != "ua" || ip != "10.0.0.1" {
				t.Errorf("unexpected client binding %q %q", userAgent, ip)
			}
			gotTTL = time.Until(expiresAt)
			return nil
		},
	}

	svc := NewAuthService(users, sessions, 2*time.Hour, nil)
	token, err := svc.Login(ctx, "testuser", "testpass123", "ua", "10.0.0.1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token == "" {
		t.Error("expected token, got empty string")
	}
	if gotTTL < time.Hour || gotTTL > 2*time.Hour {
		t.Errorf("expected ~2h session, got %v", gotTTL)
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	user := userWithPassword(t, "correctpass")
	users := &mockUserRepo{
		getByUsernameFn: func(context.Context, string) (*domain.User, error) { return user, nil },
	}

	svc := NewAuthService(users, &mockSessionRepo{}, 0, nil)
	_, err := svc.Login(context.Background(), "testuser", "wrongpass", "ua", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownAndSSOOnlyUsers(t *testing.T) {
	tests := []struct {
		name string
		user *domain.User
	}{
		{"unknown user", nil},
		{"sso user without password", &domain.User{ID: 3, Username: "sso"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users := &mockUserRepo{
				getByUsernameFn: func(context.Context, string) (*domain.User, error) { return tc.user, nil },
			}
			svc := NewAuthService(users, &mockSessionRepo{}, 0, nil)
			_, err := svc.Login(context.Background(), "sso", "", "ua", "")
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthService_ValidateSession_Valid(t *testing.T) {
	sessions := &mockSessionRepo{
		getByTokenFn: func(_ context.Context, tok string) (*domain.Session, error) {
			return &domain.Session{Token: tok, UserID: 1, UserAgent: "ua", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	users := &mockUserRepo{
		getByIDFn: func(_ context.Context, id int64) (*domain.User, error) {
			return &domain.User{ID: id, Username: "testuser"}, nil
		},
	}

	svc := NewAuthService(users, sessions, 0, nil)
	user, err := svc.ValidateSession(context.Background(), "validtoken", "ua")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %s", user.Username)
	}
}

func TestAuthService_ValidateSession_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		session     *domain.Session
		userAgent   string
		wantErr     error
		wantDeleted bool
	}{
		{"unknown token", nil, "ua", ErrSessionNotFound, false},
		{"expired", &domain.Session{UserID: 1, UserAgent: "ua", ExpiresAt: time.Now().Add(-time.Hour)}, "ua", ErrSessionExpired, true},
		{"different user agent", &domain.Session{UserID: 1, UserAgent: "ua", ExpiresAt: time.Now().Add(time.Hour)}, "other", ErrSessionExpired, true},
		{"deleted user", &domain.Session{UserID: 9, UserAgent: "ua", ExpiresAt: time.Now().Add(time.Hour)}, "ua", ErrUserNotFound, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deleted := false
			sessions := &mockSessionRepo{
				getByTokenFn: func(context.Context, string) (*domain.Session, error) { return tc.session, nil },
				deleteFn: func(context.Context, string) error {
					deleted = true
					return nil
				},
			}
			svc := NewAuthService(&mockUserRepo{}, sessions, 0, nil)
			_, err := svc.ValidateSession(context.Background(), "tok", tc.userAgent)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if deleted != tc.wantDeleted {
				t.Errorf("deleted = %v, want %v", deleted, tc.wantDeleted)
			}
		})
	}
}

func TestAuthService_CreateInitialUser_Success(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(_ context.Context, username, passwordHash string) (*domain.User, error) {
			if username != "admin" {
				t.Errorf("expected username 'admin', got %s", username)
			}
			if passwordHash == "" {
				t.Error("password hash should not be empty")
			}
			return &domain.User{ID: 1, Username: username}, nil
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, 0, nil)
	if err := svc.CreateInitialUser(context.Background(), " admin ", "password123"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestAuthService_CreateInitialUser_Rejections(t *testing.T) {
	users := &mockUserRepo{
		countFn: func(context.Context) (int, error) { return 1, nil },
	}
	svc := NewAuthService(users, &mockSessionRepo{}, 0, nil)

	if err := svc.CreateInitialUser(context.Background(), "admin", "password123"); !errors.Is(err, ErrUsersExist) {
		t.Errorf("expected ErrUsersExist, got %v", err)
	}
	if err := svc.CreateInitialUser(context.Background(), "admin", "short"); !errors.Is(err, ErrWeakCredentials) {
		t.Errorf("expected ErrWeakCredentials, got %v", err)
	}
}

func TestAuthService_ValidateForwardAuth_ExistingUser(t *testing.T) {
	users := &mockUserRepo{
		getByUsernameFn: func(_ context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: username}, nil
		},
		createFn: func(context.Context, string, string) (*domain.User, error) {
			t.Fatal("existing user must not be recreated")
			return nil, nil
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, 0, nil)
	user, err := svc.ValidateForwardAuth(context.Background(), "ssouser")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Username != "ssouser" {
		t.Errorf("expected username 'ssouser', got %s", user.Username)
	}
}

func TestAuthService_ValidateForwardAuth_NewUser(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(_ context.Context, username, passwordHash string) (*domain.User, error) {
			if passwordHash != "" {
				t.Error("provisioned users must not get a password")
			}
			return &domain.User{ID: 2, Username: username}, nil
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, 0, nil)
	user, err := svc.ValidateForwardAuth(context.Background(), "newssouser")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID != 2 {
		t.Errorf("expected provisioned user id 2, got %d", user.ID)
	}

	if _, err := svc.ValidateForwardAuth(context.Background(), ""); err == nil {
		t.Error("expected error for empty remote user")
	}
}

func TestAuthService_LoginWithUser_CreateRace(t *testing.T) {
	calls := 0
	users := &mockUserRepo{
		getByUsernameFn: func(_ context.Context, username string) (*domain.User, error) {
			calls++
			if calls == 1 {
				return nil, nil
			}
			return &domain.User{ID: 5, Username: username}, nil
		},
		createFn: func(context.Context, string, string) (*domain.User, error) {
			return nil, errors.New("duplicate key")
		},
	}

	var sessionUser int64
	sessions := &mockSessionRepo{
		createFn: func(_ context.Context, userID int64, _, _, _ string, _ time.Time) error {
			sessionUser = userID
			return nil
		},
	}

	svc := NewAuthService(users, sessions, 0, nil)
	if _, err := svc.LoginWithUser(context.Background(), "racer", "ua", ""); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sessionUser != 5 {
		t.Errorf("expected session for user 5, got %d", sessionUser)
	}
}
