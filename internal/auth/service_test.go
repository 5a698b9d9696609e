package auth

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/texnomart-dev/storefront-backend/internal/users"
	pkgauth "github.com/texnomart-dev/storefront-backend/pkg/auth"
	"github.com/texnomart-dev/storefront-backend/pkg/auth/session"
	"github.com/texnomart-dev/storefront-backend/pkg/config"
	"github.com/texnomart-dev/storefront-backend/pkg/db/models"
	"github.com/texnomart-dev/storefront-backend/pkg/enums"
	pkgerrors "github.com/texnomart-dev/storefront-backend/pkg/errors"
	"github.com/texnomart-dev/storefront-backend/pkg/security"

	"github.com/google/uuid"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "texnomart",
		ExpirationMinutes: 30,
	}
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type memUserRepo struct {
	byPhone map[string]*models.User
}

func newMemUserRepo(list ...*models.User) *memUserRepo {
	repo := &memUserRepo{byPhone: map[string]*models.User{}}
	for _, u := range list {
		repo.byPhone[u.Phone] = u
	}
	return repo
}

func (m *memUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.ID = uuid.New()
	m.byPhone[user.Phone] = user
	return user, nil
}

func (m *memUserRepo) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	if u, ok := m.byPhone[phone]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type memSessionManager struct {
	sessions map[string]string
	revoked  []string
}

func newMemSessionManager() *memSessionManager {
	return &memSessionManager{sessions: map[string]string{}}
}

func (m *memSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	m.sessions[accessID] = token
	return token, nil
}

func (m *memSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := m.sessions[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(m.sessions, oldAccessID)
	newID := session.NewAccessID()
	newToken := "refresh-" + newID
	m.sessions[newID] = newToken
	return newID, newToken, nil
}

func (m *memSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(m.sessions, accessID)
	m.revoked = append(m.revoked, accessID)
	return nil
}

type stubLimiter struct {
	allow      bool
	count      int64
	lastScope  string
	lastLimit  int64
	lastWindow time.Duration
}

func (s *stubLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s.count++
	s.lastScope = scope
	s.lastLimit = limit
	s.lastWindow = window
	return s.allow, s.count, nil
}

func buildTestService(t *testing.T, repo *memUserRepo, allowLogins bool) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: newMemSessionManager(),
		RateLimiter:    &stubLimiter{allow: allowLogins},
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestServiceRegisterAndLogin(t *testing.T) {
	repo := newMemUserRepo()
	svc := buildTestService(t, repo, true)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Aziz Karimov",
		Phone:    "+998 90 123-45-67",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if resp.User.Phone != "+998901234567" {
		t.Fatalf("phone not normalized: %q", resp.User.Phone)
	}
	if resp.User.Role != enums.UserRoleCustomer {
		t.Fatalf("role = %s, want customer", resp.User.Role)
	}

	login, err := svc.Login(context.Background(), LoginRequest{
		Phone:    "+998901234567",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), login.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Fatalf("claims user = %s, want %s", claims.UserID, resp.User.ID)
	}
	if claims.Role != enums.UserRoleCustomer {
		t.Fatalf("claims role = %s", claims.Role)
	}
}

func TestServiceRegisterDuplicatePhone(t *testing.T) {
	repo := newMemUserRepo(&models.User{
		ID:           uuid.New(),
		Phone:        "+998901234567",
		PasswordHash: "x",
	})
	svc := buildTestService(t, repo, true)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Someone Else",
		Phone:    "+998901234567",
		Password: "irrelevant-pw",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestServiceRegisterWeakPassword(t *testing.T) {
	svc := buildTestService(t, newMemUserRepo(), true)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Aziz",
		Phone:    "+998901234567",
		Password: "short",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceLoginWrongPassword(t *testing.T) {
	repo := newMemUserRepo(&models.User{
		ID:           uuid.New(),
		Phone:        "+998901234567",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleCustomer,
	})
	svc := buildTestService(t, repo, true)

	_, err := svc.Login(context.Background(), LoginRequest{
		Phone:    "+998901234567",
		Password: "wrong-password",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceLoginUnknownPhoneSameError(t *testing.T) {
	svc := buildTestService(t, newMemUserRepo(), true)

	_, err := svc.Login(context.Background(), LoginRequest{
		Phone:    "+998900000000",
		Password: "whatever-pw",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if typed.Message() != invalidCredentialsMessage {
		t.Fatalf("message = %q, must not leak whether the account exists", typed.Message())
	}
}

func TestServiceLoginRateLimited(t *testing.T) {
	repo := newMemUserRepo(&models.User{
		ID:           uuid.New(),
		Phone:        "+998901234567",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleCustomer,
	})
	svc := buildTestService(t, repo, false)

	_, err := svc.Login(context.Background(), LoginRequest{
		Phone:    "+998901234567",
		Password: "right-password",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeRateLimit) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestServiceRegisterRateLimited(t *testing.T) {
	svc, err := NewService(ServiceParams{
		UserRepo:       newMemUserRepo(),
		SessionManager: newMemSessionManager(),
		RateLimiter:    &stubLimiter{allow: false},
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Register(context.Background(), RegisterRequest{
		Name:     "Aziz",
		Phone:    "+998901234567",
		Password: "correct-horse",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeRateLimit) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestServiceRateLimitsComeFromConfig(t *testing.T) {
	limiter := &stubLimiter{allow: true}
	svc, err := NewService(ServiceParams{
		UserRepo:       newMemUserRepo(),
		SessionManager: newMemSessionManager(),
		RateLimiter:    limiter,
		RateLimit: config.AuthRateLimitConfig{
			LoginWindow:    30 * time.Second,
			LoginLimit:     5,
			RegisterWindow: 10 * time.Minute,
			RegisterLimit:  2,
		},
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Aziz",
		Phone:    "+998901234567",
		Password: "correct-horse",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if limiter.lastScope != "register:+998901234567" {
		t.Fatalf("register scope = %q", limiter.lastScope)
	}
	if limiter.lastLimit != 2 || limiter.lastWindow != 10*time.Minute {
		t.Fatalf("register limit = %d window = %s", limiter.lastLimit, limiter.lastWindow)
	}

	if _, err := svc.Login(context.Background(), LoginRequest{
		Phone:    "+998901234567",
		Password: "correct-horse",
	}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if limiter.lastScope != "login:+998901234567" {
		t.Fatalf("login scope = %q", limiter.lastScope)
	}
	if limiter.lastLimit != 5 || limiter.lastWindow != 30*time.Second {
		t.Fatalf("login limit = %d window = %s", limiter.lastLimit, limiter.lastWindow)
	}
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	repo := newMemUserRepo()
	svc := buildTestService(t, repo, true)

	registered, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Aziz",
		Phone:    "+998901234567",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	pair, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  registered.AccessToken,
		RefreshToken: registered.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.AccessToken == registered.AccessToken {
		t.Fatal("access token must change on refresh")
	}
	if pair.RefreshToken == registered.RefreshToken {
		t.Fatal("refresh token must rotate")
	}

	// The old refresh token is dead after rotation.
	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  registered.AccessToken,
		RefreshToken: registered.RefreshToken,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized on replayed refresh, got %v", err)
	}
}

func TestServiceLogoutRevokesSession(t *testing.T) {
	repo := newMemUserRepo()
	sessions := newMemSessionManager()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		RateLimiter:    &stubLimiter{allow: true},
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	registered, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Aziz",
		Phone:    "+998901234567",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), registered.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}

	if err := svc.Logout(context.Background(), claims.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != claims.ID {
		t.Fatalf("revoked = %v, want [%s]", sessions.revoked, claims.ID)
	}
}
