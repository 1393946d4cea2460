package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storepulse/storepulse-backend/internal/users"
	pkgAuth "github.com/storepulse/storepulse-backend/pkg/auth"
	"github.com/storepulse/storepulse-backend/pkg/auth/session"
	"github.com/storepulse/storepulse-backend/pkg/config"
	"github.com/storepulse/storepulse-backend/pkg/db/models"
	"github.com/storepulse/storepulse-backend/pkg/enums"
	pkgerrors "github.com/storepulse/storepulse-backend/pkg/errors"
	"github.com/storepulse/storepulse-backend/pkg/security"
)

var (
	testJWTCfg      = config.JWTConfig{Secret: "secret", Issuer: "storepulse", ExpirationMinutes: 60}
	testPasswordCfg = config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16}
)

type stubUserRepo struct {
	byEmail     map[string]*models.User
	byID        map[uuid.UUID]*models.User
	createErr   error
	created     *models.User
	updatedHash string
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byEmail: map[string]*models.User{},
		byID:    map[uuid.UUID]*models.User{},
	}
}

func (s *stubUserRepo) add(user *models.User) {
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
}

func (s *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.created = user
	s.add(user)
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	s.updatedHash = hash
	return nil
}

type stubSessionManager struct {
	generateErr error
	rotateErr   error
	revoked     []string
	generated   []string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	if s.generateErr != nil {
		return "", s.generateErr
	}
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	newID := session.NewAccessID()
	return newID, "refresh-" + newID, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func newTestService(t *testing.T, repo *stubUserRepo, sessions *stubSessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTCfg,
		PasswordConfig: testPasswordCfg,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, repo *stubUserRepo, email, password string, role enums.Role) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordCfg)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{ID: uuid.New(), Name: "Seed User", Email: email, PasswordHash: hash, Role: role}
	repo.add(user)
	return user
}

func TestRegisterCreatesPlainUserAndIssuesTokens(t *testing.T) {
	repo := newStubUserRepo()
	sessions := &stubSessionManager{}
	svc := newTestService(t, repo, sessions)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "New Person",
		Email:    "New@Example.com",
		Password: "Str0ng!pass",
		Address:  "1 Road",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if repo.created.Role != enums.RoleUser {
		t.Fatalf("expected role user, got %s", repo.created.Role)
	}
	if repo.created.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %s", repo.created.Email)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTCfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.Role != enums.RoleUser {
		t.Fatalf("expected user role in claims, got %s", claims.Role)
	}
	if len(sessions.generated) != 1 || sessions.generated[0] != claims.ID {
		t.Fatalf("expected session keyed by jti, got %v", sessions.generated)
	}
}

func TestRegisterDuplicateEmailIsValidationError(t *testing.T) {
	repo := newStubUserRepo()
	repo.createErr = errors.New(`duplicate key value violates unique constraint "users_email_key"`)
	svc := newTestService(t, repo, &stubSessionManager{})

	_, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "New Person",
		Email:    "dup@example.com",
		Password: "Str0ng!pass",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := newStubUserRepo()
	seedUser(t, repo, "known@example.com", "Str0ng!pass", enums.RoleUser)
	svc := newTestService(t, repo, &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "known@example.com", Password: "Wr0ng!pass"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc := newTestService(t, newStubUserRepo(), &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "Str0ng!pass"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginIssuesTokensForValidCredentials(t *testing.T) {
	repo := newStubUserRepo()
	user := seedUser(t, repo, "owner@example.com", "Str0ng!pass", enums.RoleStoreOwner)
	svc := newTestService(t, repo, &stubSessionManager{})

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "Owner@Example.com", Password: "Str0ng!pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.User == nil || resp.User.ID != user.ID {
		t.Fatalf("expected user in response, got %+v", resp.User)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTCfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.Role != enums.RoleStoreOwner {
		t.Fatalf("expected store_owner claims, got %s", claims.Role)
	}
}

func TestRefreshRotatesSessionAndReissuesToken(t *testing.T) {
	repo := newStubUserRepo()
	user := seedUser(t, repo, "user@example.com", "Str0ng!pass", enums.RoleUser)
	sessions := &stubSessionManager{}
	svc := newTestService(t, repo, sessions)

	oldJTI := session.NewAccessID()
	oldToken, err := pkgAuth.MintAccessToken(testJWTCfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID, Role: user.Role, JTI: oldJTI,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	pair, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: oldToken, RefreshToken: "refresh-" + oldJTI})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTCfg, pair.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if claims.ID == oldJTI {
		t.Fatal("expected a new session id after rotation")
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected same user, got %s", claims.UserID)
	}
}

func TestRefreshRejectsInvalidRefreshToken(t *testing.T) {
	repo := newStubUserRepo()
	user := seedUser(t, repo, "user@example.com", "Str0ng!pass", enums.RoleUser)
	sessions := &stubSessionManager{rotateErr: session.ErrInvalidRefreshToken}
	svc := newTestService(t, repo, sessions)

	token, err := pkgAuth.MintAccessToken(testJWTCfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID, Role: user.Role, JTI: session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{AccessToken: token, RefreshToken: "stolen"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := &stubSessionManager{}
	svc := newTestService(t, newStubUserRepo(), sessions)

	if err := svc.Logout(context.Background(), "jti-123"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "jti-123" {
		t.Fatalf("expected revoke call, got %v", sessions.revoked)
	}
}

func TestChangePasswordVerifiesCurrentCredential(t *testing.T) {
	repo := newStubUserRepo()
	user := seedUser(t, repo, "user@example.com", "Str0ng!pass", enums.RoleUser)
	svc := newTestService(t, repo, &stubSessionManager{})

	err := svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		CurrentPassword: "Wr0ng!pass",
		NewPassword:     "N3w!passwd",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	if err := svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		CurrentPassword: "Str0ng!pass",
		NewPassword:     "N3w!passwd",
	}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if repo.updatedHash == "" || repo.updatedHash == user.PasswordHash {
		t.Fatal("expected a new stored hash")
	}
}
