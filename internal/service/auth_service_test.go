package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/escola-habilidade/scheduling-api/internal/models"
	appErrors "github.com/escola-habilidade/scheduling-api/pkg/errors"
)

type userRepoStub struct {
	users      map[string]*models.User
	tokens     map[string]*models.RefreshToken
	revokedAll []string
	lastLogin  map[string]time.Time
	passwords  map[string]string
}

func newUserRepoStub(users ...*models.User) *userRepoStub {
	stub := &userRepoStub{
		users:     map[string]*models.User{},
		tokens:    map[string]*models.RefreshToken{},
		lastLogin: map[string]time.Time{},
		passwords: map[string]string{},
	}
	for _, user := range users {
		stub.users[user.ID] = user
	}
	return stub
}

func (r *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := r.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	r.lastLogin[id] = ts
	return nil
}

func (r *userRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	r.passwords[id] = passwordHash
	if user, ok := r.users[id]; ok {
		user.PasswordHash = passwordHash
	}
	return nil
}

func (r *userRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	r.revokedAll = append(r.revokedAll, userID)
	for _, token := range r.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	return nil
}

func (r *userRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	r.tokens[token.Token] = token
	return nil
}

func (r *userRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := r.tokens[token]; ok {
		clone := *stored
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (r *userRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range r.tokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "scheduling-api",
		Audience:           []string{"scheduling-api"},
	}
}

func newAuthServiceForTest(t *testing.T) (*AuthService, *userRepoStub) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3nh4-forte"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := newUserRepoStub(&models.User{
		ID:           "user-1",
		Email:        "admin@escolahabilidade.com.br",
		FullName:     "Admin",
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
		Active:       true,
	})
	return NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig()), repo
}

func TestAuthServiceLogin(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@escolahabilidade.com.br",
		Password: "s3nh4-forte",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Contains(t, repo.tokens, resp.RefreshToken)
	assert.Contains(t, repo.lastLogin, "user-1")
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthServiceForTest(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@escolahabilidade.com.br",
		Password: "errada",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)
	repo.users["user-1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@escolahabilidade.com.br",
		Password: "s3nh4-forte",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@escolahabilidade.com.br",
		Password: "s3nh4-forte",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.True(t, repo.tokens[login.RefreshToken].Revoked)

	// The rotated-out token cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc, _ := newAuthServiceForTest(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@escolahabilidade.com.br",
		Password: "s3nh4-forte",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = svc.ValidateToken(login.AccessToken + "tampered")
	require.Error(t, err)
}

func TestAuthServiceChangePassword(t *testing.T) {
	svc, repo := newAuthServiceForTest(t)

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "s3nh4-forte",
		NewPassword: "nova-senha",
	})
	require.NoError(t, err)
	assert.Contains(t, repo.passwords, "user-1")
	assert.Contains(t, repo.revokedAll, "user-1")

	err = svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "s3nh4-forte",
		NewPassword: "outra-senha",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
