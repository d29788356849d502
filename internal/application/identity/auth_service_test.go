package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sgi/backend/internal/application/common"
	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/domain/usuario"
	"github.com/sgi/backend/internal/infrastructure/auth"
	"github.com/sgi/backend/internal/infrastructure/cache"
	"github.com/sgi/backend/internal/infrastructure/config"
)

// MockUsuarioRepository is a mock implementation of usuario.Repository
type MockUsuarioRepository struct {
	mock.Mock
}

func (m *MockUsuarioRepository) FindByID(ctx context.Context, id int64) (*usuario.Usuario, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usuario.Usuario), args.Error(1)
}

func (m *MockUsuarioRepository) FindByUsername(ctx context.Context, username string) (*usuario.Usuario, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usuario.Usuario), args.Error(1)
}

func (m *MockUsuarioRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUsuarioRepository) Save(ctx context.Context, u *usuario.Usuario) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

const testPassword = "S3cr3t-pass"

func newTestAuthService(t *testing.T) (*AuthService, *MockUsuarioRepository) {
	t.Helper()
	repo := new(MockUsuarioRepository)
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-that-is-at-least-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "sgi-test",
		MaxRefreshCount:        5,
	})
	mem := cache.NewMemoryCache(0)
	t.Cleanup(func() { _ = mem.Close() })
	svc := NewAuthService(repo, jwtService, auth.NewCacheTokenBlacklist(mem), AuthServiceConfig{
		MaxLoginAttempts: 3,
		LockDuration:     15 * time.Minute,
	}, nil)
	return svc, repo
}

func testUser(t *testing.T) *usuario.Usuario {
	t.Helper()
	u, err := usuario.NewUsuario("operador", "operador@example.com", "Operador", testPassword, usuario.RoleOperador)
	require.NoError(t, err)
	u.ID = 5
	return u
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a token pair", func(t *testing.T) {
		svc, repo := newTestAuthService(t)
		u := testUser(t)
		repo.On("FindByUsername", ctx, "operador").Return(u, nil)
		repo.On("Save", ctx, u).Return(nil)

		result, err := svc.Login(ctx, LoginInput{Username: "operador", Password: testPassword, IP: "10.0.0.1"})

		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.Equal(t, "Bearer", result.TokenType)
		assert.Equal(t, int64(5), result.User.ID)
		assert.Equal(t, "OPERADOR", result.User.Role)
		assert.NotNil(t, u.LastLoginAt)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, repo := newTestAuthService(t)
		repo.On("FindByUsername", ctx, "nadie").Return(nil, shared.ErrNotFound)

		_, err := svc.Login(ctx, LoginInput{Username: "nadie", Password: testPassword})

		assert.Equal(t, "INVALID_CREDENTIALS", common.DomainCode(err))
	})

	t.Run("inactive user", func(t *testing.T) {
		svc, repo := newTestAuthService(t)
		u := testUser(t)
		u.Active = false
		repo.On("FindByUsername", ctx, "operador").Return(u, nil)

		_, err := svc.Login(ctx, LoginInput{Username: "operador", Password: testPassword})

		assert.Equal(t, "ACCOUNT_INACTIVE", common.DomainCode(err))
	})

	t.Run("locks after repeated failures", func(t *testing.T) {
		svc, repo := newTestAuthService(t)
		u := testUser(t)
		repo.On("FindByUsername", ctx, "operador").Return(u, nil)
		repo.On("Save", ctx, u).Return(nil)
		now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return now }

		for i := 0; i < 2; i++ {
			_, err := svc.Login(ctx, LoginInput{Username: "operador", Password: "wrong-password"})
			assert.Equal(t, "INVALID_CREDENTIALS", common.DomainCode(err))
		}
		_, err := svc.Login(ctx, LoginInput{Username: "operador", Password: "wrong-password"})
		assert.Equal(t, "ACCOUNT_LOCKED", common.DomainCode(err))

		_, err = svc.Login(ctx, LoginInput{Username: "operador", Password: testPassword})
		assert.Equal(t, "ACCOUNT_LOCKED", common.DomainCode(err))

		now = now.Add(16 * time.Minute)
		_, err = svc.Login(ctx, LoginInput{Username: "operador", Password: testPassword})
		assert.NoError(t, err)
	})
}

func TestAuthService_RefreshToken(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestAuthService(t)
	u := testUser(t)
	repo.On("FindByUsername", ctx, "operador").Return(u, nil)
	repo.On("FindByID", ctx, int64(5)).Return(u, nil)
	repo.On("Save", ctx, u).Return(nil)

	login, err := svc.Login(ctx, LoginInput{Username: "operador", Password: testPassword})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: login.RefreshToken})
	assert.Equal(t, "TOKEN_REVOKED", common.DomainCode(err))

	_, err = svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: login.AccessToken})
	assert.Equal(t, "TOKEN_INVALID", common.DomainCode(err))

	_, err = svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: "garbage"})
	assert.Equal(t, "TOKEN_INVALID", common.DomainCode(err))
}

func TestAuthService_Logout_RevokesRefreshToken(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestAuthService(t)
	u := testUser(t)
	repo.On("FindByUsername", ctx, "operador").Return(u, nil)
	repo.On("Save", ctx, u).Return(nil)

	login, err := svc.Login(ctx, LoginInput{Username: "operador", Password: testPassword})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, LogoutInput{UserID: 5, RefreshToken: login.RefreshToken}))

	_, err = svc.RefreshToken(ctx, RefreshTokenInput{RefreshToken: login.RefreshToken})
	assert.Equal(t, "TOKEN_REVOKED", common.DomainCode(err))
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestAuthService(t)
	u := testUser(t)
	repo.On("FindByID", ctx, int64(5)).Return(u, nil)
	repo.On("Save", ctx, u).Return(nil)

	err := svc.ChangePassword(ctx, ChangePasswordInput{UserID: 5, OldPassword: "bad-password", NewPassword: "Otra-clave-1"})
	assert.Equal(t, "INVALID_PASSWORD", common.DomainCode(err))

	require.NoError(t, svc.ChangePassword(ctx, ChangePasswordInput{UserID: 5, OldPassword: testPassword, NewPassword: "Otra-clave-1"}))
	assert.True(t, u.VerifyPassword("Otra-clave-1"))
}

func TestAuthService_GetCurrentUser(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestAuthService(t)
	repo.On("FindByID", ctx, int64(5)).Return(testUser(t), nil)
	repo.On("FindByID", ctx, int64(6)).Return(nil, shared.ErrNotFound)

	info, err := svc.GetCurrentUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "operador", info.Username)

	_, err = svc.GetCurrentUser(ctx, 6)
	assert.Equal(t, "USER_NOT_FOUND", common.DomainCode(err))
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	seed := AdminSeed{Username: "admin", Email: "admin@example.com", Password: "Admin-1234"}

	t.Run("seeds an empty table", func(t *testing.T) {
		svc, repo := newTestAuthService(t)
		repo.On("Count", ctx).Return(int64(0), nil)
		repo.On("Save", ctx, mock.MatchedBy(func(u *usuario.Usuario) bool {
			return u.Username == "admin" && u.IsAdmin() && u.VerifyPassword("Admin-1234")
		})).Return(nil)

		created, err := svc.EnsureAdmin(ctx, seed)

		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("keeps existing users", func(t *testing.T) {
		svc, repo := newTestAuthService(t)
		repo.On("Count", ctx).Return(int64(2), nil)

		created, err := svc.EnsureAdmin(ctx, seed)

		require.NoError(t, err)
		assert.False(t, created)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("requires a password", func(t *testing.T) {
		svc, repo := newTestAuthService(t)
		repo.On("Count", ctx).Return(int64(0), nil)

		_, err := svc.EnsureAdmin(ctx, AdminSeed{Username: "admin", Email: "admin@example.com"})

		assert.Equal(t, "WEAK_PASSWORD", common.DomainCode(err))
	})
}
