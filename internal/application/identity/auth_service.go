// Package identity implements login, token refresh and password management
// of back-office usuarios.
package identity

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sgi/backend/internal/domain/shared"
	"github.com/sgi/backend/internal/domain/usuario"
	"github.com/sgi/backend/internal/infrastructure/auth"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

var (
	errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Usuario o contraseña incorrectos")
	errAccountLocked      = shared.NewDomainError("ACCOUNT_LOCKED", "La cuenta está bloqueada temporalmente, intente más tarde")
	errAccountInactive    = shared.NewDomainError("ACCOUNT_INACTIVE", "La cuenta está deshabilitada")
	errTokenRevoked       = shared.NewDomainError("TOKEN_REVOKED", "La sesión fue cerrada")
)

// AuthService handles authentication operations
type AuthService struct {
	users      usuario.Repository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	config     AuthServiceConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service. blacklist may be nil,
// in which case logout only drops the tokens client side.
func NewAuthService(
	users usuario.Repository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		jwtService: jwtService,
		blacklist:  blacklist,
		config:     config,
		logger:     logger.Named("auth"),
		now:        time.Now,
	}
}

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	log := s.logger.With(zap.String("username", input.Username), zap.String("ip", input.IP))

	user, err := s.users.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			log.Warn("Login for unknown user")
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if !user.CanLogin(now) {
		if !user.Active {
			log.Warn("Login attempt for inactive account")
			return nil, errAccountInactive
		}
		log.Warn("Login attempt for locked account")
		return nil, errAccountLocked
	}

	if !user.VerifyPassword(input.Password) {
		locked := user.RecordLoginFailure(now, s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.users.Save(ctx, user); err != nil {
			log.Error("Failed to update user after login failure", zap.Error(err))
		}
		if locked {
			log.Warn("Account locked after too many failed attempts",
				zap.Int("attempts", s.config.MaxLoginAttempts))
			return nil, errAccountLocked
		}
		log.Warn("Invalid password attempt", zap.Int("failed_attempts", user.FailedAttempts))
		return nil, errInvalidCredentials
	}

	pair, err := s.jwtService.GenerateTokenPair(tokenInput(user))
	if err != nil {
		log.Error("Failed to generate token pair", zap.Error(err))
		return nil, err
	}

	user.RecordLoginSuccess(now)
	if err := s.users.Save(ctx, user); err != nil {
		// The tokens are valid anyway
		log.Error("Failed to update user after successful login", zap.Error(err))
	}
	log.Info("User logged in", zap.Int64("user_id", user.ID))

	return &LoginResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		User:                  ToUserInfo(user),
	}, nil
}

// RefreshToken exchanges a valid refresh token for a new pair. The used
// refresh token is revoked.
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*RefreshTokenResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, tokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	userID, _ := claims.GetUserID()
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "Usuario inexistente")
		}
		return nil, err
	}
	if !user.CanLogin(s.now()) {
		s.logger.Warn("Token refresh for inactive user", zap.Int64("user_id", userID))
		return nil, errAccountInactive
	}

	pair, err := s.jwtService.RefreshTokenPair(claims, tokenInput(user))
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, tokenError(err)
	}
	s.revoke(ctx, claims.ID, claims.GetRemainingTTL())

	return &RefreshTokenResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}, nil
}

// Logout revokes the access token and, when given, the refresh token
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	s.logger.Info("User logout", zap.Int64("user_id", input.UserID))
	if input.TokenJTI != "" {
		s.revoke(ctx, input.TokenJTI, input.TokenTTL)
	}
	if input.RefreshToken != "" {
		if claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken); err == nil {
			s.revoke(ctx, claims.ID, claims.GetRemainingTTL())
		}
	}
	return nil
}

// GetCurrentUser retrieves the current user's information
func (s *AuthService) GetCurrentUser(ctx context.Context, userID int64) (*UserInfo, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "Usuario inexistente")
		}
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// ChangePassword changes a user's password and invalidates the tokens issued
// before the change
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("USER_NOT_FOUND", "Usuario inexistente")
		}
		return err
	}
	if err := user.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}
	if s.blacklist != nil {
		userID := strconv.FormatInt(user.ID, 10)
		if err := s.blacklist.AddUserTokensToBlacklist(ctx, userID, s.jwtService.GetRefreshTokenExpiration()); err != nil {
			s.logger.Error("Failed to invalidate tokens after password change", zap.Error(err))
		}
	}
	s.logger.Info("User password changed", zap.Int64("user_id", user.ID))
	return nil
}

// EnsureAdmin creates an administrator when no usuario exists yet. It
// reports whether one was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if seed.Password == "" {
		return false, shared.NewDomainError("WEAK_PASSWORD", "Falta la contraseña del administrador inicial")
	}
	u, err := usuario.NewUsuario(seed.Username, seed.Email, "Administrador", seed.Password, usuario.RoleAdmin)
	if err != nil {
		return false, err
	}
	if err := s.users.Save(ctx, u); err != nil {
		return false, err
	}
	s.logger.Info("Administrator created", zap.String("username", u.Username))
	return true, nil
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil {
		return nil
	}
	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return errTokenRevoked
	}
	invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime())
	if err != nil {
		return err
	}
	if invalidated {
		return errTokenRevoked
	}
	return nil
}

func (s *AuthService) revoke(ctx context.Context, jti string, ttl time.Duration) {
	if s.blacklist == nil || jti == "" {
		return
	}
	if err := s.blacklist.AddToBlacklist(ctx, jti, ttl); err != nil {
		s.logger.Error("Failed to revoke token", zap.String("jti", jti), zap.Error(err))
	}
}

func tokenInput(u *usuario.Usuario) auth.GenerateTokenInput {
	return auth.GenerateTokenInput{UserID: u.ID, Username: u.Username, Role: string(u.Role)}
}

// tokenError maps JWT validation errors to domain errors
func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "La sesión expiró")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Debe iniciar sesión nuevamente")
	default:
		return shared.NewDomainError("TOKEN_INVALID", "Token inválido")
	}
}
