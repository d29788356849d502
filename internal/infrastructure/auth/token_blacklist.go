package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/sgi/backend/internal/domain/shared"
)

// TokenBlacklist invalidates JWT tokens before they expire, on logout or
// after a password change
type TokenBlacklist interface {
	// AddToBlacklist revokes a single token by its JTI for ttl, which should
	// be the remaining lifetime of the token
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error

	// IsBlacklisted checks if a token's JTI has been revoked
	IsBlacklisted(ctx context.Context, jti string) (bool, error)

	// AddUserTokensToBlacklist revokes every token of the user issued up to now
	AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error

	// IsUserTokenInvalidated reports whether a token issued at tokenIssuedAt
	// predates the user's last revocation
	IsUserTokenInvalidated(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error)
}

const blacklistPrefix = "token:blacklist:"

// CacheTokenBlacklist implements TokenBlacklist on any shared.Cache, so it is
// shared across instances whenever the cache is backed by Redis
type CacheTokenBlacklist struct {
	cache shared.Cache
	now   func() time.Time
}

// NewCacheTokenBlacklist creates a token blacklist stored in c
func NewCacheTokenBlacklist(c shared.Cache) *CacheTokenBlacklist {
	return &CacheTokenBlacklist{cache: c, now: time.Now}
}

func jtiKey(jti string) string {
	return blacklistPrefix + "jti:" + jti
}

func userKey(userID string) string {
	return blacklistPrefix + "user:" + userID
}

// AddToBlacklist adds a token's JTI to the blacklist
func (b *CacheTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.cache.Set(ctx, jtiKey(jti), true, ttl); err != nil {
		return fmt.Errorf("failed to add token to blacklist: %w", err)
	}
	return nil
}

// IsBlacklisted checks if a token's JTI is in the blacklist
func (b *CacheTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	found, err := b.cache.Get(ctx, jtiKey(jti), &revoked)
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return found && revoked, nil
}

// AddUserTokensToBlacklist stores the current Unix time as the user's
// invalidation timestamp
func (b *CacheTokenBlacklist) AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error {
	if err := b.cache.Set(ctx, userKey(userID), b.now().Unix(), ttl); err != nil {
		return fmt.Errorf("failed to invalidate user tokens: %w", err)
	}
	return nil
}

// IsUserTokenInvalidated checks the token against the user's invalidation
// timestamp. Tokens carry second precision, so a token issued in the same
// second as the revocation stays valid.
func (b *CacheTokenBlacklist) IsUserTokenInvalidated(ctx context.Context, userID string, tokenIssuedAt time.Time) (bool, error) {
	var invalidatedAt int64
	found, err := b.cache.Get(ctx, userKey(userID), &invalidatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to check user token invalidation: %w", err)
	}
	if !found {
		return false, nil
	}
	return tokenIssuedAt.Unix() < invalidatedAt, nil
}

var _ TokenBlacklist = (*CacheTokenBlacklist)(nil)
