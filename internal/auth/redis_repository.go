package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRevocationCache mirrors the invalid token table in Redis so the
// authorization gate can skip the database for hot tokens. Entries expire
// with the token they describe.
type RedisRevocationCache struct {
	client *redis.Client
}

func NewRedisRevocationCache(client *redis.Client) *RedisRevocationCache {
	return &RedisRevocationCache{client: client}
}

// hashToken keeps raw tokens out of Redis keys
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// getRevokedKey generates the Redis key for a revoked token marker
func getRevokedKey(tokenHash string) string {
	return fmt.Sprintf("revoked_token:%s", tokenHash)
}

// getUserTokensKey generates the Redis key for the set of a user's revoked tokens
func getUserTokensKey(userID uuid.UUID) string {
	return fmt.Sprintf("revoked_tokens:%s", userID.String())
}

// MarkRevoked records the token as revoked until ttl elapses
func (c *RedisRevocationCache) MarkRevoked(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	tokenHash := hashToken(token)
	userTokensKey := getUserTokensKey(userID)

	pipe := c.client.Pipeline()
	pipe.Set(ctx, getRevokedKey(tokenHash), userID.String(), ttl)
	pipe.SAdd(ctx, userTokensKey, tokenHash)
	// The set lives as long as its longest member; a shorter ttl never shrinks it
	pipe.ExpireNX(ctx, userTokensKey, ttl)
	pipe.ExpireGT(ctx, userTokensKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache revoked token: %w", err)
	}

	return nil
}

// IsRevoked reports whether the token is cached as revoked for the user
func (c *RedisRevocationCache) IsRevoked(ctx context.Context, userID uuid.UUID, token string) (bool, error) {
	owner, err := c.client.Get(ctx, getRevokedKey(hashToken(token))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}

	return owner == userID.String(), nil
}

// Purge drops every cached revocation of the user
func (c *RedisRevocationCache) Purge(ctx context.Context, userID uuid.UUID) error {
	userTokensKey := getUserTokensKey(userID)

	hashes, err := c.client.SMembers(ctx, userTokensKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list revoked tokens: %w", err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, getRevokedKey(h))
	}
	keys = append(keys, userTokensKey)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to purge revoked tokens: %w", err)
	}

	return nil
}
