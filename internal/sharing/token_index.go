package sharing

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	id "credtrust/pkg/domain"
)

// Redis key prefix for public sharing tokens
const tokenKeyPrefix = "share:tok:"

// RedisTokenIndex maps public sharing tokens to grant ids with a TTL bound to
// the grant's expiry. It is a lookup accelerator for distributed deployments:
// a miss falls back to the store, so the index never has to be complete.
//
// Raw tokens never reach Redis; keys are BLAKE2b digests of the token.
type RedisTokenIndex struct {
	client *redis.Client
}

// NewRedisTokenIndex constructs a Redis-backed token index.
func NewRedisTokenIndex(client *redis.Client) *RedisTokenIndex {
	return &RedisTokenIndex{client: client}
}

func tokenKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return tokenKeyPrefix + hex.EncodeToString(sum[:16])
}

// Put records the token-to-grant mapping. A zero ttl stores the mapping
// without expiry, matching grants that never expire.
func (i *RedisTokenIndex) Put(ctx context.Context, token string, grantID id.GrantID, ttl time.Duration) error {
	if i == nil || token == "" {
		return nil
	}
	if ttl < 0 {
		return nil
	}
	return i.client.Set(ctx, tokenKey(token), grantID.String(), ttl).Err()
}

// Lookup resolves a token to a grant id. A missing key is a miss, not an
// error.
func (i *RedisTokenIndex) Lookup(ctx context.Context, token string) (id.GrantID, bool, error) {
	if i == nil || token == "" {
		return id.GrantID{}, false, nil
	}
	raw, err := i.client.Get(ctx, tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return id.GrantID{}, false, nil
	}
	if err != nil {
		return id.GrantID{}, false, err
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return id.GrantID{}, false, nil
	}
	return id.GrantID(parsed), true, nil
}

// Forget drops the mapping, used when a grant is revoked.
func (i *RedisTokenIndex) Forget(ctx context.Context, token string) error {
	if i == nil || token == "" {
		return nil
	}
	return i.client.Del(ctx, tokenKey(token)).Err()
}
