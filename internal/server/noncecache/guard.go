// Package noncecache remembers login nonces in redis so that a signature
// observed once cannot be replayed while its nonce is still remembered.
package noncecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gophauth:nonce:"

// Guard claims nonces with SET NX and a TTL.
type Guard struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewGuard(rdb redis.UniversalClient, ttl time.Duration) *Guard {
	return &Guard{rdb: rdb, ttl: ttl}
}

// NewClient builds a single-node client for addr.
func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}

// Claim records nonce under scope. A nonce already claimed within the TTL
// yields common.ErrNonceReused.
func (g *Guard) Claim(ctx context.Context, scope, nonce string) error {
	ok, err := g.rdb.SetNX(ctx, key(scope, nonce), 1, g.ttl).Result()
	if err != nil {
		return fmt.Errorf("nonce cache: %w", err)
	}
	if !ok {
		return common.ErrNonceReused
	}
	return nil
}

// Ping checks the redis connection.
func (g *Guard) Ping(ctx context.Context) error {
	return g.rdb.Ping(ctx).Err()
}

func key(scope, nonce string) string {
	sum := sha256.Sum256([]byte(scope + "\x00" + nonce))
	return keyPrefix + hex.EncodeToString(sum[:])
}
