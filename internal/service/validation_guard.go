package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const validationLockPrefix = "proof:validation:"

var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// InFlightGuard keeps two runs from processing the same material at once.
type InFlightGuard interface {
	Acquire(ctx context.Context, materialID string) (token string, acquired bool, err error)
	Release(ctx context.Context, materialID, token string) error
}

type redisInFlightGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisInFlightGuard builds a guard backed by SET NX with an expiry, so a crashed
// run frees the material once ttl elapses.
func NewRedisInFlightGuard(client *redis.Client, ttl time.Duration) InFlightGuard {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &redisInFlightGuard{client: client, ttl: ttl}
}

func (g *redisInFlightGuard) Acquire(ctx context.Context, materialID string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, validationLockPrefix+materialID, token, g.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (g *redisInFlightGuard) Release(ctx context.Context, materialID, token string) error {
	return releaseLockScript.Run(ctx, g.client, []string{validationLockPrefix + materialID}, token).Err()
}
