package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safecircle/server/internal/model"
)

const otpPrefix = "otp:"

// consumeScript deletes the key only when it still holds the expected hash,
// so two concurrent validations of one code cannot both succeed.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLedger stores code hashes in Redis with a native TTL.
type RedisLedger struct {
	client *redis.Client
	salt   string
	ttl    time.Duration
}

// NewRedisClient parses a redis:// or rediss:// URL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

// NewRedisLedger creates a ledger over an existing client
func NewRedisLedger(client *redis.Client, salt string) *RedisLedger {
	return &RedisLedger{client: client, salt: salt, ttl: OTPTTL}
}

func (l *RedisLedger) Issue(ctx context.Context, key string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	if err := l.client.Set(ctx, otpPrefix+key, hashOTPHex(key, code, l.salt), l.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}
	return code, nil
}

func (l *RedisLedger) Validate(ctx context.Context, key, code string) error {
	deleted, err := consumeScript.Run(ctx, l.client, []string{otpPrefix + key}, hashOTPHex(key, code, l.salt)).Int()
	if err != nil {
		return fmt.Errorf("failed to consume otp: %w", err)
	}
	if deleted == 0 {
		return model.ErrInvalidOrExpired
	}
	return nil
}
