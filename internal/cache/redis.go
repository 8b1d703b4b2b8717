// Package cache holds the shared Redis client and the cache-aside helpers built on it.
// Every helper treats a nil client as a cache miss, so the API runs without Redis.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

const connectTimeout = 5 * time.Second

var client *redis.Client

// errorCounter counts failed commands by name. redis.Nil is a miss, not a failure.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countFailure(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countFailure("pipeline", err)
		return err
	}
}

func countFailure(command string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrors.WithLabelValues(command).Inc()
	}
}

// redisOptions accepts either a redis:// URL or a bare host:port.
func redisOptions(addr string) (*redis.Options, error) {
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	return redis.ParseURL(addr)
}

// InitRedis connects the shared client. On a bad address or a failed ping it logs
// and leaves caching off instead of failing startup.
func InitRedis(addr string) {
	client = nil
	log := observability.L()

	opts, err := redisOptions(addr)
	if err != nil {
		log.Warn("invalid REDIS_URL; caching disabled", zap.String("addr", addr), zap.Error(err))
		return
	}

	c := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable; caching disabled", zap.String("addr", opts.Addr), zap.Error(err))
		_ = c.Close()
		return
	}

	c.AddHook(errorCounter{})
	client = c
	log.Info("redis connected", zap.String("addr", opts.Addr))
}

// SetClient installs c as the shared client. Tests use it with miniredis.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(errorCounter{})
	}
	client = c
}

// GetClient is nil while caching is disabled.
func GetClient() *redis.Client {
	return client
}

func Close() error {
	c := client
	client = nil
	if c == nil {
		return nil
	}
	return c.Close()
}
