package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tsamuels456/unboundedfigures/internal/observability"
)

// Aside implements the cache-aside pattern: dest is filled from Redis when the key exists,
// otherwise load fills it and the result is written back with ttl.
// Redis failures degrade to calling load; load errors are returned as-is and never cached.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() error) error {
	return AsideWhen(ctx, key, dest, ttl, load, nil)
}

// AsideWhen is Aside with a write-back guard: a freshly loaded dest is only stored when keep reports true.
// A nil keep always stores.
func AsideWhen(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() error, keep func() bool) error {
	if client == nil {
		return load()
	}
	family := keyFamily(key)
	ctx, span := observability.StartCacheSpan(ctx, family)
	var loadErr error
	defer func() { span.End(loadErr) }()

	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.CacheLookups.WithLabelValues(family, "hit").Inc()
			return nil
		}
		// Undecodable entries are dropped and reloaded.
		client.Del(ctx, key)
	case errors.Is(err, redis.Nil):
	default:
		observability.CacheLookups.WithLabelValues(family, "error").Inc()
		observability.Logger(ctx).Debug("cache read failed", zap.String("key", key), zap.Error(err))
		loadErr = load()
		return loadErr
	}
	observability.CacheLookups.WithLabelValues(family, "miss").Inc()

	if loadErr = load(); loadErr != nil {
		return loadErr
	}
	if keep != nil && !keep() {
		return nil
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		observability.Logger(ctx).Debug("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
