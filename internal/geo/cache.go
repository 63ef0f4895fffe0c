package geo

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/tinylink/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const negativeEntry = "-"

// CachedResolver remembers lookups in Redis and collapses concurrent lookups of one IP.
type CachedResolver struct {
	next        Resolver
	client      *redis.Client
	prefix      string
	ttl         time.Duration
	negativeTTL time.Duration
	group       singleflight.Group
	logger      *zap.Logger
}

// NewCachedResolver wraps next. ErrUnknownCountry answers are remembered for negativeTTL; zero
// disables that. Other failures are not cached.
func NewCachedResolver(
	next Resolver, client *redis.Client, ttl, negativeTTL time.Duration, logger *zap.Logger,
) *CachedResolver {
	return &CachedResolver{
		next:        next,
		client:      client,
		prefix:      "geo:country:",
		ttl:         ttl,
		negativeTTL: negativeTTL,
		logger:      logger,
	}
}

func (c *CachedResolver) ResolveCountry(ctx context.Context, ip string) (string, error) {
	key := c.prefix + ip

	cached, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil && cached == negativeEntry:
		metrics.GeoCacheHits.Inc()

		return "", ErrUnknownCountry
	case err == nil && ValidCountry(cached):
		metrics.GeoCacheHits.Inc()

		return cached, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger.Warn("geo cache read failed", zap.String("ip", ip), zap.Error(err))
	}

	v, err, _ := c.group.Do(ip, func() (any, error) {
		code, err := c.next.ResolveCountry(ctx, ip)
		if err != nil {
			if errors.Is(err, ErrUnknownCountry) && c.negativeTTL > 0 {
				c.store(ctx, key, negativeEntry, c.negativeTTL)
			}

			return "", err
		}

		c.store(ctx, key, code, c.ttl)

		return code, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (c *CachedResolver) store(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("geo cache write failed", zap.String("key", key), zap.Error(err))
	}
}
