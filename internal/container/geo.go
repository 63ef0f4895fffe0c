package container

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/tinylink/internal/geo"
	"go.uber.org/zap"
)

// GeoPackage provides the country resolver: hostip.info behind a circuit breaker, cached in
// Redis when it is enabled.
func GeoPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (geo.Resolver, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		timeout := time.Duration(opts.GeoTimeoutMS) * time.Millisecond

		var resolver geo.Resolver = geo.NewHostIPResolver(geo.HostIPConfig{
			BaseURL:       opts.GeoBaseURL,
			Timeout:       timeout,
			RatePerSecond: float64(opts.GeoRate),
			Burst:         max(opts.GeoRate, 1),
		})

		resolver = geo.NewBreakerResolver(resolver, geo.BreakerConfig{Name: "hostip"}, logger)

		if opts.RedisEnabled() {
			ttl := time.Duration(opts.GeoCacheTTLSec) * time.Second
			resolver = geo.NewCachedResolver(resolver, do.MustInvoke[*redis.Client](i), ttl, ttl/24, logger)
		}

		return resolver, nil
	})
}
