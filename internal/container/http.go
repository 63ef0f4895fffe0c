package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/tinylink/internal/analytics"
	"github.com/serroba/tinylink/internal/handlers"
	"github.com/serroba/tinylink/internal/health"
	"github.com/serroba/tinylink/internal/metrics"
	"github.com/serroba/tinylink/internal/middleware"
	"github.com/serroba/tinylink/internal/shortener"
	"github.com/serroba/tinylink/internal/stats"
	"go.uber.org/zap"
)

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Handle("/metrics", metrics.Handler())

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)

		api := humachi.New(router, huma.DefaultConfig("tinylink", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api))

		checkers := map[string]health.Checker{
			"storage": do.MustInvoke[Storage](i),
		}
		if opts.RedisEnabled() {
			checkers["redis"] = health.NewRedisChecker(do.MustInvoke[*redis.Client](i))
		}

		health.RegisterRoutes(api, health.NewHandler(checkers))

		handlers.RegisterRoutes(api, handlers.NewLinkHandler(
			do.MustInvoke[*shortener.Allocator](i),
			do.MustInvoke[*analytics.Recorder](i),
			do.MustInvoke[*stats.Aggregator](i),
			do.MustInvoke[*stats.ChartRenderer](i),
			opts.PublicBaseURL(),
			do.MustInvoke[*zap.Logger](i),
		))

		return api, nil
	})
}

// ServerPackages registers everything the HTTP server needs.
func ServerPackages(i *do.Injector) {
	LoggerPackage(i)
	RedisPackage(i)
	StoragePackage(i)
	GeoPackage(i)
	EnrichmentPackage(i)
	ConsumerGroupPackage(i)
	CorePackage(i)
	HTTPPackage(i)
}
