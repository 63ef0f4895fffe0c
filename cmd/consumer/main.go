package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/samber/do"
	"github.com/serroba/tinylink/internal/container"
	"github.com/serroba/tinylink/internal/messaging"
	"go.uber.org/zap"
)

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		hooks.OnStart(func() {
			// The consumer only makes sense against a shared broker.
			options.Enrichment = container.EnrichmentRedis

			injector := do.New()
			do.ProvideValue(injector, options)
			container.LoggerPackage(injector)
			container.RedisPackage(injector)
			container.StoragePackage(injector)
			container.GeoPackage(injector)
			container.EnrichmentPackage(injector)
			container.ConsumerGroupPackage(injector)

			logger := do.MustInvoke[*zap.Logger](injector)

			if !options.RedisEnabled() {
				logger.Fatal("consumer requires --redis-addr")
			}

			if options.Storage == container.StorageMemory {
				logger.Warn("memory storage is not shared with the server; visits will not be found")
			}

			group := do.MustInvoke[*messaging.ConsumerGroup](injector)

			ctx, cancel := context.WithCancel(context.Background())

			if err := group.Start(ctx); err != nil {
				logger.Fatal("failed to start consumer group", zap.Error(err))
			}

			logger.Info("consumer running", zap.String("storage", options.Storage))

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			<-sigChan

			logger.Info("shutting down")
			cancel()

			if err := injector.Shutdown(); err != nil {
				logger.Error("shutdown error", zap.Error(err))
			}

			logger.Info("shutdown complete")
			_ = logger.Sync()
		})
	})

	cli.Run()
}
