package container

import (
	"github.com/samber/do"
	"github.com/serroba/tinylink/internal/analytics"
	"github.com/serroba/tinylink/internal/messaging"
	"github.com/serroba/tinylink/internal/profanity"
	"github.com/serroba/tinylink/internal/shortener"
	"github.com/serroba/tinylink/internal/stats"
	"go.uber.org/zap"
)

// CorePackage provides the allocator, visit recorder, aggregator and chart renderer.
func CorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*profanity.Filter, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.WordFile == "" {
			return profanity.Default(), nil
		}

		return profanity.LoadFile(opts.WordFile)
	})

	do.Provide(i, func(i *do.Injector) (*shortener.Allocator, error) {
		opts := do.MustInvoke[*Options](i)

		return shortener.NewAllocator(
			do.MustInvoke[shortener.Repository](i),
			do.MustInvoke[*profanity.Filter](i),
			do.MustInvoke[*zap.Logger](i),
			shortener.WithMaxAttempts(opts.MaxAttempts),
		), nil
	})

	do.Provide(i, func(i *do.Injector) (*analytics.Recorder, error) {
		return analytics.NewRecorder(
			do.MustInvoke[Storage](i),
			do.MustInvoke[messaging.Publish[analytics.VisitRecordedEvent]](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(i, func(i *do.Injector) (*stats.Aggregator, error) {
		return stats.NewAggregator(do.MustInvoke[Storage](i)), nil
	})

	do.Provide(i, func(i *do.Injector) (*stats.ChartRenderer, error) {
		opts := do.MustInvoke[*Options](i)

		return stats.NewChartRenderer(opts.ChartBaseURL), nil
	})
}
