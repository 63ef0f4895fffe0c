package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/serroba/tinylink/internal/geo"
	"github.com/serroba/tinylink/internal/metrics"
	"go.uber.org/zap"
)

// Enricher fills in the country of recorded visits.
type Enricher struct {
	store    Store
	resolver geo.Resolver
	timeout  time.Duration
	logger   *zap.Logger
}

// NewEnricher creates an enricher. Each lookup is bounded by timeout when it is positive.
func NewEnricher(store Store, resolver geo.Resolver, timeout time.Duration, logger *zap.Logger) *Enricher {
	return &Enricher{
		store:    store,
		resolver: resolver,
		timeout:  timeout,
		logger:   logger,
	}
}

// Handle resolves the visitor country and stores it. Geolocation failures leave the
// country unknown and return nil; storage failures are returned for redelivery.
func (e *Enricher) Handle(ctx context.Context, event *VisitRecordedEvent) error {
	lookupCtx := ctx

	if e.timeout > 0 {
		var cancel context.CancelFunc

		lookupCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	country, err := e.resolver.ResolveCountry(lookupCtx, event.IP)
	if err != nil {
		metrics.GeoLookups.WithLabelValues("failed").Inc()
		e.logger.Info("visit country left unknown",
			zap.Int64("visit_id", event.VisitID),
			zap.String("ip", event.IP),
			zap.Error(err),
		)

		return nil
	}

	metrics.GeoLookups.WithLabelValues("ok").Inc()

	if err := e.store.SetVisitCountry(ctx, event.VisitID, country); err != nil {
		return fmt.Errorf("store visit country: %w", err)
	}

	e.logger.Debug("visit enriched",
		zap.Int64("visit_id", event.VisitID),
		zap.String("country", country),
	)

	return nil
}
