package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/serroba/tinylink/internal/messaging"
	"github.com/serroba/tinylink/internal/metrics"
	"github.com/serroba/tinylink/internal/shortener"
	"go.uber.org/zap"
)

// Recorder appends visits to a link and hands them off for enrichment.
type Recorder struct {
	store   Store
	publish messaging.Publish[VisitRecordedEvent]
	now     func() time.Time
	logger  *zap.Logger
}

// NewRecorder creates a recorder. publish dispatches enrichment; it may deliver inline or through a broker.
func NewRecorder(store Store, publish messaging.Publish[VisitRecordedEvent], logger *zap.Logger) *Recorder {
	return &Recorder{
		store:   store,
		publish: publish,
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock returns a copy of r using now as its time source.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	clone := *r
	clone.now = now

	return &clone
}

// RecordVisit persists a visit with an unknown country and dispatches enrichment.
// Only persistence failures are returned; the visit is countable once this returns nil.
func (r *Recorder) RecordVisit(ctx context.Context, link *shortener.Link, ip string) (*Visit, error) {
	visit := &Visit{
		LinkIdentifier: link.Identifier,
		CreatedAt:      r.now().UTC(),
		IP:             ip,
	}

	if err := r.store.CreateVisit(ctx, visit); err != nil {
		return nil, fmt.Errorf("persist visit: %w", err)
	}

	metrics.VisitsRecorded.Inc()

	event := &VisitRecordedEvent{
		VisitID:        visit.ID,
		LinkIdentifier: visit.LinkIdentifier,
		IP:             visit.IP,
		RecordedAt:     visit.CreatedAt,
	}

	if err := r.publish(ctx, event); err != nil {
		r.logger.Error("failed to dispatch visit enrichment",
			zap.Int64("visit_id", visit.ID),
			zap.String("identifier", visit.LinkIdentifier),
			zap.Error(err),
		)
	}

	return visit, nil
}
