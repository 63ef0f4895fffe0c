package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/tinylink/internal/metrics"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds how many OriginalURLs a single default allocation may consume.
const DefaultMaxAttempts = 16

// Allocator turns original URLs into links, reusing existing links for identical URLs.
type Allocator struct {
	repo        Repository
	filter      WordFilter
	maxAttempts int
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithMaxAttempts sets the derived-identifier attempt budget. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithClock overrides the time source used for Link.CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		a.now = now
	}
}

// NewAllocator creates an allocator backed by repo and filtered by filter.
func NewAllocator(repo Repository, filter WordFilter, logger *zap.Logger, opts ...Option) *Allocator {
	a := &Allocator{
		repo:        repo,
		filter:      filter,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Shorten returns the link for originalURL, creating it when needed. An empty customLabel
// means the identifier is derived from the OriginalURL id.
func (a *Allocator) Shorten(ctx context.Context, originalURL, customLabel string) (*Link, error) {
	if err := ValidateURL(originalURL); err != nil {
		metrics.ShortenRejected.WithLabelValues("invalid_url").Inc()

		return nil, err
	}

	var (
		link    *Link
		created bool
	)

	err := a.repo.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		existing, err := tx.FindLinkByOriginal(ctx, originalURL)
		if err == nil {
			link = existing

			return nil
		}

		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("find existing link: %w", err)
		}

		if customLabel != "" {
			link, err = a.claimLabel(ctx, tx, originalURL, customLabel)
		} else {
			link, err = a.derive(ctx, tx, originalURL)
		}

		created = err == nil

		return err
	})
	if err != nil {
		a.reject(err)

		return nil, err
	}

	if created {
		kind := "default"
		if customLabel != "" {
			kind = "custom"
		}

		metrics.LinksCreated.WithLabelValues(kind).Inc()
		a.logger.Info("link created",
			zap.String("identifier", link.Identifier),
			zap.String("kind", kind),
			zap.Int64("original_url_id", link.URL.ID),
		)
	}

	return link, nil
}

// Resolve returns the link owning identifier, or ErrNotFound.
func (a *Allocator) Resolve(ctx context.Context, identifier string) (*Link, error) {
	return a.repo.GetLink(ctx, identifier)
}

func (a *Allocator) claimLabel(ctx context.Context, tx Tx, originalURL, label string) (*Link, error) {
	taken, err := tx.LinkExists(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("check label: %w", err)
	}

	if taken {
		return nil, ErrLabelTaken
	}

	if a.filter.Contains(label) {
		return nil, ErrLabelForbidden
	}

	orig, err := tx.CreateOriginalURL(ctx, originalURL)
	if err != nil {
		return nil, fmt.Errorf("create original url: %w", err)
	}

	link := &Link{Identifier: label, CreatedAt: a.now().UTC(), URL: *orig}

	if err := tx.CreateLink(ctx, link); err != nil {
		if errors.Is(err, ErrLabelTaken) {
			return nil, ErrLabelTaken
		}

		return nil, fmt.Errorf("create link: %w", err)
	}

	return link, nil
}

// derive allocates OriginalURLs until one encodes to an identifier that is free and clean.
// Rejected OriginalURLs stay in storage without a link.
func (a *Allocator) derive(ctx context.Context, tx Tx, originalURL string) (*Link, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		orig, err := tx.CreateOriginalURL(ctx, originalURL)
		if err != nil {
			return nil, fmt.Errorf("create original url: %w", err)
		}

		candidate := EncodeID(orig.ID)

		if a.filter.Contains(candidate) {
			a.collision(candidate, "profane", attempt)

			continue
		}

		taken, err := tx.LinkExists(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("check identifier: %w", err)
		}

		if taken {
			a.collision(candidate, "taken", attempt)

			continue
		}

		link := &Link{Identifier: candidate, CreatedAt: a.now().UTC(), URL: *orig}

		if err := tx.CreateLink(ctx, link); err != nil {
			if errors.Is(err, ErrLabelTaken) {
				a.collision(candidate, "taken", attempt)

				continue
			}

			return nil, fmt.Errorf("create link: %w", err)
		}

		return link, nil
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, a.maxAttempts)
}

func (a *Allocator) collision(candidate, cause string, attempt int) {
	metrics.IdentifierCollisions.WithLabelValues(cause).Inc()
	a.logger.Debug("skipping derived identifier",
		zap.String("identifier", candidate),
		zap.String("cause", cause),
		zap.Int("attempt", attempt),
	)
}

func (a *Allocator) reject(err error) {
	switch {
	case errors.Is(err, ErrLabelTaken):
		metrics.ShortenRejected.WithLabelValues("label_taken").Inc()
	case errors.Is(err, ErrLabelForbidden):
		metrics.ShortenRejected.WithLabelValues("label_forbidden").Inc()
	case errors.Is(err, ErrAttemptsExhausted):
		metrics.ShortenRejected.WithLabelValues("attempts_exhausted").Inc()
		a.logger.Error("identifier allocation exhausted", zap.Error(err))
	default:
		a.logger.Error("shorten failed", zap.Error(err))
	}
}
