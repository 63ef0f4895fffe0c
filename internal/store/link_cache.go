package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/tinylink/internal/shortener"
	"go.uber.org/zap"
)

// LinkCache wraps a shortener.Repository with Redis caching for reads. Links never change
// after creation, so entries only expire by TTL.
type LinkCache struct {
	store  shortener.Repository
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewLinkCache creates a new Redis-cached repository decorator.
func NewLinkCache(store shortener.Repository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *LinkCache {
	return &LinkCache{
		store:  store,
		client: client,
		prefix: "link:",
		ttl:    ttl,
		logger: logger,
	}
}

// WithinTx runs fn against the underlying store and caches links created by it after commit.
func (c *LinkCache) WithinTx(ctx context.Context, fn func(ctx context.Context, tx shortener.Tx) error) error {
	recorder := &recordingTx{}

	err := c.store.WithinTx(ctx, func(ctx context.Context, tx shortener.Tx) error {
		recorder.Tx = tx
		recorder.created = recorder.created[:0]

		return fn(ctx, recorder)
	})
	if err != nil {
		return err
	}

	for _, link := range recorder.created {
		c.cacheLink(ctx, link)
	}

	return nil
}

// GetLink retrieves a link by identifier, checking the cache first.
func (c *LinkCache) GetLink(ctx context.Context, identifier string) (*shortener.Link, error) {
	if link, ok := c.getFromCache(ctx, identifier); ok {
		return link, nil
	}

	link, err := c.store.GetLink(ctx, identifier)
	if err != nil {
		return nil, err
	}

	c.cacheLink(ctx, link)

	return link, nil
}

func (c *LinkCache) getFromCache(ctx context.Context, identifier string) (*shortener.Link, bool) {
	result, err := c.client.HGetAll(ctx, c.prefix+identifier).Result()
	if err != nil {
		c.logger.Warn("link cache read failed", zap.String("identifier", identifier), zap.Error(err))

		return nil, false
	}

	if len(result) == 0 {
		return nil, false
	}

	id, err := strconv.ParseInt(result["original_url_id"], 10, 64)
	if err != nil {
		return nil, false
	}

	var createdAt time.Time

	if nanos, err := strconv.ParseInt(result["created_at"], 10, 64); err == nil {
		createdAt = time.Unix(0, nanos).UTC()
	}

	return &shortener.Link{
		Identifier: identifier,
		CreatedAt:  createdAt,
		URL: shortener.OriginalURL{
			ID:       id,
			Original: result["original"],
		},
	}, true
}

func (c *LinkCache) cacheLink(ctx context.Context, link *shortener.Link) {
	pipe := c.client.Pipeline()
	key := c.prefix + link.Identifier

	pipe.HSet(ctx, key, map[string]any{
		"original":        link.URL.Original,
		"original_url_id": link.URL.ID,
		"created_at":      link.CreatedAt.UnixNano(),
	})

	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("link cache write failed", zap.String("identifier", link.Identifier), zap.Error(err))
	}
}

// recordingTx remembers links created during a transaction.
type recordingTx struct {
	shortener.Tx
	created []*shortener.Link
}

func (r *recordingTx) CreateLink(ctx context.Context, link *shortener.Link) error {
	if err := r.Tx.CreateLink(ctx, link); err != nil {
		return err
	}

	r.created = append(r.created, link)

	return nil
}

var _ shortener.Repository = (*LinkCache)(nil)
