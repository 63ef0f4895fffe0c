package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/serroba/tinylink/internal/analytics"
	"github.com/serroba/tinylink/internal/profanity"
	"github.com/serroba/tinylink/internal/shortener"
	"github.com/serroba/tinylink/internal/stats"
	"github.com/serroba/tinylink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// backend is everything a storage implementation provides.
type backend interface {
	shortener.Repository
	analytics.Store
	stats.Store
}

var errAbort = errors.New("abort")

// runBackendSuite exercises the behaviour every backend must share.
func runBackendSuite(t *testing.T, newBackend func(t *testing.T) backend) {
	t.Helper()

	ctx := context.Background()

	t.Run("first default link is base-36 of first id", func(t *testing.T) {
		b := newBackend(t)
		alloc := shortener.NewAllocator(b, profanity.New(), zap.NewNop())

		link, err := alloc.Shorten(ctx, "http://example.com/a", "")

		require.NoError(t, err)
		assert.Equal(t, "1", link.Identifier)
		assert.Equal(t, "http://example.com/a", link.URL.Original)

		got, err := b.GetLink(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, link.URL, got.URL)
	})

	t.Run("shorten is idempotent", func(t *testing.T) {
		b := newBackend(t)
		alloc := shortener.NewAllocator(b, profanity.New(), zap.NewNop())

		first, err := alloc.Shorten(ctx, "https://example.com/x", "")
		require.NoError(t, err)

		second, err := alloc.Shorten(ctx, "https://example.com/x", "")
		require.NoError(t, err)

		assert.Equal(t, first.Identifier, second.Identifier)
		assert.Equal(t, first.URL.ID, second.URL.ID)
	})

	t.Run("custom label is claimed once", func(t *testing.T) {
		b := newBackend(t)
		alloc := shortener.NewAllocator(b, profanity.New(), zap.NewNop())

		link, err := alloc.Shorten(ctx, "https://example.com/one", "promo")
		require.NoError(t, err)
		assert.Equal(t, "promo", link.Identifier)

		_, err = alloc.Shorten(ctx, "https://example.com/two", "promo")
		require.ErrorIs(t, err, shortener.ErrLabelTaken)

		got, err := b.GetLink(ctx, "promo")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/one", got.URL.Original)
	})

	t.Run("derived identifier skips a claimed label", func(t *testing.T) {
		b := newBackend(t)
		alloc := shortener.NewAllocator(b, profanity.New(), zap.NewNop())

		_, err := alloc.Shorten(ctx, "https://example.com/custom", "2")
		require.NoError(t, err)

		link, err := alloc.Shorten(ctx, "https://example.com/next", "")

		require.NoError(t, err)
		assert.NotEqual(t, "2", link.Identifier)
		assert.Equal(t, shortener.EncodeID(link.URL.ID), link.Identifier)
	})

	t.Run("failed transaction leaves nothing behind", func(t *testing.T) {
		b := newBackend(t)

		err := b.WithinTx(ctx, func(ctx context.Context, tx shortener.Tx) error {
			orig, err := tx.CreateOriginalURL(ctx, "https://example.com/rollback")
			require.NoError(t, err)
			require.NoError(t, tx.CreateLink(ctx, &shortener.Link{
				Identifier: "gone",
				CreatedAt:  time.Now().UTC(),
				URL:        *orig,
			}))

			return errAbort
		})

		require.ErrorIs(t, err, errAbort)

		_, err = b.GetLink(ctx, "gone")
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("duplicate link in transaction reports label taken", func(t *testing.T) {
		b := newBackend(t)

		err := b.WithinTx(ctx, func(ctx context.Context, tx shortener.Tx) error {
			orig, err := tx.CreateOriginalURL(ctx, "https://example.com/dup")
			if err != nil {
				return err
			}

			link := &shortener.Link{Identifier: "dup", CreatedAt: time.Now().UTC(), URL: *orig}
			if err := tx.CreateLink(ctx, link); err != nil {
				return err
			}

			assert.ErrorIs(t, tx.CreateLink(ctx, link), shortener.ErrLabelTaken)

			exists, err := tx.LinkExists(ctx, "dup")
			assert.True(t, exists)

			return err
		})

		require.NoError(t, err)
	})

	t.Run("unknown identifier is not found", func(t *testing.T) {
		b := newBackend(t)

		_, err := b.GetLink(ctx, "missing")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("visits are counted by day and country", func(t *testing.T) {
		b := newBackend(t)
		alloc := shortener.NewAllocator(b, profanity.New(), zap.NewNop())

		link, err := alloc.Shorten(ctx, "https://example.com/visited", "")
		require.NoError(t, err)

		today := time.Now().UTC()
		visits := []*analytics.Visit{
			{LinkIdentifier: link.Identifier, CreatedAt: today, IP: "1.2.3.4"},
			{LinkIdentifier: link.Identifier, CreatedAt: today, IP: "5.6.7.8"},
			{LinkIdentifier: link.Identifier, CreatedAt: today.AddDate(0, 0, -2), IP: "1.2.3.4"},
			{LinkIdentifier: link.Identifier, CreatedAt: today.AddDate(0, 0, -30), IP: "1.2.3.4"},
		}

		for _, v := range visits {
			require.NoError(t, b.CreateVisit(ctx, v))
			assert.Positive(t, v.ID)
		}

		require.NoError(t, b.SetVisitCountry(ctx, visits[0].ID, "US"))
		require.NoError(t, b.SetVisitCountry(ctx, visits[2].ID, "US"))
		require.NoError(t, b.SetVisitCountry(ctx, visits[3].ID, "DE"))

		total, err := b.CountVisits(ctx, link.Identifier)
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)

		agg := stats.NewAggregator(b)

		daily, err := agg.DailyCounts(ctx, link.Identifier, 3)
		require.NoError(t, err)
		require.Len(t, daily, 4)
		assert.Equal(t, int64(2), daily[0].Count)
		assert.Equal(t, int64(0), daily[1].Count)
		assert.Equal(t, int64(1), daily[2].Count)
		assert.Equal(t, int64(0), daily[3].Count)

		countries, err := agg.CountryCounts(ctx, link.Identifier)
		require.NoError(t, err)
		assert.Equal(t, []stats.CountryCount{
			{Country: "US", Count: 2},
			{Country: "DE", Count: 1},
		}, countries)
	})

	t.Run("visit for unknown link is rejected", func(t *testing.T) {
		b := newBackend(t)

		err := b.CreateVisit(ctx, &analytics.Visit{LinkIdentifier: "nope", CreatedAt: time.Now().UTC(), IP: "1.2.3.4"})

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("country of unknown visit is rejected", func(t *testing.T) {
		b := newBackend(t)

		err := b.SetVisitCountry(ctx, 999, "US")

		assert.ErrorIs(t, err, store.ErrVisitNotFound)
	})

	t.Run("concurrent shortens of one url share a link", func(t *testing.T) {
		b := newBackend(t)
		alloc := shortener.NewAllocator(b, profanity.New(), zap.NewNop())

		const workers = 8

		identifiers := make([]string, workers)

		var wg sync.WaitGroup

		for i := range workers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				link, err := alloc.Shorten(ctx, "https://example.com/race", "")
				if assert.NoError(t, err) {
					identifiers[i] = link.Identifier
				}
			}()
		}

		wg.Wait()

		for _, id := range identifiers {
			assert.Equal(t, identifiers[0], id)
		}
	})
}
