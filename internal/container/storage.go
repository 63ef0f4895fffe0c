package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/tinylink/internal/analytics"
	"github.com/serroba/tinylink/internal/shortener"
	"github.com/serroba/tinylink/internal/stats"
	"github.com/serroba/tinylink/internal/store"
	"go.uber.org/zap"
)

// Storage is a backend holding links, visits and their aggregates.
type Storage interface {
	shortener.Repository
	analytics.Store
	stats.Store
	Ping(ctx context.Context) error
}

// storageService releases the backend's resources on injector shutdown.
type storageService struct {
	Storage
	close func() error
}

func (s *storageService) Shutdown() error {
	if s.close == nil {
		return nil
	}

	return s.close()
}

// RedisPackage provides the Redis client. Only invoke it when Options.RedisEnabled.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*redis.Client, error) {
		opts := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		}), nil
	})
}

// StoragePackage provides the configured backend and the link repository the allocator uses.
// With Redis enabled the repository is wrapped in a read-through link cache.
func StoragePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (Storage, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		backend, err := openStorage(opts)
		if err != nil {
			return nil, err
		}

		logger.Info("storage ready", zap.String("backend", opts.Storage))

		return backend, nil
	})

	do.Provide(i, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)
		backend := do.MustInvoke[Storage](i)

		if !opts.RedisEnabled() {
			return backend, nil
		}

		return store.NewLinkCache(
			backend,
			do.MustInvoke[*redis.Client](i),
			time.Duration(opts.LinkCacheTTLSec)*time.Second,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

func openStorage(opts *Options) (*storageService, error) {
	switch opts.Storage {
	case StorageMemory, "":
		return &storageService{Storage: store.NewMemoryStore()}, nil
	case StoragePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if err := store.Migrate(ctx, pool); err != nil {
			pool.Close()

			return nil, err
		}

		return &storageService{
			Storage: store.NewPostgresStore(pool),
			close: func() error {
				pool.Close()

				return nil
			},
		}, nil
	case StorageSQLite:
		s, err := store.OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, err
		}

		return &storageService{Storage: s, close: s.Close}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Storage)
	}
}
