package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/tinylink/internal/analytics"
	"github.com/serroba/tinylink/internal/shortener"
	"github.com/serroba/tinylink/internal/stats"
)

const foreignKeyViolation = "23503"

//go:embed schema.sql
var schemaSQL string

// Migrate creates the tables PostgresStore needs. It is safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}

// PostgresStore is a PostgreSQL implementation of the link, visit and stats stores.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx shortener.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &postgresTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func (p *PostgresStore) GetLink(ctx context.Context, identifier string) (*shortener.Link, error) {
	query := `
		SELECT l.identifier, l.created_at, o.id, o.original
		FROM links l
		JOIN original_urls o ON o.id = l.original_url_id
		WHERE l.identifier = $1
	`

	return scanLink(p.pool.QueryRow(ctx, query, identifier))
}

type postgresTx struct {
	tx pgx.Tx
}

// FindLinkByOriginal also takes a transaction-scoped advisory lock on original so concurrent
// shortens of one URL queue behind each other until commit.
func (t *postgresTx) FindLinkByOriginal(ctx context.Context, original string) (*shortener.Link, error) {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, original); err != nil {
		return nil, fmt.Errorf("lock original url: %w", err)
	}

	query := `
		SELECT l.identifier, l.created_at, o.id, o.original
		FROM original_urls o
		JOIN links l ON l.original_url_id = o.id
		WHERE o.original = $1
		ORDER BY o.id
		LIMIT 1
	`

	return scanLink(t.tx.QueryRow(ctx, query, original))
}

func (t *postgresTx) LinkExists(ctx context.Context, identifier string) (bool, error) {
	var exists bool

	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM links WHERE identifier = $1)`, identifier).Scan(&exists)

	return exists, err
}

func (t *postgresTx) CreateOriginalURL(ctx context.Context, original string) (*shortener.OriginalURL, error) {
	orig := &shortener.OriginalURL{Original: original}

	err := t.tx.QueryRow(ctx, `INSERT INTO original_urls (original) VALUES ($1) RETURNING id`, original).Scan(&orig.ID)
	if err != nil {
		return nil, err
	}

	return orig, nil
}

// CreateLink relies on ON CONFLICT so a lost race leaves the transaction usable.
func (t *postgresTx) CreateLink(ctx context.Context, link *shortener.Link) error {
	query := `
		INSERT INTO links (identifier, created_at, original_url_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (identifier) DO NOTHING
	`

	tag, err := t.tx.Exec(ctx, query, link.Identifier, link.CreatedAt, link.URL.ID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return shortener.ErrLabelTaken
	}

	return nil
}

func (p *PostgresStore) CreateVisit(ctx context.Context, visit *analytics.Visit) error {
	query := `
		INSERT INTO visits (created_at, ip, country, link_identifier)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := p.pool.QueryRow(ctx, query,
		visit.CreatedAt,
		visit.IP,
		visit.Country,
		visit.LinkIdentifier,
	).Scan(&visit.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("visit for %q: %w", visit.LinkIdentifier, shortener.ErrNotFound)
		}

		return err
	}

	return nil
}

func (p *PostgresStore) SetVisitCountry(ctx context.Context, visitID int64, country string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE visits SET country = $2 WHERE id = $1`, visitID, country)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("visit %d: %w", visitID, ErrVisitNotFound)
	}

	return nil
}

func (p *PostgresStore) CountVisits(ctx context.Context, identifier string) (int64, error) {
	var total int64

	err := p.pool.QueryRow(ctx, `SELECT count(*) FROM visits WHERE link_identifier = $1`, identifier).Scan(&total)

	return total, err
}

func (p *PostgresStore) CountVisitsByDay(ctx context.Context, identifier string, since time.Time) ([]stats.DailyCount, error) {
	query := `
		SELECT (created_at AT TIME ZONE 'UTC')::date AS day, count(*)
		FROM visits
		WHERE link_identifier = $1 AND created_at >= $2
		GROUP BY day
	`

	rows, err := p.pool.Query(ctx, query, identifier, since.UTC())
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.DailyCount, error) {
		var c stats.DailyCount

		err := row.Scan(&c.Date, &c.Count)

		return c, err
	})
}

func (p *PostgresStore) CountVisitsByCountry(ctx context.Context, identifier string) ([]stats.CountryCount, error) {
	query := `
		SELECT country, count(*)
		FROM visits
		WHERE link_identifier = $1 AND country <> ''
		GROUP BY country
	`

	rows, err := p.pool.Query(ctx, query, identifier)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.CountryCount, error) {
		var c stats.CountryCount

		err := row.Scan(&c.Country, &c.Count)

		return c, err
	})
}

// Ping checks database connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func scanLink(row pgx.Row) (*shortener.Link, error) {
	var link shortener.Link

	err := row.Scan(&link.Identifier, &link.CreatedAt, &link.URL.ID, &link.URL.Original)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return &link, nil
}

var (
	_ shortener.Repository = (*PostgresStore)(nil)
	_ analytics.Store      = (*PostgresStore)(nil)
	_ stats.Store          = (*PostgresStore)(nil)
)
