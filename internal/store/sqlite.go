package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/tinylink/internal/analytics"
	"github.com/serroba/tinylink/internal/shortener"
	"github.com/serroba/tinylink/internal/stats"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type originalURLRecord struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	Original string `gorm:"not null;index"`
}

func (originalURLRecord) TableName() string { return "original_urls" }

type linkRecord struct {
	Identifier    string    `gorm:"primaryKey"`
	CreatedAt     time.Time `gorm:"not null"`
	OriginalURLID int64     `gorm:"not null;index"`
	OriginalURL   originalURLRecord
}

func (linkRecord) TableName() string { return "links" }

type visitRecord struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt      time.Time `gorm:"not null;index:idx_visits_link_created,priority:2"`
	IP             string    `gorm:"not null"`
	Country        string    `gorm:"not null;default:''"`
	LinkIdentifier string    `gorm:"not null;index:idx_visits_link_created,priority:1"`
	Link           linkRecord `gorm:"foreignKey:LinkIdentifier;references:Identifier"`
}

func (visitRecord) TableName() string { return "visits" }

// linkRow is the result of joining links with their original url.
type linkRow struct {
	Identifier string
	CreatedAt  time.Time
	ID         int64
	Original   string
}

func (r linkRow) toLink() *shortener.Link {
	return &shortener.Link{
		Identifier: r.Identifier,
		CreatedAt:  r.CreatedAt.UTC(),
		URL:        shortener.OriginalURL{ID: r.ID, Original: r.Original},
	}
}

const linkColumns = "links.identifier, links.created_at, original_urls.id, original_urls.original"

// SQLiteStore is a gorm/SQLite implementation of the link, visit and stats stores.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates its schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database with path %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}

	// SQLite allows one writer; a single connection keeps transactions serialised.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&originalURLRecord{}, &linkRecord{}, &visitRecord{}); err != nil {
		return nil, fmt.Errorf("migrating sql: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx shortener.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &sqliteTx{db: tx})
	})
}

func (s *SQLiteStore) GetLink(ctx context.Context, identifier string) (*shortener.Link, error) {
	var row linkRow

	res := s.db.WithContext(ctx).
		Table("links").
		Select(linkColumns).
		Joins("JOIN original_urls ON original_urls.id = links.original_url_id").
		Where("links.identifier = ?", identifier).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		return nil, shortener.ErrNotFound
	}

	return row.toLink(), nil
}

type sqliteTx struct {
	db *gorm.DB
}

func (t *sqliteTx) FindLinkByOriginal(ctx context.Context, original string) (*shortener.Link, error) {
	var row linkRow

	res := t.db.WithContext(ctx).
		Table("original_urls").
		Select(linkColumns).
		Joins("JOIN links ON links.original_url_id = original_urls.id").
		Where("original_urls.original = ?", original).
		Order("original_urls.id").
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		return nil, shortener.ErrNotFound
	}

	return row.toLink(), nil
}

func (t *sqliteTx) LinkExists(ctx context.Context, identifier string) (bool, error) {
	var count int64

	err := t.db.WithContext(ctx).Model(&linkRecord{}).Where("identifier = ?", identifier).Count(&count).Error

	return count > 0, err
}

func (t *sqliteTx) CreateOriginalURL(ctx context.Context, original string) (*shortener.OriginalURL, error) {
	rec := originalURLRecord{Original: original}

	if err := t.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, err
	}

	return &shortener.OriginalURL{ID: rec.ID, Original: rec.Original}, nil
}

func (t *sqliteTx) CreateLink(ctx context.Context, link *shortener.Link) error {
	rec := linkRecord{
		Identifier:    link.Identifier,
		CreatedAt:     link.CreatedAt.UTC(),
		OriginalURLID: link.URL.ID,
	}

	res := t.db.WithContext(ctx).Omit("OriginalURL").Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return shortener.ErrLabelTaken
		}

		return res.Error
	}

	if res.RowsAffected == 0 {
		return shortener.ErrLabelTaken
	}

	return nil
}

func (s *SQLiteStore) CreateVisit(ctx context.Context, visit *analytics.Visit) error {
	rec := visitRecord{
		CreatedAt:      visit.CreatedAt.UTC(),
		IP:             visit.IP,
		Country:        visit.Country,
		LinkIdentifier: visit.LinkIdentifier,
	}

	if err := s.db.WithContext(ctx).Omit("Link").Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("visit for %q: %w", visit.LinkIdentifier, shortener.ErrNotFound)
		}

		return err
	}

	visit.ID = rec.ID

	return nil
}

func (s *SQLiteStore) SetVisitCountry(ctx context.Context, visitID int64, country string) error {
	res := s.db.WithContext(ctx).Model(&visitRecord{}).Where("id = ?", visitID).Update("country", country)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return fmt.Errorf("visit %d: %w", visitID, ErrVisitNotFound)
	}

	return nil
}

func (s *SQLiteStore) CountVisits(ctx context.Context, identifier string) (int64, error) {
	var total int64

	err := s.db.WithContext(ctx).Model(&visitRecord{}).Where("link_identifier = ?", identifier).Count(&total).Error

	return total, err
}

// CountVisitsByDay buckets in Go because the driver stores timestamps as text.
func (s *SQLiteStore) CountVisitsByDay(ctx context.Context, identifier string, since time.Time) ([]stats.DailyCount, error) {
	var stamps []time.Time

	err := s.db.WithContext(ctx).
		Model(&visitRecord{}).
		Where("link_identifier = ? AND created_at >= ?", identifier, since.UTC()).
		Pluck("created_at", &stamps).Error
	if err != nil {
		return nil, err
	}

	buckets := make(map[time.Time]int64)

	for _, ts := range stamps {
		ts = ts.UTC()
		buckets[time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)]++
	}

	counts := make([]stats.DailyCount, 0, len(buckets))
	for date, n := range buckets {
		counts = append(counts, stats.DailyCount{Date: date, Count: n})
	}

	return counts, nil
}

func (s *SQLiteStore) CountVisitsByCountry(ctx context.Context, identifier string) ([]stats.CountryCount, error) {
	var counts []stats.CountryCount

	err := s.db.WithContext(ctx).
		Model(&visitRecord{}).
		Select("country, count(*) AS count").
		Where("link_identifier = ? AND country <> ''", identifier).
		Group("country").
		Scan(&counts).Error

	return counts, err
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

var (
	_ shortener.Repository = (*SQLiteStore)(nil)
	_ analytics.Store      = (*SQLiteStore)(nil)
	_ stats.Store          = (*SQLiteStore)(nil)
)
