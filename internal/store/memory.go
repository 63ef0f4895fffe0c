package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/serroba/tinylink/internal/analytics"
	"github.com/serroba/tinylink/internal/shortener"
	"github.com/serroba/tinylink/internal/stats"
)

// MemoryStore keeps links and visits in process memory. Transactions are serialised.
type MemoryStore struct {
	mu          sync.RWMutex
	urlSeq      int64
	originals   map[int64]shortener.OriginalURL
	links       map[string]*shortener.Link
	linkByURL   map[string]string // original -> identifier, linked originals only
	visitSeq    int64
	visitByID   map[int64]*analytics.Visit
	visitsByURL map[string][]*analytics.Visit
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		originals:   make(map[int64]shortener.OriginalURL),
		links:       make(map[string]*shortener.Link),
		linkByURL:   make(map[string]string),
		visitByID:   make(map[int64]*analytics.Visit),
		visitsByURL: make(map[string][]*analytics.Visit),
	}
}

// WithinTx runs fn under the store lock and applies its staged writes only when fn succeeds.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx shortener.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{store: m, urlSeq: m.urlSeq}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.urlSeq = tx.urlSeq

	for _, orig := range tx.originals {
		m.originals[orig.ID] = orig
	}

	for _, link := range tx.links {
		m.links[link.Identifier] = link

		if _, ok := m.linkByURL[link.URL.Original]; !ok {
			m.linkByURL[link.URL.Original] = link.Identifier
		}
	}

	return nil
}

// GetLink returns a copy of the link for identifier, or shortener.ErrNotFound.
func (m *MemoryStore) GetLink(_ context.Context, identifier string) (*shortener.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[identifier]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	clone := *link

	return &clone, nil
}

// memoryTx stages writes until the surrounding WithinTx commits.
type memoryTx struct {
	store     *MemoryStore
	urlSeq    int64
	originals []shortener.OriginalURL
	links     []*shortener.Link
}

func (t *memoryTx) FindLinkByOriginal(_ context.Context, original string) (*shortener.Link, error) {
	if id, ok := t.store.linkByURL[original]; ok {
		clone := *t.store.links[id]

		return &clone, nil
	}

	for _, link := range t.links {
		if link.URL.Original == original {
			clone := *link

			return &clone, nil
		}
	}

	return nil, shortener.ErrNotFound
}

func (t *memoryTx) LinkExists(_ context.Context, identifier string) (bool, error) {
	return t.exists(identifier), nil
}

func (t *memoryTx) exists(identifier string) bool {
	if _, ok := t.store.links[identifier]; ok {
		return true
	}

	for _, link := range t.links {
		if link.Identifier == identifier {
			return true
		}
	}

	return false
}

func (t *memoryTx) CreateOriginalURL(_ context.Context, original string) (*shortener.OriginalURL, error) {
	t.urlSeq++
	orig := shortener.OriginalURL{ID: t.urlSeq, Original: original}
	t.originals = append(t.originals, orig)

	return &orig, nil
}

func (t *memoryTx) CreateLink(_ context.Context, link *shortener.Link) error {
	if t.exists(link.Identifier) {
		return shortener.ErrLabelTaken
	}

	clone := *link
	t.links = append(t.links, &clone)

	return nil
}

// CreateVisit assigns the next visit id. The link must exist.
func (m *MemoryStore) CreateVisit(_ context.Context, visit *analytics.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[visit.LinkIdentifier]; !ok {
		return fmt.Errorf("visit for %q: %w", visit.LinkIdentifier, shortener.ErrNotFound)
	}

	m.visitSeq++
	visit.ID = m.visitSeq

	stored := *visit
	m.visitByID[stored.ID] = &stored
	m.visitsByURL[stored.LinkIdentifier] = append(m.visitsByURL[stored.LinkIdentifier], &stored)

	return nil
}

// SetVisitCountry records the resolved country of a visit.
func (m *MemoryStore) SetVisitCountry(_ context.Context, visitID int64, country string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	visit, ok := m.visitByID[visitID]
	if !ok {
		return fmt.Errorf("visit %d: %w", visitID, ErrVisitNotFound)
	}

	visit.Country = country

	return nil
}

// CountVisits returns the number of visits to identifier.
func (m *MemoryStore) CountVisits(_ context.Context, identifier string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.visitsByURL[identifier])), nil
}

// CountVisitsByDay groups visits on or after since by UTC date.
func (m *MemoryStore) CountVisitsByDay(_ context.Context, identifier string, since time.Time) ([]stats.DailyCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	since = since.UTC()
	buckets := make(map[time.Time]int64)

	for _, v := range m.visitsByURL[identifier] {
		created := v.CreatedAt.UTC()
		if created.Before(since) {
			continue
		}

		buckets[time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC)]++
	}

	counts := make([]stats.DailyCount, 0, len(buckets))
	for date, n := range buckets {
		counts = append(counts, stats.DailyCount{Date: date, Count: n})
	}

	return counts, nil
}

// CountVisitsByCountry groups visits with a known country.
func (m *MemoryStore) CountVisitsByCountry(_ context.Context, identifier string) ([]stats.CountryCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	buckets := make(map[string]int64)

	for _, v := range m.visitsByURL[identifier] {
		if v.Country == "" {
			continue
		}

		buckets[v.Country]++
	}

	counts := make([]stats.CountryCount, 0, len(buckets))
	for country, n := range buckets {
		counts = append(counts, stats.CountryCount{Country: country, Count: n})
	}

	return counts, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

var (
	_ shortener.Repository = (*MemoryStore)(nil)
	_ analytics.Store      = (*MemoryStore)(nil)
	_ stats.Store          = (*MemoryStore)(nil)
)
