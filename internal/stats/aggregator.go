// Package stats turns raw visits into per-day and per-country series and chart URLs.
package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidDays is returned for a negative day window.
var ErrInvalidDays = errors.New("number of days must not be negative")

const dateKey = "2006-01-02"

// DailyCount is the number of visits on one UTC calendar date. Date is midnight UTC.
type DailyCount struct {
	Date  time.Time
	Count int64
}

// CountryCount is the number of visits from one country.
type CountryCount struct {
	Country string
	Count   int64
}

// Store reads visit aggregates.
type Store interface {
	// CountVisitsByDay returns counts for UTC dates on or after since. Dates without visits may be omitted.
	CountVisitsByDay(ctx context.Context, identifier string, since time.Time) ([]DailyCount, error)
	// CountVisitsByCountry returns counts for visits with a known country.
	CountVisitsByCountry(ctx context.Context, identifier string) ([]CountryCount, error)
	CountVisits(ctx context.Context, identifier string) (int64, error)
}

// Aggregator builds visit series for a link.
type Aggregator struct {
	store Store
	now   func() time.Time
}

// NewAggregator creates an aggregator reading from store.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// WithClock returns a copy of a using now as its time source.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	clone := *a
	clone.now = now

	return &clone
}

// DailyCounts returns numDays+1 entries, today first, one per consecutive UTC date, with
// zero for dates without visits.
func (a *Aggregator) DailyCounts(ctx context.Context, identifier string, numDays int) ([]DailyCount, error) {
	if numDays < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDays, numDays)
	}

	today := truncateDay(a.now())
	since := today.AddDate(0, 0, -numDays)

	counts, err := a.store.CountVisitsByDay(ctx, identifier, since)
	if err != nil {
		return nil, fmt.Errorf("count visits by day: %w", err)
	}

	byDate := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDate[c.Date.UTC().Format(dateKey)] += c.Count
	}

	series := make([]DailyCount, 0, numDays+1)
	for i := 0; i <= numDays; i++ {
		day := today.AddDate(0, 0, -i)
		series = append(series, DailyCount{Date: day, Count: byDate[day.Format(dateKey)]})
	}

	return series, nil
}

// CountryCounts returns one entry per known country, largest first, ties by country code.
func (a *Aggregator) CountryCounts(ctx context.Context, identifier string) ([]CountryCount, error) {
	counts, err := a.store.CountVisitsByCountry(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("count visits by country: %w", err)
	}

	series := make([]CountryCount, 0, len(counts))
	for _, c := range counts {
		if c.Country == "" || c.Count <= 0 {
			continue
		}

		series = append(series, c)
	}

	sort.Slice(series, func(i, j int) bool {
		if series[i].Count != series[j].Count {
			return series[i].Count > series[j].Count
		}

		return series[i].Country < series[j].Country
	})

	return series, nil
}

// TotalVisits returns the number of visits regardless of country.
func (a *Aggregator) TotalVisits(ctx context.Context, identifier string) (int64, error) {
	total, err := a.store.CountVisits(ctx, identifier)
	if err != nil {
		return 0, fmt.Errorf("count visits: %w", err)
	}

	return total, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
