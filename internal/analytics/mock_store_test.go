package analytics_test

import (
	"context"
	"errors"
	"sync"

	"github.com/serroba/tinylink/internal/analytics"
)

var errMock = errors.New("mock error")

// mockStore is a test double for analytics.Store that can be configured to return errors.
type mockStore struct {
	mu           sync.Mutex
	createErr    error
	setErr       error
	nextID       int64
	visits       []*analytics.Visit
	countries    map[int64]string
	setCountries int
}

func (m *mockStore) CreateVisit(_ context.Context, visit *analytics.Visit) error {
	if m.createErr != nil {
		return m.createErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	visit.ID = m.nextID
	m.visits = append(m.visits, visit)

	return nil
}

func (m *mockStore) SetVisitCountry(_ context.Context, visitID int64, country string) error {
	if m.setErr != nil {
		return m.setErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.countries == nil {
		m.countries = make(map[int64]string)
	}

	m.countries[visitID] = country
	m.setCountries++

	return nil
}
