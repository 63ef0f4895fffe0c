package shortener_test

import (
	"context"

	"github.com/serroba/tinylink/internal/shortener"
)

// mockRepo is a test double for shortener.Repository that can be configured to return errors.
type mockRepo struct {
	tx      *mockTx
	txErr   error
	txCalls int
}

func (m *mockRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx shortener.Tx) error) error {
	m.txCalls++

	if m.txErr != nil {
		return m.txErr
	}

	return fn(ctx, m.tx)
}

func (m *mockRepo) GetLink(_ context.Context, _ string) (*shortener.Link, error) {
	return nil, shortener.ErrNotFound
}

type mockTx struct {
	findErr       error
	existsErr     error
	createOrigErr error
	createLinkErr error
	nextID        int64
}

func (m *mockTx) FindLinkByOriginal(_ context.Context, _ string) (*shortener.Link, error) {
	return nil, m.findErr
}

func (m *mockTx) LinkExists(_ context.Context, _ string) (bool, error) {
	return false, m.existsErr
}

func (m *mockTx) CreateOriginalURL(_ context.Context, original string) (*shortener.OriginalURL, error) {
	if m.createOrigErr != nil {
		return nil, m.createOrigErr
	}

	m.nextID++

	return &shortener.OriginalURL{ID: m.nextID, Original: original}, nil
}

func (m *mockTx) CreateLink(_ context.Context, _ *shortener.Link) error {
	return m.createLinkErr
}
