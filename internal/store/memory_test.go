package store_test

import (
	"testing"

	"github.com/serroba/tinylink/internal/store"
)

func TestMemoryStore(t *testing.T) {
	runBackendSuite(t, func(_ *testing.T) backend {
		return store.NewMemoryStore()
	})
}
