package geo_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/serroba/tinylink/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResolver struct {
	code  string
	err   error
	calls int
}

func (s *stubResolver) ResolveCountry(_ context.Context, _ string) (string, error) {
	s.calls++

	return s.code, s.err
}

func TestBreakerResolver(t *testing.T) {
	t.Run("passes through successful lookups", func(t *testing.T) {
		stub := &stubResolver{code: "DE"}
		resolver := geo.NewBreakerResolver(stub, geo.BreakerConfig{}, zap.NewNop())

		code, err := resolver.ResolveCountry(context.Background(), "1.2.3.4")

		require.NoError(t, err)
		assert.Equal(t, "DE", code)
		assert.Equal(t, "closed", resolver.State())
	})

	t.Run("opens after consecutive failures", func(t *testing.T) {
		stub := &stubResolver{err: fmt.Errorf("%w: upstream down", geo.ErrLookupFailed)}
		resolver := geo.NewBreakerResolver(stub, geo.BreakerConfig{
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
		}, zap.NewNop())

		for range 2 {
			_, err := resolver.ResolveCountry(context.Background(), "1.2.3.4")
			require.ErrorIs(t, err, geo.ErrLookupFailed)
		}

		_, err := resolver.ResolveCountry(context.Background(), "1.2.3.4")

		assert.ErrorIs(t, err, geo.ErrLookupFailed)
		assert.Equal(t, 2, stub.calls)
		assert.Equal(t, "open", resolver.State())
	})

	t.Run("invalid ip does not count as failure", func(t *testing.T) {
		stub := &stubResolver{code: "DE"}
		resolver := geo.NewBreakerResolver(stub, geo.BreakerConfig{FailureThreshold: 1}, zap.NewNop())

		_, err := resolver.ResolveCountry(context.Background(), "bogus")

		assert.ErrorIs(t, err, geo.ErrLookupFailed)
		assert.Zero(t, stub.calls)
		assert.Equal(t, "closed", resolver.State())
	})

	t.Run("unknown countries keep the breaker closed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.URL.Query().Get("ip")

			country := "XX"
			if ip == "8.8.8.8" {
				country = "US"
			}

			_, _ = fmt.Fprintf(w, hostIPBody, ip, country)
		}))
		defer srv.Close()

		resolver := geo.NewBreakerResolver(
			geo.NewHostIPResolver(geo.HostIPConfig{BaseURL: srv.URL}), geo.BreakerConfig{}, zap.NewNop(),
		)

		for range 5 {
			_, err := resolver.ResolveCountry(context.Background(), "10.0.0.1")
			require.ErrorIs(t, err, geo.ErrUnknownCountry)
		}

		code, err := resolver.ResolveCountry(context.Background(), "8.8.8.8")

		require.NoError(t, err)
		assert.Equal(t, "US", code)
		assert.Equal(t, "closed", resolver.State())
	})

	t.Run("open breaker reports a lookup failure, not an unknown country", func(t *testing.T) {
		stub := &stubResolver{err: fmt.Errorf("%w: upstream down", geo.ErrLookupFailed)}
		resolver := geo.NewBreakerResolver(stub, geo.BreakerConfig{FailureThreshold: 1}, zap.NewNop())

		_, _ = resolver.ResolveCountry(context.Background(), "1.2.3.4")
		_, err := resolver.ResolveCountry(context.Background(), "1.2.3.4")

		assert.ErrorIs(t, err, geo.ErrLookupFailed)
		assert.NotErrorIs(t, err, geo.ErrUnknownCountry)
		assert.Equal(t, 1, stub.calls)
	})
}
