package geo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig configures BreakerResolver.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	Interval         time.Duration
}

// BreakerResolver stops calling the wrapped resolver after repeated failures. ErrUnknownCountry
// answers count as successful calls.
type BreakerResolver struct {
	next    Resolver
	breaker *gobreaker.CircuitBreaker[string]
}

// NewBreakerResolver wraps next with a circuit breaker.
func NewBreakerResolver(next Resolver, cfg BreakerConfig, logger *zap.Logger) *BreakerResolver {
	if cfg.Name == "" {
		cfg.Name = "geo"
	}

	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUnknownCountry)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("geolocation circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerResolver{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

// ResolveCountry delegates to the wrapped resolver unless the breaker is open.
func (b *BreakerResolver) ResolveCountry(ctx context.Context, ip string) (string, error) {
	// Malformed input says nothing about upstream health.
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("%w: invalid ip address %q", ErrLookupFailed, ip)
	}

	code, err := b.breaker.Execute(func() (string, error) {
		return b.next.ResolveCountry(ctx, ip)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %w", ErrLookupFailed, err)
		}

		return "", err
	}

	return code, nil
}

// State returns the breaker state name.
func (b *BreakerResolver) State() string {
	return b.breaker.State().String()
}
