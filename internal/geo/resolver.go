// Package geo resolves visitor IP addresses to ISO 3166-1 alpha-2 country codes.
package geo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrLookupFailed wraps every reason a country could not be determined.
	ErrLookupFailed = errors.New("geolocation lookup failed")
	// ErrUnknownCountry is a definitive answer from a reachable service that has no country for the IP.
	ErrUnknownCountry = fmt.Errorf("%w: country unknown", ErrLookupFailed)
)

// Resolver maps an IP address to a two-letter upper-case country code.
type Resolver interface {
	ResolveCountry(ctx context.Context, ip string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, ip string) (string, error)

// ResolveCountry calls f.
func (f ResolverFunc) ResolveCountry(ctx context.Context, ip string) (string, error) {
	return f(ctx, ip)
}

var countryCode = regexp.MustCompile(`^[A-Z]{2}$`)

// ValidCountry reports whether code looks like an alpha-2 country code.
func ValidCountry(code string) bool {
	return countryCode.MatchString(code)
}
