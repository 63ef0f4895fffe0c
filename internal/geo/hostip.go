package geo

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const (
	DefaultHostIPURL = "http://api.hostip.info"
	DefaultTimeout   = 3 * time.Second

	// hostip answers "XX" when it does not know the country.
	unknownCountry = "XX"
	maxBodyBytes   = 64 << 10
)

// HostIPConfig configures HostIPResolver.
type HostIPConfig struct {
	BaseURL string
	Timeout time.Duration
	// RatePerSecond limits outbound requests. Zero disables limiting.
	RatePerSecond float64
	Burst         int
}

// HostIPResolver looks countries up through the hostip.info XML API.
type HostIPResolver struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
}

type hostIPResponse struct {
	CountryAbbrev string `xml:"featureMember>Hostip>countryAbbrev"`
}

// NewHostIPResolver creates a resolver. Empty fields fall back to the public service defaults.
func NewHostIPResolver(cfg HostIPConfig) *HostIPResolver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHostIPURL
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	r := &HostIPResolver{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
	}

	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}

		r.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return r
}

// ResolveCountry queries hostip for ip. Every failure wraps ErrLookupFailed; an answer without
// a usable country code wraps ErrUnknownCountry.
func (r *HostIPResolver) ResolveCountry(ctx context.Context, ip string) (string, error) {
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("%w: invalid ip address %q", ErrLookupFailed, ip)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limiter: %w", ErrLookupFailed, err)
		}
	}

	endpoint := fmt.Sprintf("%s/get_xml.php?ip=%s", r.baseURL, url.QueryEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", ErrLookupFailed, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: hostip returned status %d", ErrLookupFailed, resp.StatusCode)
	}

	decoder := xml.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	decoder.CharsetReader = charset.NewReaderLabel

	var body hostIPResponse
	if err := decoder.Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrLookupFailed, err)
	}

	code := strings.TrimSpace(body.CountryAbbrev)
	if code == unknownCountry || !ValidCountry(code) {
		return "", fmt.Errorf("%w: code %q for %s", ErrUnknownCountry, code, ip)
	}

	return code, nil
}
