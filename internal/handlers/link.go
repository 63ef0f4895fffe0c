package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/tinylink/internal/analytics"
	"github.com/serroba/tinylink/internal/shortener"
	"github.com/serroba/tinylink/internal/stats"
	"go.uber.org/zap"
)

// LinkHandler handles shortening, redirects and link statistics.
type LinkHandler struct {
	allocator  *shortener.Allocator
	recorder   *analytics.Recorder
	aggregator *stats.Aggregator
	charts     *stats.ChartRenderer
	baseURL    string
	logger     *zap.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(
	allocator *shortener.Allocator,
	recorder *analytics.Recorder,
	aggregator *stats.Aggregator,
	charts *stats.ChartRenderer,
	baseURL string,
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		allocator:  allocator,
		recorder:   recorder,
		aggregator: aggregator,
		charts:     charts,
		baseURL:    baseURL,
		logger:     logger,
	}
}

func (h *LinkHandler) Shorten(ctx context.Context, req *ShortenRequest) (*ShortenResponse, error) {
	link, err := h.allocator.Shorten(ctx, req.Body.URL, req.Body.Custom)
	if err != nil {
		switch {
		case errors.Is(err, shortener.ErrInvalidURL):
			return nil, huma.Error422UnprocessableEntity("url must be an absolute http or https URL")
		case errors.Is(err, shortener.ErrLabelTaken):
			return nil, huma.Error409Conflict(fmt.Sprintf("custom label %q is already taken", req.Body.Custom))
		case errors.Is(err, shortener.ErrLabelForbidden):
			return nil, huma.Error422UnprocessableEntity(fmt.Sprintf("custom label %q is not allowed", req.Body.Custom))
		default:
			return nil, huma.Error500InternalServerError("failed to shorten url")
		}
	}

	shortURL := h.shortURL(link.Identifier)

	resp := &ShortenResponse{}
	resp.Headers.Location = shortURL
	resp.Body.Identifier = link.Identifier
	resp.Body.ShortURL = shortURL
	resp.Body.InfoURL = fmt.Sprintf("%s/info/%s", h.baseURL, link.Identifier)
	resp.Body.OriginalURL = link.URL.Original

	return resp, nil
}

func (h *LinkHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	link, err := h.resolve(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}

	meta := RequestMetaFromContext(ctx)

	if _, err := h.recorder.RecordVisit(ctx, link, meta.ClientIP); err != nil {
		h.logger.Error("failed to record visit",
			zap.String("identifier", link.Identifier),
			zap.String("request_id", meta.RequestID),
			zap.Error(err),
		)
	}

	resp := &RedirectResponse{Status: http.StatusMovedPermanently}
	resp.Headers.Location = link.URL.Original

	return resp, nil
}

func (h *LinkHandler) Info(ctx context.Context, req *InfoRequest) (*InfoResponse, error) {
	link, err := h.resolve(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}

	daily, err := h.aggregator.DailyCounts(ctx, link.Identifier, req.Days)
	if err != nil {
		if errors.Is(err, stats.ErrInvalidDays) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		return nil, h.internal("failed to count daily visits", link.Identifier, err)
	}

	countries, err := h.aggregator.CountryCounts(ctx, link.Identifier)
	if err != nil {
		return nil, h.internal("failed to count visits by country", link.Identifier, err)
	}

	total, err := h.aggregator.TotalVisits(ctx, link.Identifier)
	if err != nil {
		return nil, h.internal("failed to count visits", link.Identifier, err)
	}

	region := stats.ParseRegion(req.Region)
	countryChart := h.charts.RenderCountryChart(countries, region)

	resp := &InfoResponse{}
	resp.Body.Identifier = link.Identifier
	resp.Body.ShortURL = h.shortURL(link.Identifier)
	resp.Body.OriginalURL = link.URL.Original
	resp.Body.CreatedAt = link.CreatedAt
	resp.Body.TotalVisits = total
	resp.Body.Days = req.Days
	resp.Body.Region = string(region)
	resp.Body.Charts = Charts{
		Daily:      h.charts.RenderDailyChart(daily),
		CountryMap: countryChart.Map,
		CountryBar: countryChart.Bar,
	}

	resp.Body.Daily = make([]DailyPoint, len(daily))
	for i, d := range daily {
		resp.Body.Daily[i] = DailyPoint{Date: d.Date.Format("2006-01-02"), Count: d.Count}
	}

	known := int64(0)
	resp.Body.Countries = make([]CountryPoint, len(countries))

	for i, c := range countries {
		resp.Body.Countries[i] = CountryPoint{Country: c.Country, Count: c.Count}
		known += c.Count
	}

	resp.Body.UnknownCountryVisits = max(total-known, 0)

	return resp, nil
}

func (h *LinkHandler) resolve(ctx context.Context, identifier string) (*shortener.Link, error) {
	link, err := h.allocator.Resolve(ctx, identifier)
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			return nil, huma.Error404NotFound("short url not found")
		}

		return nil, h.internal("failed to get link", identifier, err)
	}

	return link, nil
}

func (h *LinkHandler) internal(msg, identifier string, err error) error {
	h.logger.Error(msg, zap.String("identifier", identifier), zap.Error(err))

	return huma.Error500InternalServerError(msg)
}

func (h *LinkHandler) shortURL(identifier string) string {
	return fmt.Sprintf("%s/%s", h.baseURL, identifier)
}
