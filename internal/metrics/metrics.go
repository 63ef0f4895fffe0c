// Package metrics exposes the Prometheus collectors shared by the link and analytics services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tinylink"

var (
	// LinksCreated counts persisted links by kind ("default" or "custom").
	LinksCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Number of links created, labelled by identifier kind",
		},
		[]string{"kind"},
	)

	// ShortenRejected counts shorten requests refused before a link was produced.
	ShortenRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shorten_rejected_total",
			Help:      "Number of shorten requests rejected, labelled by reason",
		},
		[]string{"reason"},
	)

	// IdentifierCollisions counts derived identifiers that had to be skipped.
	IdentifierCollisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identifier_collisions_total",
			Help:      "Number of derived identifiers skipped because they were taken or profane",
		},
		[]string{"cause"},
	)

	// VisitsRecorded counts persisted visits.
	VisitsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visits_recorded_total",
			Help:      "Number of visits persisted",
		},
	)

	// GeoLookups counts enrichment lookups by result ("ok" or "failed").
	GeoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geo_lookups_total",
			Help:      "Number of geolocation lookups, labelled by result",
		},
		[]string{"result"},
	)

	// GeoCacheHits counts country lookups answered from Redis, including negative entries.
	GeoCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geo_cache_hits_total",
			Help:      "Number of geolocation lookups answered from the cache",
		},
	)
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
