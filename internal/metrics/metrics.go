// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llegapo_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llegapo_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// ScrapesTotal counts pipeline runs. result is "success", "cached" or an
	// error kind such as "launch" or "navigation".
	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llegapo_scrapes_total",
			Help: "Total number of scrape runs by source and result.",
		},
		[]string{"source", "result"},
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llegapo_scrape_duration_seconds",
			Help:    "Duration of scrape runs, browser launch included.",
			Buckets: []float64{1, 2.5, 5, 10, 15, 30, 60},
		},
		[]string{"source"},
	)

	RecordsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llegapo_records_extracted_total",
			Help: "Records emitted by the extractors.",
		},
		[]string{"source"},
	)

	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llegapo_records_dropped_total",
			Help: "Candidates discarded for missing fields.",
		},
		[]string{"source"},
	)

	BrowsersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "llegapo_browsers_active",
			Help: "Browser sessions currently open.",
		},
	)

	CleanupErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llegapo_cleanup_errors_total",
			Help: "Browser teardown failures.",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llegapo_cache_lookups_total",
			Help: "Result cache lookups by outcome.",
		},
		[]string{"source", "outcome"},
	)
)
