// Package metrics provides Prometheus metrics for the dataset loaders.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// No cardinality explosion: labels carry dataset type or backend names only,
// never record indices or request IDs.

var (
	// RecordsLoaded counts samples that entered a dataset, by dataset type.
	RecordsLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomtune_records_loaded_total",
		Help: "Total number of structure samples loaded, by dataset type.",
	}, []string{"type"})

	// RecordsFiltered counts samples dropped by a filter, by dataset type.
	RecordsFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomtune_records_filtered_total",
		Help: "Total number of structure samples dropped by filters, by dataset type.",
	}, []string{"type"})

	// FetchErrors counts remote fetch failures, by source.
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomtune_fetch_errors_total",
		Help: "Total number of remote fetch failures, by source.",
	}, []string{"source"})

	// FetchRetries counts remote fetch retries, by source.
	FetchRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomtune_fetch_retries_total",
		Help: "Total number of remote fetch retries, by source.",
	}, []string{"source"})

	// CacheHits counts record cache hits, by backend.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomtune_cache_hits_total",
		Help: "Total number of record cache hits, by backend.",
	}, []string{"backend"})

	// CacheMisses counts record cache misses, by backend.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atomtune_cache_misses_total",
		Help: "Total number of record cache misses, by backend.",
	}, []string{"backend"})

	// FetchDuration observes remote request latency, by source.
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atomtune_fetch_duration_seconds",
		Help:    "Latency of remote dataset requests, by source.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
)
