package observability

import (
	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts registry requests by method, status code and registry kind.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ui5fw_http_requests_total",
			Help: "Total number of registry HTTP requests by method and status",
		},
		[]string{"method", "status_code", "registry"},
	)

	// HTTPRequestDuration tracks registry request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ui5fw_http_request_duration_seconds",
			Help:    "Registry HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
		},
		[]string{"method", "registry"},
	)

	// PackageInstallsTotal counts package installations by backend and outcome.
	PackageInstallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ui5fw_package_installs_total",
			Help: "Total number of package installations by backend and status",
		},
		[]string{"backend", "status"}, // installed, cached, failure
	)

	// MetadataCacheTotal counts Maven metadata lookups by cache outcome.
	MetadataCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ui5fw_metadata_cache_total",
			Help: "Maven metadata lookups by cache result",
		},
		[]string{"result"}, // hit, miss, forced, refreshed
	)

	// LockWaitDuration tracks how long callers waited for a named install lock.
	LockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ui5fw_lock_wait_seconds",
			Help:    "Time spent waiting for install locks",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
	)

	// StaleRevisionsEvicted counts stale snapshot revisions removed from disk.
	StaleRevisionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ui5fw_stale_revisions_evicted_total",
			Help: "Total number of stale snapshot revisions evicted",
		},
	)

	// LibrariesResolvedTotal counts processed libraries by outcome.
	LibrariesResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ui5fw_libraries_resolved_total",
			Help: "Total number of framework libraries processed by status",
		},
		[]string{"status"}, // success, failure
	)
)

// GetCounterValue retrieves the current value of a counter metric with the given labels
// This is primarily intended for testing
func GetCounterValue(counter *prometheus.CounterVec, labels ...string) (float64, error) {
	metric, err := counter.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0, err
	}

	var pb dto.Metric
	if err := metric.Write(&pb); err != nil {
		return 0, err
	}

	if pb.Counter != nil {
		return pb.Counter.GetValue(), nil
	}

	return 0, nil
}

// GetPlainCounterValue is GetCounterValue for counters without labels.
func GetPlainCounterValue(counter prometheus.Counter) float64 {
	var pb dto.Metric
	if err := counter.Write(&pb); err != nil || pb.Counter == nil {
		return 0
	}
	return pb.Counter.GetValue()
}
