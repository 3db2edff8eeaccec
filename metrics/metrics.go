package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "immo"

// Scrape and pipeline metrics.
var (
	PagesFetchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total search result pages fetched",
		},
		[]string{"status"}, // "ok" / "error"
	)

	ListingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listings_total",
			Help:      "Listings seen by the normalizer",
		},
		[]string{"outcome"}, // "success" / "exchange" / "wbs"
	)

	NewListingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "new_listings_total",
			Help:      "Listings not present in the store before the run",
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by kind and result",
		},
		[]string{"kind", "status"},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by result",
		},
		[]string{"status"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run",
		},
	)
)

func init() {
	prometheus.MustRegister(
		PagesFetchedTotal,
		ListingsTotal,
		NewListingsTotal,
		NotificationsTotal,
		RunsTotal,
		RunDuration,
		LastRunTimestamp,
		httpRequestDuration,
		httpRequestsTotal,
	)
}

// Push sends the default registry to a Pushgateway under the given job.
// One-shot runs end before anything could scrape them.
func Push(ctx context.Context, url, job string) error {
	err := push.New(url, job).
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("metrics: push to %s: %w", url, err)
	}
	return nil
}
