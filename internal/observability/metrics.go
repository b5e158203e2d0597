package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the bot.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec // labels: job={daily,roulette}, outcome={success,skipped,error}
	RunDuration      *prometheus.HistogramVec
	LastRunTimestamp prometheus.Gauge

	// Ingest metrics.
	RecordsFetched  prometheus.Counter
	RecordsInserted prometheus.Counter
	RecordsUpdated  prometheus.Counter
	FetchErrors     prometheus.Counter

	// Publishing metrics.
	PostsPublished prometheus.Counter
	PostErrors     prometheus.Counter

	// Geocoding metrics for the roulette posts.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}

	// Firehose metrics.
	FirehoseMessages prometheus.Counter
	FirehoseErrors   prometheus.Counter
}

// NewMetrics creates and registers all bot metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "digbot",
			Name:      "runs_total",
			Help:      "Scheduled job executions by job and outcome.",
		}, []string{"job", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "digbot",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete job run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"job"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "digbot",
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix time of the last successful daily run.",
		}),
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "digbot",
			Name:      "records_fetched_total",
			Help:      "Total dig tickets fetched from the data portal.",
		}),
		RecordsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "digbot",
			Name:      "records_inserted_total",
			Help:      "Total new dig tickets inserted into the store.",
		}),
		RecordsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "digbot",
			Name:      "records_updated_total",
			Help:      "Total existing dig tickets overwritten by a fetch.",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "digbot",
			Name:      "fetch_errors_total",
			Help:      "Total data portal fetch failures after retries.",
		}),
		PostsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "digbot",
			Name:      "posts_published_total",
			Help:      "Total posts published to Bluesky.",
		}),
		PostErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "digbot",
			Name:      "post_errors_total",
			Help:      "Total Bluesky publishing failures.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "digbot",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		FirehoseMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "digbot",
			Name:      "firehose_messages_total",
			Help:      "Total new tickets published to the Kafka firehose.",
		}),
		FirehoseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "digbot",
			Name:      "firehose_errors_total",
			Help:      "Total Kafka firehose write failures.",
		}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.LastRunTimestamp,
		m.RecordsFetched,
		m.RecordsInserted,
		m.RecordsUpdated,
		m.FetchErrors,
		m.PostsPublished,
		m.PostErrors,
		m.GeocodeRequests,
		m.FirehoseMessages,
		m.FirehoseErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsTotal:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "digbot", Name: "runs_total"}, []string{"job", "outcome"}),
		RunDuration:      prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "digbot", Name: "run_duration_seconds"}, []string{"job"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "digbot", Name: "last_successful_run_timestamp_seconds"}),
		RecordsFetched:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "digbot", Name: "records_fetched_total"}),
		RecordsInserted:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "digbot", Name: "records_inserted_total"}),
		RecordsUpdated:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "digbot", Name: "records_updated_total"}),
		FetchErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "digbot", Name: "fetch_errors_total"}),
		PostsPublished:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "digbot", Name: "posts_published_total"}),
		PostErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "digbot", Name: "post_errors_total"}),
		GeocodeRequests:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "digbot", Name: "geocode_requests_total"}, []string{"outcome"}),
		FirehoseMessages: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "digbot", Name: "firehose_messages_total"}),
		FirehoseErrors:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "digbot", Name: "firehose_errors_total"}),
	}
}
