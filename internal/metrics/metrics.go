// Package metrics exposes the Prometheus collectors describing the
// behaviour of the ingestion pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ytmeta"

// Metrics records ingestion activity. All methods are safe for concurrent use.
type Metrics struct {
	activeRuns      prometheus.Gauge
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	stageDuration   *prometheus.HistogramVec
	shardsTotal     *prometheus.CounterVec
	bytesTotal      *prometheus.CounterVec
	retriesTotal    prometheus.Counter
	recordsTotal    prometheus.Counter
	lastSuccessTime prometheus.Gauge
}

// New registers the ingestion collectors with the registerer provided. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		activeRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Number of ingestion runs currently in progress",
		}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of finished ingestion runs by outcome",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of ingestion runs by outcome",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		}, []string{"outcome"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each successful pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 18), // 10ms to ~43min
		}, []string{"stage"}),
		shardsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shards_total",
			Help:      "Total number of shards which completed a pipeline stage",
		}, []string{"stage"}),
		bytesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Total number of bytes written by a pipeline stage",
		}, []string{"stage"}),
		retriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shard_retries_total",
			Help:      "Total number of retried shard downloads",
		}),
		recordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Total number of records written to merged artifacts",
		}),
		lastSuccessTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful ingestion run",
		}),
	}
}

func (m *Metrics) RunStarted() { m.activeRuns.Inc() }

func (m *Metrics) RunFinished(outcome string, records int64, d time.Duration) {
	m.activeRuns.Dec()
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.WithLabelValues(outcome).Observe(d.Seconds())
	if records > 0 {
		m.recordsTotal.Add(float64(records))
	}
	if outcome == "DONE" {
		m.lastSuccessTime.SetToCurrentTime()
	}
}

func (m *Metrics) StageCompleted(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ShardCompleted(stage string, bytes int64) {
	m.shardsTotal.WithLabelValues(stage).Inc()
	if bytes > 0 {
		m.bytesTotal.WithLabelValues(stage).Add(float64(bytes))
	}
}

func (m *Metrics) ShardRetried() { m.retriesTotal.Inc() }
