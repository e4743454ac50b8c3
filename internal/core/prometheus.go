package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"custodycore/internal/aggregate"
	"custodycore/pkg/domain"
)

// PrometheusRecorder exposes service operation metrics and ledger aggregates
// through a prometheus registry. It fulfills MetricsRecorder and additionally
// carries gauges refreshed from aggregate summaries by the scheduler.
type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec

	occupancyRatio prometheus.Gauge
	occupancyBand  *prometheus.GaugeVec
	trackDepth     *prometheus.GaugeVec
	exitsTotal     *prometheus.GaugeVec
	animalsTotal   prometheus.Gauge
}

// NewPrometheusRecorder constructs a recorder and registers its collectors on
// the supplied registerer. Passing nil registers on the default registry.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "custodycore",
			Name:      "operations_total",
			Help:      "Service operations by name and outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "custodycore",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		occupancyRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "custodycore",
			Name:      "yard_occupancy_ratio",
			Help:      "Active animals over configured capacity.",
		}),
		occupancyBand: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "custodycore",
			Name:      "yard_occupancy_band",
			Help:      "1 for the current occupancy band, 0 otherwise.",
		}, []string{"band"}),
		trackDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "custodycore",
			Name:      "track_depth",
			Help:      "Active worklist entries per track.",
		}, []string{"track"}),
		exitsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "custodycore",
			Name:      "exits_total",
			Help:      "Exit ledger records by destination.",
		}, []string{"destination"}),
		animalsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "custodycore",
			Name:      "animals_total",
			Help:      "Entry ledger size including exited records.",
		}),
	}
	reg.MustRegister(r.operations, r.durations, r.occupancyRatio,
		r.occupancyBand, r.trackDepth, r.exitsTotal, r.animalsTotal)
	return r
}

// Observe implements MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateAggregates refreshes the ledger gauges from a freshly computed summary.
func (r *PrometheusRecorder) UpdateAggregates(summary aggregate.Summary) {
	r.animalsTotal.Set(float64(summary.TotalAnimals))
	r.occupancyRatio.Set(summary.Occupancy.Ratio)
	for _, band := range []aggregate.Band{aggregate.BandNormal, aggregate.BandAttention, aggregate.BandCritical} {
		val := 0.0
		if summary.Occupancy.Band == band {
			val = 1
		}
		r.occupancyBand.WithLabelValues(string(band)).Set(val)
	}
	for _, track := range domain.Tracks() {
		r.trackDepth.WithLabelValues(string(track)).Set(float64(summary.TrackDepth[track]))
	}
	for destination, count := range summary.ExitsByDestination {
		r.exitsTotal.WithLabelValues(string(destination)).Set(float64(count))
	}
}
