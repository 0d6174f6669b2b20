// Package metrics exposes Prometheus collectors for background work that the
// HTTP middleware cannot see.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quotesync"

// Cycle results recorded on the cycles counter.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// SyncMetrics records sync cycle outcomes.
type SyncMetrics struct {
	cycles     *prometheus.CounterVec
	duration   prometheus.Histogram
	conflicts  prometheus.Counter
	collection prometheus.Gauge
}

// NewSyncMetrics creates the collectors and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer so the collectors show up on /-/metrics.
func NewSyncMetrics(reg prometheus.Registerer) (*SyncMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var (
		m   SyncMetrics
		err error
	)

	m.cycles, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "cycles_total",
		Help:      "Sync cycles by result.",
	}, []string{"result"}))
	if err != nil {
		return nil, err
	}

	m.duration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of completed sync cycles.",
		Buckets:   prometheus.DefBuckets,
	}))
	if err != nil {
		return nil, err
	}

	m.conflicts, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "conflicts_total",
		Help:      "Local quotes replaced by a remote quote with the same text.",
	}))
	if err != nil {
		return nil, err
	}

	m.collection, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "collection_quotes",
		Help:      "Quotes in the local collection after the last persisted mutation.",
	}))
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	return c, fmt.Errorf("registering collector: %w", err)
}

// ObserveCycle counts a cycle. Skipped cycles carry no duration.
func (m *SyncMetrics) ObserveCycle(result string, d time.Duration) {
	m.cycles.WithLabelValues(result).Inc()

	if result != ResultSkipped {
		m.duration.Observe(d.Seconds())
	}
}

// ObserveConflicts adds n resolved conflicts.
func (m *SyncMetrics) ObserveConflicts(n int) {
	if n > 0 {
		m.conflicts.Add(float64(n))
	}
}

// ObserveCollectionSize records the current collection length.
func (m *SyncMetrics) ObserveCollectionSize(n int) {
	m.collection.Set(float64(n))
}
