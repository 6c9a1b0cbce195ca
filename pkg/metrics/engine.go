package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Kheopsian/Seederr/pkg/engine"
)

// engineMetrics is the Prometheus implementation of engine.CycleMetrics.
type engineMetrics struct {
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	operations    *prometheus.CounterVec
	movedBytes    *prometheus.CounterVec
	tierPayloads  *prometheus.GaugeVec
	tierBytes     *prometheus.GaugeVec
	cacheCapacity prometheus.Gauge
	cacheUsed     prometheus.Gauge
}

// NewEngineMetrics creates a Prometheus-backed engine.CycleMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called). The
// orchestrator treats a nil CycleMetrics as a no-op.
func NewEngineMetrics() engine.CycleMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &engineMetrics{
		cycles: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "seederr_cycles_total",
				Help: "Total number of rebalance cycles by result",
			},
			[]string{"result"}, // "ok", "empty", "fetch_failed"
		),
		cycleDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "seederr_cycle_duration_seconds",
				Help: "Duration of rebalance cycles in seconds",
				Buckets: []float64{
					0.1,  // evaluate-only cycles
					1,    // small swarms
					10,   // typical cycle with a move
					60,   // 1m
					300,  // 5m - large payload copy
					1800, // 30m
					3600, // 1h
				},
			},
		),
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "seederr_operations_total",
				Help: "Total relocation operations by kind and final status",
			},
			[]string{"kind", "status"},
		),
		movedBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "seederr_moved_bytes_total",
				Help: "Total payload bytes relocated by operation kind",
			},
			[]string{"kind"},
		),
		tierPayloads: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "seederr_payloads",
				Help: "Number of payloads currently placed per tier",
			},
			[]string{"tier"},
		),
		tierBytes: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "seederr_tier_bytes",
				Help: "Payload bytes currently placed per tier",
			},
			[]string{"tier"},
		),
		cacheCapacity: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "seederr_cache_capacity_bytes",
				Help: "Total capacity of the cache tier volume",
			},
		),
		cacheUsed: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "seederr_cache_used_bytes",
				Help: "Used bytes on the cache tier volume",
			},
		),
	}
}

func (m *engineMetrics) ObserveCycle(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

func (m *engineMetrics) ObserveOperation(kind, status string, bytes int64) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(kind, status).Inc()
	if status == string(engine.StatusCompleted) && bytes > 0 {
		m.movedBytes.WithLabelValues(kind).Add(float64(bytes))
	}
}

func (m *engineMetrics) SetTierStats(tier string, payloads int, bytes uint64) {
	if m == nil {
		return
	}
	m.tierPayloads.WithLabelValues(tier).Set(float64(payloads))
	m.tierBytes.WithLabelValues(tier).Set(float64(bytes))
}

func (m *engineMetrics) SetCacheUsage(capacity, used uint64) {
	if m == nil {
		return
	}
	m.cacheCapacity.Set(float64(capacity))
	m.cacheUsed.Set(float64(used))
}
