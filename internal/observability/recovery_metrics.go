package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RecoveryMetrics contains Prometheus metrics for the failure recovery manager.
type RecoveryMetrics struct {
	recoveryActionsTotal     *prometheus.CounterVec
	consecutiveFailuresGauge prometheus.Gauge
	portReinitsTotal         prometheus.Counter
}

// NewRecoveryMetrics creates and registers recovery metrics.
func NewRecoveryMetrics(registry *prometheus.Registry) (*RecoveryMetrics, error) {
	m := &RecoveryMetrics{
		recoveryActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wildcam_recovery_actions_total",
			Help: "Recovery ladder actions by tier",
		}, []string{"tier"}),
		consecutiveFailuresGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wildcam_consecutive_capture_failures",
			Help: "Current consecutive capture failure count",
		}),
		portReinitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wildcam_port_reinits_total",
			Help: "Full hardware port reinitializations performed",
		}),
	}

	err := register(registry,
		m.recoveryActionsTotal, m.consecutiveFailuresGauge, m.portReinitsTotal)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAction counts one recovery action for the given tier. Nil-safe.
func (m *RecoveryMetrics) RecordAction(tier string) {
	if m == nil {
		return
	}
	m.recoveryActionsTotal.WithLabelValues(tier).Inc()
}

// SetConsecutiveFailures updates the failure streak gauge.
func (m *RecoveryMetrics) SetConsecutiveFailures(n int) {
	if m == nil {
		return
	}
	m.consecutiveFailuresGauge.Set(float64(n))
}

// RecordPortReinit counts a full hardware port reinitialization.
func (m *RecoveryMetrics) RecordPortReinit() {
	if m == nil {
		return
	}
	m.portReinitsTotal.Inc()
}
