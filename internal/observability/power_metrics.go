package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PowerMetrics contains Prometheus metrics for the power-adaptive controller.
type PowerMetrics struct {
	powerStateGauge      *prometheus.GaugeVec
	batteryFractionGauge prometheus.Gauge
	captureDeadlineGauge prometheus.Gauge
	adaptationsTotal     *prometheus.CounterVec
}

// NewPowerMetrics creates and registers power metrics.
func NewPowerMetrics(registry *prometheus.Registry) (*PowerMetrics, error) {
	m := &PowerMetrics{
		powerStateGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wildcam_power_state",
			Help: "Current power state (1 for the active state, 0 otherwise)",
		}, []string{"state"}),
		batteryFractionGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wildcam_battery_fraction",
			Help: "Battery charge fraction 0-1",
		}),
		captureDeadlineGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wildcam_capture_deadline_seconds",
			Help: "Currently applied per-capture deadline",
		}),
		adaptationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wildcam_power_adaptations_total",
			Help: "Power adaptation passes by resulting state",
		}, []string{"state"}),
	}

	err := register(registry,
		m.powerStateGauge, m.batteryFractionGauge,
		m.captureDeadlineGauge, m.adaptationsTotal)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SetState marks the given power state as active. Nil-safe.
func (m *PowerMetrics) SetState(state string, allStates []string) {
	if m == nil {
		return
	}
	for _, s := range allStates {
		v := 0.0
		if s == state {
			v = 1.0
		}
		m.powerStateGauge.WithLabelValues(s).Set(v)
	}
	m.adaptationsTotal.WithLabelValues(state).Inc()
}

// SetBatteryFraction updates the battery gauge.
func (m *PowerMetrics) SetBatteryFraction(fraction float64) {
	if m == nil {
		return
	}
	m.batteryFractionGauge.Set(fraction)
}

// SetCaptureDeadline updates the applied deadline gauge.
func (m *PowerMetrics) SetCaptureDeadline(d time.Duration) {
	if m == nil {
		return
	}
	m.captureDeadlineGauge.Set(d.Seconds())
}
