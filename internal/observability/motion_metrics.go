package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MotionMetrics contains Prometheus metrics for the motion fusion engine.
type MotionMetrics struct {
	detectionCyclesTotal    prometheus.Counter
	verdictsTotal           *prometheus.CounterVec
	filteredFalsePositives  prometheus.Counter
	thresholdRejections     prometheus.Counter
	cooldownSkipsTotal      prometheus.Counter
	combinedConfidenceHist  prometheus.Histogram
}

// NewMotionMetrics creates and registers motion metrics.
func NewMotionMetrics(registry *prometheus.Registry) (*MotionMetrics, error) {
	m := &MotionMetrics{
		detectionCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wildcam_detection_cycles_total",
			Help: "Total number of detection cycles run",
		}),
		verdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wildcam_motion_verdicts_total",
			Help: "Positive motion verdicts by fusion policy",
		}, []string{"policy"}),
		filteredFalsePositives: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wildcam_filtered_false_positives_total",
			Help: "Detections rejected by the false-positive filter",
		}),
		thresholdRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wildcam_threshold_rejections_total",
			Help: "Detections rejected for sub-threshold confidence",
		}),
		cooldownSkipsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wildcam_cooldown_skips_total",
			Help: "Detection cycles skipped during cooldown",
		}),
		combinedConfidenceHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wildcam_combined_confidence",
			Help:    "Combined motion confidence per evaluated cycle",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}

	err := register(registry,
		m.detectionCyclesTotal, m.verdictsTotal, m.filteredFalsePositives,
		m.thresholdRejections, m.cooldownSkipsTotal, m.combinedConfidenceHist)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordCycle counts one detection cycle. Nil-safe.
func (m *MotionMetrics) RecordCycle() {
	if m == nil {
		return
	}
	m.detectionCyclesTotal.Inc()
}

// RecordVerdict counts one positive verdict for the given policy.
func (m *MotionMetrics) RecordVerdict(policy string) {
	if m == nil {
		return
	}
	m.verdictsTotal.WithLabelValues(policy).Inc()
}

// RecordFilteredFalsePositive counts a filter rejection.
func (m *MotionMetrics) RecordFilteredFalsePositive() {
	if m == nil {
		return
	}
	m.filteredFalsePositives.Inc()
}

// RecordThresholdRejection counts a sub-threshold rejection.
func (m *MotionMetrics) RecordThresholdRejection() {
	if m == nil {
		return
	}
	m.thresholdRejections.Inc()
}

// RecordCooldownSkip counts a cycle ignored during cooldown.
func (m *MotionMetrics) RecordCooldownSkip() {
	if m == nil {
		return
	}
	m.cooldownSkipsTotal.Inc()
}

// ObserveConfidence records the combined confidence of an evaluated cycle.
func (m *MotionMetrics) ObserveConfidence(confidence float64) {
	if m == nil {
		return
	}
	m.combinedConfidenceHist.Observe(confidence)
}
