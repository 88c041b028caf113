package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CaptureMetrics contains Prometheus metrics for frame acquisition.
type CaptureMetrics struct {
	captureAttemptsTotal prometheus.Counter
	captureSuccessTotal  prometheus.Counter
	captureFailuresTotal *prometheus.CounterVec
	framesDroppedTotal   prometheus.Counter
	captureDuration      prometheus.Histogram
	frameBytes           prometheus.Histogram
	queueLengthGauge     prometheus.Gauge
	bufferCountGauge     prometheus.Gauge
}

// NewCaptureMetrics creates and registers capture metrics.
func NewCaptureMetrics(registry *prometheus.Registry) (*CaptureMetrics, error) {
	m := &CaptureMetrics{
		captureAttemptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wildcam_capture_attempts_total",
			Help: "Total number of capture attempts",
		}),
		captureSuccessTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wildcam_capture_success_total",
			Help: "Total number of successful captures",
		}),
		captureFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wildcam_capture_failures_total",
			Help: "Total number of failed captures by reason",
		}, []string{"reason"}),
		framesDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wildcam_frames_dropped_total",
			Help: "Frames dropped because the handoff queue was full",
		}),
		captureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wildcam_capture_duration_seconds",
			Help:    "Capture latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		frameBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wildcam_frame_bytes",
			Help:    "Captured frame size in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		queueLengthGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wildcam_handoff_queue_length",
			Help: "Current handoff queue length",
		}),
		bufferCountGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wildcam_frame_buffer_count",
			Help: "Configured frame buffer count",
		}),
	}

	err := register(registry,
		m.captureAttemptsTotal, m.captureSuccessTotal, m.captureFailuresTotal,
		m.framesDroppedTotal, m.captureDuration, m.frameBytes,
		m.queueLengthGauge, m.bufferCountGauge)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAttempt increments the capture attempt counter. Nil-safe.
func (m *CaptureMetrics) RecordAttempt() {
	if m == nil {
		return
	}
	m.captureAttemptsTotal.Inc()
}

// RecordSuccess records a successful capture with its latency and frame size.
func (m *CaptureMetrics) RecordSuccess(duration time.Duration, frameBytes int) {
	if m == nil {
		return
	}
	m.captureSuccessTotal.Inc()
	m.captureDuration.Observe(duration.Seconds())
	m.frameBytes.Observe(float64(frameBytes))
}

// RecordFailure records a failed capture with its reason label.
func (m *CaptureMetrics) RecordFailure(reason string) {
	if m == nil {
		return
	}
	m.captureFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordDrop records a frame dropped due to a full handoff queue.
func (m *CaptureMetrics) RecordDrop() {
	if m == nil {
		return
	}
	m.framesDroppedTotal.Inc()
}

// SetQueueLength updates the handoff queue length gauge.
func (m *CaptureMetrics) SetQueueLength(n int) {
	if m == nil {
		return
	}
	m.queueLengthGauge.Set(float64(n))
}

// SetBufferCount updates the configured buffer count gauge.
func (m *CaptureMetrics) SetBufferCount(n int) {
	if m == nil {
		return
	}
	m.bufferCountGauge.Set(float64(n))
}
