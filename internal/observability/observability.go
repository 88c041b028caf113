// Package observability provides Prometheus metrics for the camera core.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thewriterben/wildcam-go/internal/errors"
)

// Metrics aggregates all metric collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Capture  *CaptureMetrics
	Motion   *MotionMetrics
	Power    *PowerMetrics
	Recovery *RecoveryMetrics
}

// NewMetrics creates and registers every collector on a fresh registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	capture, err := NewCaptureMetrics(registry)
	if err != nil {
		return nil, err
	}
	motion, err := NewMotionMetrics(registry)
	if err != nil {
		return nil, err
	}
	power, err := NewPowerMetrics(registry)
	if err != nil {
		return nil, err
	}
	recovery, err := NewRecoveryMetrics(registry)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		registry: registry,
		Capture:  capture,
		Motion:   motion,
		Power:    power,
		Recovery: recovery,
	}, nil
}

// CaptureMetrics returns the capture collectors. Nil-safe.
func (m *Metrics) CaptureMetrics() *CaptureMetrics {
	if m == nil {
		return nil
	}
	return m.Capture
}

// MotionMetrics returns the motion collectors. Nil-safe.
func (m *Metrics) MotionMetrics() *MotionMetrics {
	if m == nil {
		return nil
	}
	return m.Motion
}

// PowerMetrics returns the power collectors. Nil-safe.
func (m *Metrics) PowerMetrics() *PowerMetrics {
	if m == nil {
		return nil
	}
	return m.Power
}

// RecoveryMetrics returns the recovery collectors. Nil-safe.
func (m *Metrics) RecoveryMetrics() *RecoveryMetrics {
	if m == nil {
		return nil
	}
	return m.Recovery
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve blocks serving the metrics endpoint on the given address.
func (m *Metrics) Serve(listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:         listen,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		return errors.Wrap(err).
			Component("observability").
			Category(errors.CategoryGeneric).
			Context("listen", listen).
			Build()
	}
	return nil
}

func register(registry *prometheus.Registry, cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := registry.Register(c); err != nil {
			return errors.Wrap(err).
				Component("observability").
				Category(errors.CategoryState).
				Context("operation", "register_collector").
				Build()
		}
	}
	return nil
}
