// Package recovery escalates through an action ladder as consecutive capture
// failures accumulate. Every tier is best-effort: the manager reports what it
// did through diagnostic events and never fails loudly itself.
package recovery

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/thewriterben/wildcam-go/internal/errors"
	"github.com/thewriterben/wildcam-go/internal/logging"
	"github.com/thewriterben/wildcam-go/internal/observability"
)

// ComponentRecovery tags errors raised by this package.
const ComponentRecovery = "recovery"

// Health is the manager's view of the capture path.
type Health string

const (
	HealthHealthy         Health = "healthy"
	HealthDegraded        Health = "degraded"
	HealthCriticalFailure Health = "critical_failure"
)

// Tier identifies one rung of the escalation ladder.
type Tier int

const (
	TierNone Tier = iota
	TierSnapshot
	TierQueueRecovery
	TierSensorReconfig
	TierPortReinit
)

func (t Tier) String() string {
	switch t {
	case TierSnapshot:
		return "snapshot"
	case TierQueueRecovery:
		return "queue_recovery"
	case TierSensorReconfig:
		return "sensor_reconfig"
	case TierPortReinit:
		return "port_reinit"
	default:
		return "none"
	}
}

// Actions are the recovery hooks supplied by the capture pipeline. Each hook
// is optional; a missing hook turns its tier into a no-op.
type Actions struct {
	Snapshot          func() string
	RecreateQueue     func() int
	ReclaimBuffers    func() int
	ReconfigureSensor func() error
	ReinitializePort  func() error
}

// Config holds the escalation thresholds.
type Config struct {
	SensorResetThreshold int
	PortReinitThreshold  int
}

// Validate checks the threshold ordering.
func (c Config) Validate() error {
	if c.SensorResetThreshold <= 0 || c.PortReinitThreshold <= 0 {
		return errors.Newf("recovery thresholds must be positive, got %d/%d",
			c.SensorResetThreshold, c.PortReinitThreshold).
			Component(ComponentRecovery).
			Category(errors.CategoryValidation).
			Build()
	}
	if c.PortReinitThreshold <= c.SensorResetThreshold {
		return errors.Newf("port reinit threshold %d must exceed sensor reset threshold %d",
			c.PortReinitThreshold, c.SensorResetThreshold).
			Component(ComponentRecovery).
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// Event describes one recovery action, for diagnostics.
type Event struct {
	Tier     Tier
	Failures int
	Health   Health
	Detail   string
	At       time.Time
}

// State is a snapshot of the manager.
type State struct {
	Health              Health
	ConsecutiveFailures int
	PortReinits         uint64
	LastRecovery        time.Time
}

// Manager walks the recovery ladder. Driven only from the control loop.
type Manager struct {
	mu           sync.Mutex
	cfg          Config
	actions      Actions
	consecutive  int
	health       Health
	portReinits  uint64
	lastRecovery time.Time

	metrics *observability.RecoveryMetrics
	logger  *slog.Logger
	logRate *rate.Limiter
}

// ManagerOption configures optional manager collaborators.
type ManagerOption func(*Manager)

// WithMetrics attaches recovery metrics to the manager.
func WithMetrics(m *observability.RecoveryMetrics) ManagerOption {
	return func(mgr *Manager) { mgr.metrics = m }
}

// NewManager validates the thresholds and builds a manager.
func NewManager(cfg Config, actions Actions, opts ...ManagerOption) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.ForService(ComponentRecovery)
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:     cfg,
		actions: actions,
		health:  HealthHealthy,
		logger:  logger,
		// A persistently failing port produces one failure per cycle;
		// throttle the warn-level noise to a trickle.
		logRate: rate.NewLimiter(rate.Every(5*time.Second), 3),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// RecordSuccess resets the failure streak. One success is enough to return
// to HEALTHY from any state.
func (m *Manager) RecordSuccess() {
	m.mu.Lock()
	changed := m.consecutive != 0 || m.health != HealthHealthy
	m.consecutive = 0
	m.health = HealthHealthy
	m.mu.Unlock()

	m.metrics.SetConsecutiveFailures(0)
	if changed {
		m.logger.Info("capture path recovered, back to healthy")
	}
}

// RecordFailure bumps the failure streak and runs the matching ladder tier.
// It never returns an error; the outcome is reported in the event.
func (m *Manager) RecordFailure(now time.Time) Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutive++
	n := m.consecutive

	ev := Event{Failures: n, At: now}

	switch {
	case n > m.cfg.PortReinitThreshold:
		ev.Tier = TierPortReinit
		m.health = HealthCriticalFailure
		ev.Detail = m.runPortReinit()
		// Counter resets regardless of the reinit outcome so the ladder
		// cannot escalate forever.
		m.consecutive = 0
		ev.Failures = n
	case n > m.cfg.SensorResetThreshold:
		ev.Tier = TierSensorReconfig
		m.health = HealthDegraded
		ev.Detail = m.runSensorReconfig()
	case n == 1:
		ev.Tier = TierSnapshot
		m.health = HealthDegraded
		ev.Detail = m.runSnapshot()
	default:
		ev.Tier = TierQueueRecovery
		m.health = HealthDegraded
		ev.Detail = m.runQueueRecovery()
	}

	ev.Health = m.health
	m.lastRecovery = now

	m.metrics.SetConsecutiveFailures(m.consecutive)
	m.metrics.RecordAction(ev.Tier.String())

	if m.logRate.Allow() {
		m.logger.Warn("recovery action taken",
			"tier", ev.Tier.String(),
			"consecutive_failures", n,
			"health", string(m.health),
			"detail", ev.Detail)
	}
	return ev
}

func (m *Manager) runSnapshot() string {
	if m.actions.Snapshot == nil {
		return "no snapshot hook"
	}
	return m.actions.Snapshot()
}

func (m *Manager) runQueueRecovery() string {
	flushed, reclaimed := 0, 0
	if m.actions.RecreateQueue != nil {
		flushed = m.actions.RecreateQueue()
	}
	if m.actions.ReclaimBuffers != nil {
		reclaimed = m.actions.ReclaimBuffers()
	}
	return fmt.Sprintf("queue recreated, %d frames flushed, %d handles reclaimed", flushed, reclaimed)
}

func (m *Manager) runSensorReconfig() string {
	if m.actions.ReconfigureSensor == nil {
		return "no sensor hook"
	}
	if err := m.actions.ReconfigureSensor(); err != nil {
		return "sensor reconfiguration failed: " + err.Error()
	}
	return "sensor reconfigured"
}

func (m *Manager) runPortReinit() string {
	m.portReinits++
	m.metrics.RecordPortReinit()
	if m.actions.ReinitializePort == nil {
		return "no reinit hook"
	}
	if err := m.actions.ReinitializePort(); err != nil {
		return "port reinitialization failed: " + err.Error()
	}
	return "port reinitialized"
}

// CurrentState returns a snapshot of the manager.
func (m *Manager) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Health:              m.health,
		ConsecutiveFailures: m.consecutive,
		PortReinits:         m.portReinits,
		LastRecovery:        m.lastRecovery,
	}
}
