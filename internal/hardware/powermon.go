package hardware

import (
	"sync"
	"time"

	"github.com/thewriterben/wildcam-go/internal/power"
)

// SimulatedPowerMonitor models a battery that drains while discharging and
// fills while charging, crossing every power state on the way.
type SimulatedPowerMonitor struct {
	mu        sync.Mutex
	fraction  float64
	charging  bool
	drainRate float64 // fraction lost per hour while discharging
	fillRate  float64 // fraction gained per hour while charging
	updatedAt time.Time
	now       func() time.Time
}

// NewSimulatedPowerMonitor starts the battery at the given fraction.
func NewSimulatedPowerMonitor(fraction float64) *SimulatedPowerMonitor {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return &SimulatedPowerMonitor{
		fraction:  fraction,
		drainRate: 0.04,
		fillRate:  0.25,
		updatedAt: time.Now(),
		now:       time.Now,
	}
}

// SetCharging toggles the solar input.
func (m *SimulatedPowerMonitor) SetCharging(on bool) {
	m.mu.Lock()
	m.advance()
	m.charging = on
	m.mu.Unlock()
}

// BatteryFraction returns the current charge in [0,1].
func (m *SimulatedPowerMonitor) BatteryFraction() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	return m.fraction
}

// CurrentPowerState derives the power state from charge and charging input.
// Thresholds follow the tiered capture timeouts: under 10% is critical,
// under 20% low, under 50% power save.
func (m *SimulatedPowerMonitor) CurrentPowerState() power.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()

	if m.charging {
		return power.StateCharging
	}
	switch {
	case m.fraction < 0.1:
		return power.StateCritical
	case m.fraction < 0.2:
		return power.StateLow
	case m.fraction < 0.5:
		return power.StatePowerSave
	default:
		return power.StateNormal
	}
}

// advance applies drain or fill for the elapsed wall time, under m.mu.
func (m *SimulatedPowerMonitor) advance() {
	now := m.now()
	hours := now.Sub(m.updatedAt).Hours()
	m.updatedAt = now
	if hours <= 0 {
		return
	}
	if m.charging {
		m.fraction += m.fillRate * hours
		if m.fraction > 1 {
			m.fraction = 1
		}
	} else {
		m.fraction -= m.drainRate * hours
		if m.fraction < 0 {
			m.fraction = 0
		}
	}
}
