package motion

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/thewriterben/wildcam-go/internal/errors"
)

// ComponentMotion tags errors raised by this package.
const ComponentMotion = "motion"

// EdgeTrigger is the debounced binary motion signal. Signal is safe to call
// from interrupt context; Poll runs on the control loop.
type EdgeTrigger struct {
	flag atomic.Bool

	signals    atomic.Uint64
	suppressed atomic.Uint64
	accepted   atomic.Uint64

	mu         sync.Mutex
	debounce   time.Duration
	required   int
	streak     int
	lastAccept time.Time
}

// EdgeStats is a snapshot of trigger activity counters.
type EdgeStats struct {
	Signals    uint64
	Accepted   uint64
	Suppressed uint64
}

// NewEdgeTrigger builds a trigger with the given debounce window and
// sensitivity in [0,1]. Lower sensitivity demands more consecutive debounced
// signals before the trigger reports.
func NewEdgeTrigger(debounce time.Duration, sensitivity float64) (*EdgeTrigger, error) {
	if debounce < 0 {
		return nil, errors.Newf("debounce must be non-negative, got %v", debounce).
			Component(ComponentMotion).
			Category(errors.CategoryValidation).
			Build()
	}
	if sensitivity < 0 || sensitivity > 1 {
		return nil, errors.Newf("edge sensitivity %.2f out of range [0,1]", sensitivity).
			Component(ComponentMotion).
			Category(errors.CategoryValidation).
			Build()
	}
	return &EdgeTrigger{
		debounce: debounce,
		required: confirmationsFor(sensitivity),
	}, nil
}

// confirmationsFor maps sensitivity to the consecutive-signal count needed
// before the trigger reports: >=0.5 needs one, mid-range two, low three.
func confirmationsFor(sensitivity float64) int {
	switch {
	case sensitivity >= 0.5:
		return 1
	case sensitivity >= 0.25:
		return 2
	default:
		return 3
	}
}

// Signal records a hardware edge. Only an atomic flag set happens here;
// debouncing and everything heavier waits for the next Poll.
func (e *EdgeTrigger) Signal() {
	e.signals.Add(1)
	e.flag.Store(true)
}

// Poll consumes a pending signal, applying debounce and the consecutive
// confirmation requirement. Returns true when the trigger fires.
func (e *EdgeTrigger) Poll(now time.Time) bool {
	if !e.flag.CompareAndSwap(true, false) {
		e.mu.Lock()
		e.streak = 0
		e.mu.Unlock()
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lastAccept.IsZero() && now.Sub(e.lastAccept) < e.debounce {
		e.suppressed.Add(1)
		return false
	}

	e.lastAccept = now
	e.streak++
	if e.streak < e.required {
		return false
	}
	e.streak = 0
	e.accepted.Add(1)
	return true
}

// SetSensitivity retunes the confirmation requirement. Out-of-range values
// are ignored; an in-progress streak is kept.
func (e *EdgeTrigger) SetSensitivity(sensitivity float64) {
	if sensitivity < 0 || sensitivity > 1 {
		return
	}
	e.mu.Lock()
	e.required = confirmationsFor(sensitivity)
	e.mu.Unlock()
}

// Pending reports whether a signal has arrived since the last Poll.
func (e *EdgeTrigger) Pending() bool {
	return e.flag.Load()
}

// Stats returns a snapshot of the trigger counters.
func (e *EdgeTrigger) Stats() EdgeStats {
	return EdgeStats{
		Signals:    e.signals.Load(),
		Accepted:   e.accepted.Load(),
		Suppressed: e.suppressed.Load(),
	}
}
