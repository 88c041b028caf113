// Package power maps the battery/solar monitor's power state onto capture
// tuning recommendations. Evaluate is a pure mapping; applying the
// recommendation is the control loop's job.
package power

import (
	"strings"
	"time"

	"github.com/thewriterben/wildcam-go/internal/camera"
	"github.com/thewriterben/wildcam-go/internal/errors"
)

// ComponentPower tags errors raised by this package.
const ComponentPower = "power"

// State is the power state reported by the external monitor.
type State string

const (
	StateNormal    State = "normal"
	StatePowerSave State = "power_save"
	StateLow       State = "low"
	StateCritical  State = "critical"
	StateCharging  State = "charging"
)

// AllStates lists every state, for gauge labeling.
func AllStates() []string {
	return []string{
		string(StateNormal),
		string(StatePowerSave),
		string(StateLow),
		string(StateCritical),
		string(StateCharging),
	}
}

// ParseState converts a monitor-reported string into a State.
func ParseState(s string) (State, error) {
	switch State(strings.ToLower(strings.TrimSpace(s))) {
	case StateNormal:
		return StateNormal, nil
	case StatePowerSave:
		return StatePowerSave, nil
	case StateLow:
		return StateLow, nil
	case StateCritical:
		return StateCritical, nil
	case StateCharging:
		return StateCharging, nil
	default:
		return "", errors.Newf("unknown power state %q", s).
			Component(ComponentPower).
			Category(errors.CategoryValidation).
			Build()
	}
}

func (s State) String() string { return string(s) }

// Monitor is the external battery/solar monitor.
type Monitor interface {
	CurrentPowerState() State
	BatteryFraction() float64
}

// Recommendation is the tuning output for one control cycle.
type Recommendation struct {
	State            State
	Gain             camera.GainProfile
	BufferCount      int
	CaptureDeadline  time.Duration
	SensitivityDelta float64
	FrameSize        camera.FrameSize
	ForceFrameSize   bool
}

// Per-state capture deadlines. Saver states reduce the deadline
// monotonically down to the critical floor.
const (
	deadlineNormal    = 5 * time.Second
	deadlinePowerSave = 4 * time.Second
	deadlineLow       = 3 * time.Second
	deadlineCritical  = 2 * time.Second
)

// Evaluate maps a power state onto a recommendation. Unknown states fall
// back to the NORMAL profile.
func Evaluate(state State) Recommendation {
	switch state {
	case StatePowerSave:
		return Recommendation{
			State: state,
			Gain: camera.GainProfile{
				Brightness: -1, Contrast: -1, AELevel: -1, GainCeiling: 16,
			},
			BufferCount:      1,
			CaptureDeadline:  deadlinePowerSave,
			SensitivityDelta: -0.1,
		}
	case StateLow:
		return Recommendation{
			State: state,
			Gain: camera.GainProfile{
				Brightness: -2, Contrast: -2, AELevel: -2, GainCeiling: 32,
			},
			BufferCount:      1,
			CaptureDeadline:  deadlineLow,
			SensitivityDelta: -0.2,
		}
	case StateCritical:
		return Recommendation{
			State: state,
			Gain: camera.GainProfile{
				Brightness: -2, Contrast: -2, AELevel: -2, GainCeiling: 64,
			},
			BufferCount:      1,
			CaptureDeadline:  deadlineCritical,
			SensitivityDelta: -0.3,
			FrameSize:        camera.SmallestFrameSize,
			ForceFrameSize:   true,
		}
	case StateCharging:
		return Recommendation{
			State: state,
			Gain: camera.GainProfile{
				Brightness: 1, Contrast: 1, AELevel: 1, GainCeiling: 2,
			},
			BufferCount:      3,
			CaptureDeadline:  deadlineNormal,
			SensitivityDelta: 0.1,
		}
	default:
		return Recommendation{
			State:           StateNormal,
			Gain:            camera.GainProfile{GainCeiling: 2},
			BufferCount:     3,
			CaptureDeadline: deadlineNormal,
		}
	}
}

// ApplyDelta shifts a sensitivity by the recommendation delta, clamped to [0,1].
func ApplyDelta(sensitivity, delta float64) float64 {
	v := sensitivity + delta
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
