// Package diagnostics renders the capture core's state as a human-readable
// status report, for the CLI and for recovery snapshots.
package diagnostics

import (
	"fmt"
	"strings"
	"time"

	"github.com/thewriterben/wildcam-go/internal/camera"
	"github.com/thewriterben/wildcam-go/internal/motion"
	"github.com/thewriterben/wildcam-go/internal/power"
	"github.com/thewriterben/wildcam-go/internal/recovery"
)

// Snapshot aggregates the observable state of every component at one moment.
type Snapshot struct {
	At           time.Time
	Capture      camera.CaptureStatsSnapshot
	QueueLength  int
	QueueCap     int
	Outstanding  int
	Motion       motion.Stats
	Edge         motion.EdgeStats
	PowerState   power.State
	BatteryFrac  float64
	Deadline     time.Duration
	Recovery     recovery.State
	LastVerdict  *motion.Verdict
	ConfigPolicy motion.Policy
}

// String renders the snapshot as a multi-line status report.
func (s Snapshot) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "wildcam status @ %s\n", s.At.Format(time.RFC3339))
	fmt.Fprintf(&b, "  health: %s (consecutive failures %d, port reinits %d)\n",
		s.Recovery.Health, s.Recovery.ConsecutiveFailures, s.Recovery.PortReinits)
	fmt.Fprintf(&b, "  power: %s, battery %.0f%%, capture deadline %s\n",
		s.PowerState, s.BatteryFrac*100, s.Deadline)
	fmt.Fprintf(&b, "  capture: %d attempts, %d ok, %d failed, %d dropped\n",
		s.Capture.Attempts, s.Capture.Successes, s.Capture.Failures, s.Capture.Drops)
	if s.Capture.Successes > 0 {
		fmt.Fprintf(&b, "  latency: min %s avg %s max %s, avg frame %d bytes\n",
			s.Capture.MinLatency, s.Capture.AvgLatency, s.Capture.MaxLatency,
			s.Capture.AvgFrameBytes)
	}
	fmt.Fprintf(&b, "  queue: %d/%d, %d handles outstanding\n",
		s.QueueLength, s.QueueCap, s.Outstanding)
	fmt.Fprintf(&b, "  motion: policy %s, %d cycles, %d verdicts, %d filtered FP, %d sub-threshold, %d cooldown skips\n",
		s.ConfigPolicy, s.Motion.Cycles, s.Motion.Verdicts,
		s.Motion.FilteredFalsePositives, s.Motion.ThresholdRejections,
		s.Motion.CooldownSkips)
	fmt.Fprintf(&b, "  edge: %d signals, %d accepted, %d suppressed\n",
		s.Edge.Signals, s.Edge.Accepted, s.Edge.Suppressed)
	if s.LastVerdict != nil {
		fmt.Fprintf(&b, "  last verdict: triggered=%t confidence=%.3f policy=%s at %s\n",
			s.LastVerdict.Triggered, s.LastVerdict.Confidence,
			s.LastVerdict.Policy, s.LastVerdict.At.Format(time.RFC3339))
	}
	return b.String()
}
