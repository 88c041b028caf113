package motion

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/thewriterben/wildcam-go/internal/errors"
	"github.com/thewriterben/wildcam-go/internal/logging"
	"github.com/thewriterben/wildcam-go/internal/observability"
)

// Policy selects how edge and frame-difference signals are combined.
type Policy string

const (
	PolicyEdgeOnly       Policy = "edge_only"
	PolicyDifferenceOnly Policy = "difference_only"
	PolicyBothRequired   Policy = "both_required"
	PolicyEitherSuffices Policy = "either_suffices"
	PolicyAdaptive       Policy = "adaptive"
)

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyEdgeOnly:
		return PolicyEdgeOnly, nil
	case PolicyDifferenceOnly:
		return PolicyDifferenceOnly, nil
	case PolicyBothRequired:
		return PolicyBothRequired, nil
	case PolicyEitherSuffices:
		return PolicyEitherSuffices, nil
	case PolicyAdaptive:
		return PolicyAdaptive, nil
	default:
		return "", errors.Newf("unknown fusion policy %q", s).
			Component(ComponentMotion).
			Category(errors.CategoryValidation).
			Build()
	}
}

func (p Policy) String() string { return string(p) }

// Fusion weights and the edge trigger's fixed confidence.
const (
	edgeConfidence = 0.8
	edgeWeight     = 0.6
	diffWeight     = 0.4
	agreementBoost = 1.2
)

// False-positive filter thresholds.
const (
	filterMinConfidence  = 0.3
	filterSoloConfidence = 0.6
	filterDiffScore      = 0.2
)

// Config is the active fusion configuration. Mutated only through
// Engine.UpdateConfig; read by every detection cycle.
type Config struct {
	Policy              Policy
	EdgeSensitivity     float64
	DiffSensitivity     float64
	Cooldown            time.Duration
	ConfidenceThreshold float64
	FalsePositiveFilter bool
	MinMotionBlocks     int
}

// Validate checks every Config invariant.
func (c Config) Validate() error {
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	if c.Cooldown < 0 {
		return errors.Newf("cooldown must be non-negative, got %v", c.Cooldown).
			Component(ComponentMotion).
			Category(errors.CategoryValidation).
			Build()
	}
	for name, v := range map[string]float64{
		"edge sensitivity":     c.EdgeSensitivity,
		"diff sensitivity":     c.DiffSensitivity,
		"confidence threshold": c.ConfidenceThreshold,
	} {
		if v < 0 || v > 1 {
			return errors.Newf("%s %.2f out of range [0,1]", name, v).
				Component(ComponentMotion).
				Category(errors.CategoryValidation).
				Build()
		}
	}
	if c.MinMotionBlocks < 0 {
		return errors.Newf("minimum motion blocks must be non-negative, got %d", c.MinMotionBlocks).
			Component(ComponentMotion).
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// Inputs carries one cycle's detection signals into the engine.
type Inputs struct {
	EdgeTriggered bool
	DiffMotion    bool
	DiffScore     float64
	DiffBlocks    int
}

// Verdict is the immutable outcome of one detection cycle.
type Verdict struct {
	Triggered      bool
	EdgeConfidence float64
	DiffConfidence float64
	Confidence     float64
	Policy         Policy // resolved policy, never ADAPTIVE
	Filtered       bool   // rejected by the false-positive filter
	BelowThreshold bool   // combined confidence under the threshold gate
	Cooldown       bool   // cycle skipped inside the refractory window
	At             time.Time
}

// Daylight answers whether a moment falls in low-light hours, for the
// ADAPTIVE policy.
type Daylight interface {
	IsLowLight(t time.Time) bool
}

// Stats accumulates per-cycle counters; filtered false positives and
// sub-threshold rejections are tracked separately.
type Stats struct {
	Cycles                 uint64
	Verdicts               uint64
	FilteredFalsePositives uint64
	ThresholdRejections    uint64
	CooldownSkips          uint64
	AvgConfidence          float64
}

// Engine fuses edge and frame-difference signals into motion verdicts.
type Engine struct {
	mu            sync.Mutex
	cfg           Config
	lastTrigger   time.Time
	cycles        uint64
	verdicts      uint64
	filtered      uint64
	rejected      uint64
	cooldownSkips uint64
	confidenceSum float64

	daylight Daylight
	metrics  *observability.MotionMetrics
	logger   *slog.Logger
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithDaylight provides the low-light oracle used by the ADAPTIVE policy.
// Without it, ADAPTIVE always resolves to EITHER_SUFFICES.
func WithDaylight(d Daylight) EngineOption {
	return func(e *Engine) { e.daylight = d }
}

// WithMetrics attaches motion metrics to the engine.
func WithMetrics(m *observability.MotionMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine validates the config and builds a fusion engine.
func NewEngine(cfg Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.ForService(ComponentMotion)
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// UpdateConfig swaps in a new configuration after validating it. A rejected
// update leaves the active configuration untouched.
func (e *Engine) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	e.logger.Info("fusion configuration updated",
		"policy", cfg.Policy.String(),
		"cooldown_ms", cfg.Cooldown.Milliseconds(),
		"confidence_threshold", cfg.ConfidenceThreshold)
	return nil
}

// ConfigSnapshot returns a copy of the active configuration.
func (e *Engine) ConfigSnapshot() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Evaluate runs one detection cycle. Inside the cooldown window every input
// is ignored and the cycle returns immediately untriggered.
func (e *Engine) Evaluate(now time.Time, in Inputs) Verdict {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cycles++
	e.metrics.RecordCycle()

	cfg := e.cfg
	v := Verdict{At: now}

	if !e.lastTrigger.IsZero() && now.Sub(e.lastTrigger) < cfg.Cooldown {
		v.Cooldown = true
		e.cooldownSkips++
		e.metrics.RecordCooldownSkip()
		return v
	}

	v.Policy = e.resolvePolicy(cfg.Policy, now)

	if in.EdgeTriggered {
		v.EdgeConfidence = edgeConfidence
	}
	if in.DiffMotion {
		v.DiffConfidence = in.DiffScore
	}

	switch v.Policy {
	case PolicyEdgeOnly:
		v.Triggered = in.EdgeTriggered
		v.Confidence = v.EdgeConfidence
	case PolicyDifferenceOnly:
		v.Triggered = in.DiffMotion
		v.Confidence = in.DiffScore
	case PolicyBothRequired:
		v.Triggered = in.EdgeTriggered && in.DiffMotion
		v.Confidence = combineConfidence(v.EdgeConfidence, v.DiffConfidence)
	case PolicyEitherSuffices:
		v.Triggered = in.EdgeTriggered || in.DiffMotion
		v.Confidence = max(v.EdgeConfidence*edgeWeight, v.DiffConfidence*diffWeight)
	}

	if v.Confidence < cfg.ConfidenceThreshold {
		v.BelowThreshold = true
		if v.Triggered {
			v.Triggered = false
			e.rejected++
			e.metrics.RecordThresholdRejection()
		}
	}

	if v.Triggered && cfg.FalsePositiveFilter && !passesFalsePositiveFilter(in, v.Confidence, cfg.MinMotionBlocks) {
		v.Triggered = false
		v.Filtered = true
		e.filtered++
		e.metrics.RecordFilteredFalsePositive()
		e.logger.Debug("verdict filtered as false positive",
			"confidence", v.Confidence,
			"diff_blocks", in.DiffBlocks,
			"diff_score", in.DiffScore)
	}

	e.metrics.ObserveConfidence(v.Confidence)

	if v.Triggered {
		e.lastTrigger = now
		e.verdicts++
		e.confidenceSum += v.Confidence
		e.metrics.RecordVerdict(v.Policy.String())
		e.logger.Info("motion detected",
			"policy", v.Policy.String(),
			"confidence", v.Confidence,
			"edge", in.EdgeTriggered,
			"difference", in.DiffMotion)
	}
	return v
}

// resolvePolicy maps ADAPTIVE onto a concrete policy for this cycle.
func (e *Engine) resolvePolicy(p Policy, now time.Time) Policy {
	if p != PolicyAdaptive {
		return p
	}
	if e.daylight != nil && e.daylight.IsLowLight(now) {
		return PolicyEdgeOnly
	}
	return PolicyEitherSuffices
}

// combineConfidence merges the two source confidences: agreement earns the
// boosted weighted sum, a lone source keeps its weighted contribution.
func combineConfidence(edgeConf, diffConf float64) float64 {
	if edgeConf > 0 && diffConf > 0 {
		return min(1.0, (edgeConf*edgeWeight+diffConf*diffWeight)*agreementBoost)
	}
	return max(edgeConf*edgeWeight, diffConf*diffWeight)
}

// passesFalsePositiveFilter applies the ordered acceptance rules.
func passesFalsePositiveFilter(in Inputs, confidence float64, minBlocks int) bool {
	if confidence < filterMinConfidence {
		return false
	}
	if in.EdgeTriggered && in.DiffMotion {
		return true
	}
	if in.DiffMotion {
		if in.DiffBlocks > minBlocks && in.DiffScore > filterDiffScore {
			return true
		}
		// A sparse difference-only detection falls through to the
		// confidence requirement below.
	}
	if in.EdgeTriggered {
		return true
	}
	return confidence > filterSoloConfidence
}

// ResetStats zeroes the cycle counters. The cooldown window is untouched.
func (e *Engine) ResetStats() {
	e.mu.Lock()
	e.cycles, e.verdicts, e.filtered, e.rejected, e.cooldownSkips = 0, 0, 0, 0, 0
	e.confidenceSum = 0
	e.mu.Unlock()
}

// Stats returns a snapshot of the cycle counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Stats{
		Cycles:                 e.cycles,
		Verdicts:               e.verdicts,
		FilteredFalsePositives: e.filtered,
		ThresholdRejections:    e.rejected,
		CooldownSkips:          e.cooldownSkips,
	}
	if e.verdicts > 0 {
		s.AvgConfidence = e.confidenceSum / float64(e.verdicts)
	}
	return s
}
