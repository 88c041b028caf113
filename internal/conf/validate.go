// validate.go: configuration invariant checks.
package conf

import (
	"github.com/thewriterben/wildcam-go/internal/errors"
)

// Recognized fusion policy names.
var validPolicies = map[string]bool{
	"edge_only":       true,
	"difference_only": true,
	"both_required":   true,
	"either_suffices": true,
	"adaptive":        true,
}

// ValidateSettings checks every configuration invariant. It returns the first
// violation found; callers must discard the candidate settings on error so the
// prior configuration stays in effect.
func ValidateSettings(s *Settings) error {
	if err := validateCapture(&s.Capture); err != nil {
		return err
	}
	if err := ValidateFusion(&s.Fusion); err != nil {
		return err
	}
	if err := validateRecovery(&s.Recovery); err != nil {
		return err
	}
	if s.Node.Latitude < -90 || s.Node.Latitude > 90 {
		return errors.Newf("node latitude %f out of range [-90,90]", s.Node.Latitude).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if s.Node.Longitude < -180 || s.Node.Longitude > 180 {
		return errors.Newf("node longitude %f out of range [-180,180]", s.Node.Longitude).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func validateCapture(c *CaptureSettings) error {
	if c.DeadlineMs <= 0 {
		return errors.Newf("capture deadline must be positive, got %d ms", c.DeadlineMs).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("setting", "capture.deadlinems").
			Build()
	}
	if c.QueueSize < 0 {
		return errors.Newf("capture queue size must not be negative, got %d", c.QueueSize).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("setting", "capture.queuesize").
			Build()
	}
	return nil
}

// ValidateFusion checks the motion fusion invariants. It is exported because
// runtime fusion-config updates reuse it before swapping in a new config.
func ValidateFusion(f *FusionSettings) error {
	if !validPolicies[f.Policy] {
		return errors.Newf("unknown fusion policy %q", f.Policy).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("setting", "fusion.policy").
			Build()
	}
	if f.CooldownMs < 0 {
		return errors.Newf("fusion cooldown must not be negative, got %d ms", f.CooldownMs).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("setting", "fusion.cooldownms").
			Build()
	}
	if f.ConfidenceThreshold < 0 || f.ConfidenceThreshold > 1 {
		return errors.Newf("confidence threshold %f out of range [0,1]", f.ConfidenceThreshold).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("setting", "fusion.confidencethreshold").
			Build()
	}
	if f.EdgeSensitivity < 0 || f.EdgeSensitivity > 1 {
		return errors.Newf("edge sensitivity %f out of range [0,1]", f.EdgeSensitivity).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("setting", "fusion.edgesensitivity").
			Build()
	}
	if f.DiffSensitivity < 0 || f.DiffSensitivity > 1 {
		return errors.Newf("difference sensitivity %f out of range [0,1]", f.DiffSensitivity).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("setting", "fusion.diffsensitivity").
			Build()
	}
	if f.MinMotionBlocks < 0 {
		return errors.Newf("minimum motion blocks must not be negative, got %d", f.MinMotionBlocks).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("setting", "fusion.minmotionblocks").
			Build()
	}
	return nil
}

func validateRecovery(r *RecoverySettings) error {
	if r.SensorResetThreshold <= 0 || r.PortReinitThreshold <= 0 {
		return errors.Newf("recovery thresholds must be positive, got %d/%d",
			r.SensorResetThreshold, r.PortReinitThreshold).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if r.PortReinitThreshold <= r.SensorResetThreshold {
		return errors.Newf("port reinit threshold %d must exceed sensor reset threshold %d",
			r.PortReinitThreshold, r.SensorResetThreshold).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}
