package camera

import (
	"context"
	"time"

	"github.com/thewriterben/wildcam-go/internal/errors"
)

// SelfTestResult reports the outcome of one end-to-end capture check.
type SelfTestResult struct {
	Passed      bool
	Latency     time.Duration
	FrameBytes  int
	Width       int
	Height      int
	QueueLength int
	Detail      string
}

// SelfTest captures a single frame end to end, validates it and releases it.
// It exercises the full path: port acquire, deadline, ledger, queue, release.
func (p *Pipeline) SelfTest(ctx context.Context) (SelfTestResult, error) {
	start := time.Now()

	if err := p.Capture(ctx); err != nil {
		return SelfTestResult{Detail: "capture failed"}, err
	}

	handle, err := p.GetNextFrame()
	if err != nil {
		return SelfTestResult{Detail: "captured frame missing from queue"}, errors.Wrap(err).
			Component(ComponentCamera).
			Category(errors.CategoryState).
			Context("operation", "self_test").
			Build()
	}

	result := SelfTestResult{
		Latency:     time.Since(start),
		FrameBytes:  handle.Len(),
		Width:       handle.Width,
		Height:      handle.Height,
		QueueLength: p.QueueLen(),
	}

	releaseErr := p.ReleaseFrame(handle)

	if result.FrameBytes == 0 || result.Width <= 0 || result.Height <= 0 {
		result.Detail = "frame payload invalid"
		return result, errors.Newf("self test frame invalid: %d bytes, %dx%d",
			result.FrameBytes, result.Width, result.Height).
			Component(ComponentCamera).
			Category(errors.CategoryHardware).
			Build()
	}
	if releaseErr != nil {
		result.Detail = "frame release failed"
		return result, releaseErr
	}

	result.Passed = true
	result.Detail = "ok"
	p.logger.Info("self test passed",
		"latency_ms", result.Latency.Milliseconds(),
		"bytes", result.FrameBytes)
	return result, nil
}
