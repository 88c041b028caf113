package camera

import (
	"github.com/thewriterben/wildcam-go/internal/errors"
)

// Component identifier for camera errors
const ComponentCamera = "camera"

var (
	// ErrCaptureTimeout is returned when the port does not produce a frame
	// within the per-capture deadline. Recoverable, retried on next trigger.
	ErrCaptureTimeout = errors.New(errors.NewStd("frame capture deadline exceeded")).
		Component(ComponentCamera).
		Category(errors.CategoryTimeout).
		Context("operation", "capture").
		Build()

	// ErrQueueFull is returned when a successfully captured frame is dropped
	// because no consumer drained the handoff queue in time. A dropped-frame
	// event, not a hardware fault.
	ErrQueueFull = errors.New(errors.NewStd("handoff queue full")).
		Component(ComponentCamera).
		Category(errors.CategoryLimit).
		Context("resource", "handoff_queue").
		Build()

	// ErrQueueEmpty is returned by GetNextFrame when no frame is waiting.
	ErrQueueEmpty = errors.New(errors.NewStd("handoff queue empty")).
		Component(ComponentCamera).
		Category(errors.CategoryState).
		Context("resource", "handoff_queue").
		Build()

	// ErrHardwareFailure is returned when the capture port reports a fault.
	// Escalates through the failure recovery ladder.
	ErrHardwareFailure = errors.New(errors.NewStd("capture port hardware fault")).
		Component(ComponentCamera).
		Category(errors.CategoryHardware).
		Context("operation", "capture").
		Build()
)
