package camera

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thewriterben/wildcam-go/internal/errors"
	"github.com/thewriterben/wildcam-go/internal/framepool"
	"github.com/thewriterben/wildcam-go/internal/logging"
	"github.com/thewriterben/wildcam-go/internal/observability"
)

// Pipeline drives the capture port and owns the bounded handoff queue.
type Pipeline struct {
	port    CapturePort
	tracker *framepool.Tracker
	stats   *CaptureStats
	metrics *observability.CaptureMetrics
	logger  *slog.Logger

	mu        sync.Mutex
	queue     chan *FrameHandle
	queueSize int
	nextSize  int // applied at the next reinitialization boundary
	placement framepool.MemoryClass

	deadline atomicDuration
}

// atomicDuration stores a duration behind a lock-free atomic int64.
type atomicDuration struct {
	v atomic.Int64
}

func (a *atomicDuration) store(d time.Duration) { a.v.Store(int64(d)) }
func (a *atomicDuration) load() time.Duration   { return time.Duration(a.v.Load()) }

// PipelineOption configures optional pipeline collaborators.
type PipelineOption func(*Pipeline)

// WithMetrics attaches capture metrics to the pipeline.
func WithMetrics(m *observability.CaptureMetrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger overrides the pipeline logger, mainly for tests.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithMemoryClass sets the memory class stamped on frames whose port does not
// report a placement, from the buffer pool's location decision.
func WithMemoryClass(class framepool.MemoryClass) PipelineOption {
	return func(p *Pipeline) {
		if class != "" {
			p.placement = class
		}
	}
}

// NewPipeline creates a pipeline over the given port. queueSize is the handoff
// queue capacity from the buffer pool recommendation; deadline is the initial
// per-capture deadline and must be positive.
func NewPipeline(port CapturePort, queueSize int, deadline time.Duration, opts ...PipelineOption) (*Pipeline, error) {
	if port == nil {
		return nil, errors.Newf("capture port is required").
			Component(ComponentCamera).
			Category(errors.CategoryValidation).
			Build()
	}
	if queueSize < framepool.MinBufferCount || queueSize > framepool.MaxBufferCount {
		return nil, errors.Newf("queue size %d out of range [%d,%d]",
			queueSize, framepool.MinBufferCount, framepool.MaxBufferCount).
			Component(ComponentCamera).
			Category(errors.CategoryValidation).
			Build()
	}
	if deadline <= 0 {
		return nil, errors.Newf("capture deadline must be positive, got %v", deadline).
			Component(ComponentCamera).
			Category(errors.CategoryValidation).
			Build()
	}

	logger := logging.ForService(ComponentCamera)
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		port:      port,
		tracker:   framepool.NewTracker(),
		stats:     NewCaptureStats(),
		logger:    logger,
		queue:     make(chan *FrameHandle, queueSize),
		queueSize: queueSize,
		nextSize:  queueSize,
		placement: framepool.MemoryFast,
	}
	p.deadline.store(deadline)

	for _, opt := range opts {
		opt(p)
	}
	p.metrics.SetBufferCount(queueSize)

	return p, nil
}

// SetDeadline updates the per-capture deadline. Applied to subsequent
// captures; an in-flight capture keeps the deadline it started with.
func (p *Pipeline) SetDeadline(d time.Duration) {
	if d <= 0 {
		return
	}
	p.deadline.store(d)
}

// Deadline returns the currently applied per-capture deadline.
func (p *Pipeline) Deadline() time.Duration {
	return p.deadline.load()
}

// SetPlacement updates the memory class applied to subsequent unclassified
// frames, from a fresh buffer pool location decision.
func (p *Pipeline) SetPlacement(class framepool.MemoryClass) {
	if class == "" {
		return
	}
	p.mu.Lock()
	p.placement = class
	p.mu.Unlock()
}

// Placement returns the memory class currently applied to unclassified frames.
func (p *Pipeline) Placement() framepool.MemoryClass {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.placement
}

// SetNextQueueSize records the buffer-count hint applied at the next
// reinitialization boundary. The queue is never resized mid-flight.
func (p *Pipeline) SetNextQueueSize(n int) {
	if n < framepool.MinBufferCount {
		n = framepool.MinBufferCount
	}
	if n > framepool.MaxBufferCount {
		n = framepool.MaxBufferCount
	}
	p.mu.Lock()
	p.nextSize = n
	p.mu.Unlock()
}

// Capture acquires one frame under the configured deadline and pushes it onto
// the handoff queue. Exactly one FrameHandle is queued or released on every
// exit path.
func (p *Pipeline) Capture(ctx context.Context) error {
	deadline := p.deadline.load()
	start := time.Now()

	cctx, cancel := context.WithTimeout(ctx, deadline)
	handle, err := p.port.Acquire(cctx)
	cancel()
	elapsed := time.Since(start)

	p.metrics.RecordAttempt()

	if err != nil {
		// A faulting port must not leak a handle.
		if handle != nil {
			_ = p.port.Release(handle)
		}
		p.stats.RecordFailure()

		if errors.Is(err, context.DeadlineExceeded) || elapsed >= deadline {
			p.metrics.RecordFailure("timeout")
			p.logger.Warn("capture deadline exceeded",
				"deadline_ms", deadline.Milliseconds(),
				"elapsed_ms", elapsed.Milliseconds())
			return errors.Wrap(err).
				Component(ComponentCamera).
				Category(errors.CategoryTimeout).
				Timing("capture", elapsed).
				Build()
		}

		p.metrics.RecordFailure("hardware")
		p.logger.Error("capture port fault", "error", err)
		return errors.Wrap(err).
			Component(ComponentCamera).
			Category(errors.CategoryHardware).
			Timing("capture", elapsed).
			Build()
	}

	if handle.Class == "" {
		handle.Class = p.Placement()
	}
	if err := p.tracker.Track(handle.ID, handle.Class); err != nil {
		// A duplicate ID from the port is a hardware-side bug; return the
		// frame so nothing leaks.
		_ = p.port.Release(handle)
		p.stats.RecordFailure()
		p.metrics.RecordFailure("hardware")
		return err
	}

	// Some ports ignore context cancellation; enforce the deadline on the
	// result as well.
	if elapsed > deadline {
		p.releaseTracked(handle)
		p.stats.RecordFailure()
		p.metrics.RecordFailure("timeout")
		p.logger.Warn("late frame discarded",
			"deadline_ms", deadline.Milliseconds(),
			"elapsed_ms", elapsed.Milliseconds())
		return errors.Newf("capture completed after deadline: %v > %v", elapsed, deadline).
			Component(ComponentCamera).
			Category(errors.CategoryTimeout).
			Timing("capture", elapsed).
			Build()
	}

	p.mu.Lock()
	queue := p.queue
	p.mu.Unlock()

	select {
	case queue <- handle:
		p.stats.RecordSuccess(elapsed, handle.Len())
		p.metrics.RecordSuccess(elapsed, handle.Len())
		p.metrics.SetQueueLength(len(queue))
		p.logger.Debug("frame captured",
			"width", handle.Width,
			"height", handle.Height,
			"bytes", handle.Len(),
			"elapsed_ms", elapsed.Milliseconds())
		return nil
	default:
		// Queue full: the frame is gone, but this is a drop, not a failure.
		p.releaseTracked(handle)
		p.stats.RecordDrop()
		p.metrics.RecordDrop()
		p.logger.Warn("handoff queue full, dropping frame", "queue_size", cap(queue))
		return errors.Newf("handoff queue full (capacity %d)", cap(queue)).
			Component(ComponentCamera).
			Category(errors.CategoryLimit).
			Context("resource", "handoff_queue").
			Build()
	}
}

// GetNextFrame pops the oldest frame from the handoff queue without blocking.
// Ownership transfers to the caller, which must pass the handle to
// ReleaseFrame (directly or through the storage collaborator) exactly once.
func (p *Pipeline) GetNextFrame() (*FrameHandle, error) {
	p.mu.Lock()
	queue := p.queue
	p.mu.Unlock()

	select {
	case handle := <-queue:
		p.metrics.SetQueueLength(len(queue))
		return handle, nil
	default:
		return nil, ErrQueueEmpty
	}
}

// CaptureForAnalysis acquires a scratch frame bypassing the handoff queue,
// for the frame-difference analyzer. The caller must release it via
// ReleaseFrame on every path.
func (p *Pipeline) CaptureForAnalysis(ctx context.Context) (*FrameHandle, error) {
	deadline := p.deadline.load()
	cctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	handle, err := p.port.Acquire(cctx)
	if err != nil {
		if handle != nil {
			_ = p.port.Release(handle)
		}
		category := errors.CategoryHardware
		if errors.Is(err, context.DeadlineExceeded) {
			category = errors.CategoryTimeout
		}
		return nil, errors.Wrap(err).
			Component(ComponentCamera).
			Category(category).
			Context("operation", "capture_for_analysis").
			Build()
	}
	if handle.Class == "" {
		handle.Class = p.Placement()
	}
	if err := p.tracker.Track(handle.ID, handle.Class); err != nil {
		_ = p.port.Release(handle)
		return nil, err
	}
	return handle, nil
}

// ReleaseFrame returns a handle to the port. Double release is rejected
// without reaching the port, so the pool cannot be corrupted.
func (p *Pipeline) ReleaseFrame(handle *FrameHandle) error {
	if handle == nil {
		return nil
	}
	if err := p.tracker.Release(handle.ID, handle.Class); err != nil {
		p.logger.Error("frame release rejected", "handle_id", handle.ID, "error", err)
		return err
	}
	if err := p.port.Release(handle); err != nil {
		return errors.Wrap(err).
			Component(ComponentCamera).
			Category(errors.CategoryHardware).
			Context("operation", "release").
			Build()
	}
	return nil
}

func (p *Pipeline) releaseTracked(handle *FrameHandle) {
	if err := p.ReleaseFrame(handle); err != nil {
		p.logger.Error("failed to release frame", "handle_id", handle.ID, "error", err)
	}
}

// FlushQueue drains the handoff queue, releasing every held frame.
// Returns the number of frames flushed.
func (p *Pipeline) FlushQueue() int {
	p.mu.Lock()
	queue := p.queue
	p.mu.Unlock()

	flushed := 0
	for {
		select {
		case handle := <-queue:
			p.releaseTracked(handle)
			flushed++
		default:
			p.metrics.SetQueueLength(len(queue))
			return flushed
		}
	}
}

// RecreateQueue flushes the queue and replaces it, applying the staged
// buffer-count hint. Used by recovery tier 2 and power-driven
// reinitialization; callers must ensure no capture is in flight.
func (p *Pipeline) RecreateQueue() int {
	flushed := p.FlushQueue()

	p.mu.Lock()
	p.queueSize = p.nextSize
	p.queue = make(chan *FrameHandle, p.queueSize)
	size := p.queueSize
	p.mu.Unlock()

	p.metrics.SetBufferCount(size)
	p.metrics.SetQueueLength(0)
	p.logger.Info("handoff queue recreated", "capacity", size, "flushed", flushed)
	return flushed
}

// ReclaimBuffers forgets every outstanding handle in the ledger. Only safe
// when consumers have crashed or been restarted; leaked handles are logged.
func (p *Pipeline) ReclaimBuffers() int {
	leaked := p.tracker.Reclaim()
	if len(leaked) > 0 {
		p.logger.Warn("reclaimed leaked frame handles", "count", len(leaked))
	}
	return len(leaked)
}

// ReconfigureSensor reapplies the given sensor profile, for recovery tier 3.
func (p *Pipeline) ReconfigureSensor(profile GainProfile) error {
	return p.port.ConfigureSensor(profile)
}

// Reinitialize performs a full hardware port reinitialization: the queue is
// flushed and recreated and the port restarted.
func (p *Pipeline) Reinitialize() error {
	p.RecreateQueue()
	if err := p.port.Reinitialize(); err != nil {
		return errors.Wrap(err).
			Component(ComponentCamera).
			Category(errors.CategoryHardware).
			Context("operation", "reinitialize").
			Build()
	}
	p.logger.Info("capture port reinitialized")
	return nil
}

// ApplyGainProfile forwards a sensor gain profile to the port.
func (p *Pipeline) ApplyGainProfile(profile GainProfile) error {
	return p.port.ConfigureSensor(profile)
}

// SetFrameSize forwards a frame size change to the port.
func (p *Pipeline) SetFrameSize(size FrameSize) error {
	return p.port.SetFrameSize(size)
}

// QueueLen returns the current handoff queue length.
func (p *Pipeline) QueueLen() int {
	p.mu.Lock()
	queue := p.queue
	p.mu.Unlock()
	return len(queue)
}

// QueueCap returns the current handoff queue capacity.
func (p *Pipeline) QueueCap() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queueSize
}

// Stats returns a snapshot of the capture statistics.
func (p *Pipeline) Stats() CaptureStatsSnapshot {
	return p.stats.Snapshot()
}

// Outstanding returns the number of frame handles currently held outside the port.
func (p *Pipeline) Outstanding() int {
	return p.tracker.Outstanding()
}
