// Package controller wires the capture core together and runs the control
// loops: detection, power adaptation, and the consumer that hands frames to
// the storage and inference collaborators.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thewriterben/wildcam-go/internal/camera"
	"github.com/thewriterben/wildcam-go/internal/conf"
	"github.com/thewriterben/wildcam-go/internal/diagnostics"
	"github.com/thewriterben/wildcam-go/internal/errors"
	"github.com/thewriterben/wildcam-go/internal/framepool"
	"github.com/thewriterben/wildcam-go/internal/logging"
	"github.com/thewriterben/wildcam-go/internal/motion"
	"github.com/thewriterben/wildcam-go/internal/observability"
	"github.com/thewriterben/wildcam-go/internal/power"
	"github.com/thewriterben/wildcam-go/internal/recovery"
)

// ComponentController tags errors raised by this package.
const ComponentController = "controller"

// Storage persists a captured frame. The handle is valid and exclusively
// owned by the controller at call time; the controller releases it after
// SaveImage returns.
type Storage interface {
	SaveImage(ctx context.Context, frame *camera.FrameHandle, folder string) (string, error)
}

// Inference analyzes a frame descriptor. The descriptor's pixel data must
// not be retained past the call.
type Inference interface {
	Analyze(ctx context.Context, frame camera.FrameDescriptor) error
}

// Loop intervals not worth a config knob.
const (
	detectionInterval = 500 * time.Millisecond
	consumerIdleWait  = 100 * time.Millisecond
)

// Options carries the collaborators for a controller.
type Options struct {
	Settings     *conf.Settings
	Port         camera.CapturePort
	PowerMonitor power.Monitor
	Storage      Storage
	Inference    Inference
	Daylight     motion.Daylight
	Metrics      *observability.Metrics
}

// Controller owns the control loops and every core component.
type Controller struct {
	settings *conf.Settings
	pipeline *camera.Pipeline
	edge     *motion.EdgeTrigger
	analyzer *motion.Analyzer
	engine   *motion.Engine
	recovery *recovery.Manager
	powerMon power.Monitor
	storage  Storage
	infer    Inference
	metrics  *observability.Metrics
	logger   *slog.Logger

	baseFusion motion.Config

	mu          sync.Mutex
	currentGain camera.GainProfile
	lastState   power.State
	lastVerdict *motion.Verdict
}

// New assembles the capture core from settings and collaborators.
func New(opts Options) (*Controller, error) {
	if opts.Settings == nil {
		return nil, errors.Newf("settings are required").
			Component(ComponentController).
			Category(errors.CategoryValidation).
			Build()
	}
	if opts.Port == nil || opts.PowerMonitor == nil {
		return nil, errors.Newf("capture port and power monitor are required").
			Component(ComponentController).
			Category(errors.CategoryValidation).
			Build()
	}

	logger := logging.ForService(ComponentController)
	if logger == nil {
		logger = slog.Default()
	}

	s := opts.Settings

	margins := captureMargins(&s.Capture)
	plan, err := planBuffers(logger, margins)
	if err != nil {
		return nil, err
	}
	queueSize := s.Capture.QueueSize
	if queueSize == 0 {
		queueSize = plan.Buffers
	}

	pipeline, err := camera.NewPipeline(opts.Port, queueSize, s.CaptureDeadline(),
		camera.WithMemoryClass(plan.Class),
		camera.WithMetrics(opts.Metrics.CaptureMetrics()))
	if err != nil {
		return nil, err
	}

	edge, err := motion.NewEdgeTrigger(
		time.Duration(s.Fusion.DebounceMs)*time.Millisecond, s.Fusion.EdgeSensitivity)
	if err != nil {
		return nil, err
	}

	analyzer, err := motion.NewAnalyzer(s.Fusion.DiffSensitivity)
	if err != nil {
		return nil, err
	}

	policy, err := motion.ParsePolicy(s.Fusion.Policy)
	if err != nil {
		return nil, err
	}
	fusionCfg := motion.Config{
		Policy:              policy,
		EdgeSensitivity:     s.Fusion.EdgeSensitivity,
		DiffSensitivity:     s.Fusion.DiffSensitivity,
		Cooldown:            s.Cooldown(),
		ConfidenceThreshold: s.Fusion.ConfidenceThreshold,
		FalsePositiveFilter: s.Fusion.FalsePositiveFilter,
		MinMotionBlocks:     s.Fusion.MinMotionBlocks,
	}
	engine, err := motion.NewEngine(fusionCfg,
		motion.WithDaylight(opts.Daylight),
		motion.WithMetrics(opts.Metrics.MotionMetrics()))
	if err != nil {
		return nil, err
	}

	c := &Controller{
		settings:   s,
		pipeline:   pipeline,
		edge:       edge,
		analyzer:   analyzer,
		engine:     engine,
		powerMon:   opts.PowerMonitor,
		storage:    opts.Storage,
		infer:      opts.Inference,
		metrics:    opts.Metrics,
		logger:     logger,
		baseFusion: fusionCfg,
	}

	c.recovery, err = recovery.NewManager(
		recovery.Config{
			SensorResetThreshold: s.Recovery.SensorResetThreshold,
			PortReinitThreshold:  s.Recovery.PortReinitThreshold,
		},
		recovery.Actions{
			Snapshot:       func() string { return c.Status().String() },
			RecreateQueue:  pipeline.RecreateQueue,
			ReclaimBuffers: pipeline.ReclaimBuffers,
			ReconfigureSensor: func() error {
				c.mu.Lock()
				gain := c.currentGain
				c.mu.Unlock()
				return pipeline.ReconfigureSensor(gain)
			},
			ReinitializePort: func() error {
				analyzer.Reset()
				// Memory availability may have shifted since construction.
				if avail, err := framepool.Probe(); err == nil {
					if class, err := framepool.ChooseLocation(avail.FreeFast, avail.FreeSlow, margins); err == nil {
						pipeline.SetPlacement(class)
					}
				}
				return pipeline.Reinitialize()
			},
		},
		recovery.WithMetrics(opts.Metrics.RecoveryMetrics()))
	if err != nil {
		return nil, err
	}

	return c, nil
}

// bufferPlan is the buffer pool decision applied at pipeline construction.
type bufferPlan struct {
	Buffers int
	Class   framepool.MemoryClass
}

// captureMargins converts the configured memory floors to placement margins,
// keeping the defaults for unset fields.
func captureMargins(c *conf.CaptureSettings) framepool.Margins {
	m := framepool.DefaultMargins()
	if c.FastMemoryMinKB > 0 {
		m.FastMin = uint64(c.FastMemoryMinKB) * 1024
	}
	if c.SlowMemoryMinKB > 0 {
		m.SlowMin = uint64(c.SlowMemoryMinKB) * 1024
	}
	return m
}

// planBuffers probes host memory for the buffer count and placement class,
// falling back to the mid tier in fast memory when probing is unavailable.
// Exhaustion of both memory classes fails construction outright.
func planBuffers(logger *slog.Logger, margins framepool.Margins) (bufferPlan, error) {
	avail, err := framepool.Probe()
	if err != nil {
		logger.Warn("memory probe failed, using default buffer plan", "error", err)
		return bufferPlan{Buffers: 3, Class: framepool.MemoryFast}, nil
	}
	class, err := framepool.ChooseLocation(avail.FreeFast, avail.FreeSlow, margins)
	if err != nil {
		return bufferPlan{}, err
	}
	n := framepool.RecommendBufferCount(avail)
	logger.Info("buffer plan derived from memory availability",
		"free_fast", avail.FreeFast, "free_slow", avail.FreeSlow,
		"buffers", n, "class", string(class))
	return bufferPlan{Buffers: n, Class: class}, nil
}

// Signal reports a hardware edge event. Safe from any goroutine.
func (c *Controller) Signal() {
	c.edge.Signal()
}

// SelfTest runs the pipeline's end-to-end capture check.
func (c *Controller) SelfTest(ctx context.Context) (camera.SelfTestResult, error) {
	return c.pipeline.SelfTest(ctx)
}

// Run starts the control loops and blocks until the context is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	// Apply the initial power state before the first detection cycle.
	c.adaptPower()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.detectionLoop(ctx) })
	g.Go(func() error { return c.powerLoop(ctx) })
	g.Go(func() error { return c.consumerLoop(ctx) })

	c.logger.Info("capture core running",
		"policy", c.baseFusion.Policy.String(),
		"queue_capacity", c.pipeline.QueueCap(),
		"deadline_ms", c.pipeline.Deadline().Milliseconds())

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (c *Controller) detectionLoop(ctx context.Context) error {
	ticker := time.NewTicker(detectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			c.detectionCycle(ctx, now)
		}
	}
}

// detectionCycle runs one pass: poll the edge trigger, difference the scene,
// fuse, and on a positive verdict drive the acquisition pipeline.
func (c *Controller) detectionCycle(ctx context.Context, now time.Time) {
	in := motion.Inputs{EdgeTriggered: c.edge.Poll(now)}

	if diff, ok := c.analyzeScene(ctx); ok {
		in.DiffMotion = diff.Motion
		in.DiffScore = diff.Score
		in.DiffBlocks = diff.ChangedBlocks
	}

	verdict := c.engine.Evaluate(now, in)
	c.mu.Lock()
	c.lastVerdict = &verdict
	c.mu.Unlock()

	if !verdict.Triggered {
		return
	}

	err := c.pipeline.Capture(ctx)
	switch {
	case err == nil:
		c.recovery.RecordSuccess()
	case errors.IsCategory(err, errors.CategoryLimit):
		// A full queue drops the frame but is not a capture failure.
		c.logger.Debug("frame dropped, handoff queue full")
	default:
		ev := c.recovery.RecordFailure(now)
		c.logger.Warn("capture failed after motion verdict",
			"error", err, "recovery_tier", ev.Tier.String())
	}
}

// analyzeScene grabs a scratch frame and runs the frame-difference analyzer.
func (c *Controller) analyzeScene(ctx context.Context) (motion.DiffResult, bool) {
	handle, err := c.pipeline.CaptureForAnalysis(ctx)
	if err != nil {
		c.logger.Debug("analysis capture failed", "error", err)
		return motion.DiffResult{}, false
	}
	defer func() {
		if err := c.pipeline.ReleaseFrame(handle); err != nil {
			c.logger.Error("failed to release analysis frame", "error", err)
		}
	}()

	diff, err := c.analyzer.Analyze(handle.Descriptor())
	if err != nil {
		c.logger.Debug("frame difference analysis failed", "error", err)
		return motion.DiffResult{}, false
	}
	return diff, true
}

func (c *Controller) powerLoop(ctx context.Context) error {
	interval := time.Duration(c.settings.Power.ControlIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.adaptPower()
		}
	}
}

// adaptPower samples the monitor and applies the recommendation when the
// power state changed.
func (c *Controller) adaptPower() {
	state := c.powerMon.CurrentPowerState()
	fraction := c.powerMon.BatteryFraction()

	pm := c.metrics.PowerMetrics()
	pm.SetBatteryFraction(fraction)

	c.mu.Lock()
	changed := state != c.lastState
	c.lastState = state
	c.mu.Unlock()
	if !changed {
		return
	}

	rec := power.Evaluate(state)

	c.pipeline.SetDeadline(rec.CaptureDeadline)
	c.pipeline.SetNextQueueSize(rec.BufferCount)
	if err := c.pipeline.ApplyGainProfile(rec.Gain); err != nil {
		c.logger.Warn("failed to apply gain profile", "error", err)
	}
	if rec.ForceFrameSize {
		if err := c.pipeline.SetFrameSize(rec.FrameSize); err != nil {
			c.logger.Warn("failed to set frame size", "error", err)
		}
		c.analyzer.Reset()
	}

	c.mu.Lock()
	c.currentGain = rec.Gain
	c.mu.Unlock()

	cfg := c.baseFusion
	cfg.EdgeSensitivity = power.ApplyDelta(c.baseFusion.EdgeSensitivity, rec.SensitivityDelta)
	cfg.DiffSensitivity = power.ApplyDelta(c.baseFusion.DiffSensitivity, rec.SensitivityDelta)
	if err := c.engine.UpdateConfig(cfg); err != nil {
		c.logger.Error("failed to apply fusion sensitivity delta", "error", err)
	}
	c.edge.SetSensitivity(cfg.EdgeSensitivity)
	c.analyzer.SetSensitivity(cfg.DiffSensitivity)

	pm.SetState(string(state), power.AllStates())
	pm.SetCaptureDeadline(rec.CaptureDeadline)

	c.logger.Info("power state adaptation applied",
		"state", state.String(),
		"battery", fraction,
		"deadline_ms", rec.CaptureDeadline.Milliseconds(),
		"buffers", rec.BufferCount,
		"gain_ceiling", rec.Gain.GainCeiling)
}

func (c *Controller) consumerLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		handle, err := c.pipeline.GetNextFrame()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(consumerIdleWait):
			}
			continue
		}
		c.consumeFrame(ctx, handle)
	}
}

// consumeFrame runs inference on the descriptor, saves the frame, and
// releases the handle exactly once.
func (c *Controller) consumeFrame(ctx context.Context, handle *camera.FrameHandle) {
	defer func() {
		if err := c.pipeline.ReleaseFrame(handle); err != nil {
			c.logger.Error("failed to release consumed frame", "error", err)
		}
	}()

	if c.infer != nil {
		if err := c.infer.Analyze(ctx, handle.Descriptor()); err != nil {
			c.logger.Warn("inference failed", "error", err)
		}
	}

	if c.storage != nil {
		filename, err := c.storage.SaveImage(ctx, handle, c.settings.Capture.SaveFolder)
		if err != nil {
			c.logger.Error("failed to save frame", "error", err)
			return
		}
		c.logger.Info("frame saved", "filename", filename, "bytes", handle.Len())
	}
}

// Status aggregates a diagnostics snapshot across every component.
func (c *Controller) Status() diagnostics.Snapshot {
	c.mu.Lock()
	verdict := c.lastVerdict
	state := c.lastState
	c.mu.Unlock()

	return diagnostics.Snapshot{
		At:           time.Now(),
		Capture:      c.pipeline.Stats(),
		QueueLength:  c.pipeline.QueueLen(),
		QueueCap:     c.pipeline.QueueCap(),
		Outstanding:  c.pipeline.Outstanding(),
		Motion:       c.engine.Stats(),
		Edge:         c.edge.Stats(),
		PowerState:   state,
		BatteryFrac:  c.powerMon.BatteryFraction(),
		Deadline:     c.pipeline.Deadline(),
		Recovery:     c.recovery.CurrentState(),
		LastVerdict:  verdict,
		ConfigPolicy: c.engine.ConfigSnapshot().Policy,
	}
}

// Pipeline exposes the acquisition pipeline, for the benchmark command.
func (c *Controller) Pipeline() *camera.Pipeline {
	return c.pipeline
}
