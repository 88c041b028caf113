// Package hardware provides simulated implementations of the capture port
// and power monitor, used by the watch loop on development hosts and by the
// self-test and benchmark commands.
package hardware

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thewriterben/wildcam-go/internal/camera"
	"github.com/thewriterben/wildcam-go/internal/errors"
	"github.com/thewriterben/wildcam-go/internal/framepool"
)

// SimulatedPort is an in-memory camera.CapturePort producing synthetic 8-bit
// luma frames. A wandering bright blob enters the scene at a configurable
// rate so the frame-difference analyzer has something to find.
type SimulatedPort struct {
	mu          sync.Mutex
	frameSize   camera.FrameSize
	gain        camera.GainProfile
	latency     time.Duration
	jitter      time.Duration
	failureRate float64 // probability of a hardware fault per acquire
	motionRate  float64 // probability the blob moves between frames
	blobX       int
	blobY       int
	blobOn      bool
	background  byte
	initialized bool
	rng         *rand.Rand
}

// SimulatedPortConfig tunes the synthetic port.
type SimulatedPortConfig struct {
	FrameSize   camera.FrameSize
	Latency     time.Duration
	Jitter      time.Duration
	FailureRate float64
	MotionRate  float64
	Seed        int64
}

// NewSimulatedPort builds a port with the given tuning. Zero values get
// sensible defaults.
func NewSimulatedPort(cfg SimulatedPortConfig) *SimulatedPort {
	if cfg.Latency <= 0 {
		cfg.Latency = 30 * time.Millisecond
	}
	if cfg.MotionRate <= 0 {
		cfg.MotionRate = 0.2
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &SimulatedPort{
		frameSize:   cfg.FrameSize,
		latency:     cfg.Latency,
		jitter:      cfg.Jitter,
		failureRate: cfg.FailureRate,
		motionRate:  cfg.MotionRate,
		background:  96,
		initialized: true,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Acquire produces one synthetic frame, honoring context cancellation while
// the simulated exposure runs.
func (p *SimulatedPort) Acquire(ctx context.Context) (*camera.FrameHandle, error) {
	p.mu.Lock()
	delay := p.latency
	if p.jitter > 0 {
		delay += time.Duration(p.rng.Int63n(int64(p.jitter)))
	}
	fault := p.failureRate > 0 && p.rng.Float64() < p.failureRate
	p.mu.Unlock()

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if fault {
		return nil, errors.Newf("simulated sensor fault").
			Component("hardware").
			Category(errors.CategoryHardware).
			Build()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return nil, errors.Newf("port not initialized").
			Component("hardware").
			Category(errors.CategoryState).
			Build()
	}

	width, height := p.frameSize.Dimensions()
	p.advanceScene(width, height)

	return &camera.FrameHandle{
		ID:        uuid.New(),
		Data:      p.renderScene(width, height),
		Width:     width,
		Height:    height,
		Timestamp: time.Now(),
		Class:     framepool.MemoryFast,
	}, nil
}

// advanceScene wanders the blob and occasionally toggles it, under p.mu.
func (p *SimulatedPort) advanceScene(width, height int) {
	if p.rng.Float64() < p.motionRate {
		p.blobOn = !p.blobOn
		p.blobX = p.rng.Intn(width)
		p.blobY = p.rng.Intn(height)
	} else if p.blobOn {
		p.blobX = (p.blobX + 8) % width
	}
}

// renderScene draws the background plus the blob, under p.mu.
func (p *SimulatedPort) renderScene(width, height int) []byte {
	data := make([]byte, width*height)
	for i := range data {
		data[i] = p.background
	}
	if !p.blobOn {
		return data
	}
	const blobRadius = 24
	for dy := -blobRadius; dy <= blobRadius; dy++ {
		y := p.blobY + dy
		if y < 0 || y >= height {
			continue
		}
		for dx := -blobRadius; dx <= blobRadius; dx++ {
			x := p.blobX + dx
			if x < 0 || x >= width {
				continue
			}
			data[y*width+x] = 220
		}
	}
	return data
}

// Release is a no-op for heap-backed frames; the handle just becomes garbage.
func (p *SimulatedPort) Release(_ *camera.FrameHandle) error {
	return nil
}

// Reinitialize resets the synthetic scene.
func (p *SimulatedPort) Reinitialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blobOn = false
	p.initialized = true
	return nil
}

// ConfigureSensor stores the gain profile and nudges the background level so
// the change is visible in rendered frames.
func (p *SimulatedPort) ConfigureSensor(profile camera.GainProfile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gain = profile
	base := 96 + profile.Brightness*8
	if base < 16 {
		base = 16
	}
	if base > 240 {
		base = 240
	}
	p.background = byte(base)
	return nil
}

// SetFrameSize switches the synthetic resolution.
func (p *SimulatedPort) SetFrameSize(size camera.FrameSize) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frameSize = size
	return nil
}

// CurrentGain returns the last applied gain profile.
func (p *SimulatedPort) CurrentGain() camera.GainProfile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gain
}
