package motion

import (
	"sync"

	"github.com/thewriterben/wildcam-go/internal/camera"
	"github.com/thewriterben/wildcam-go/internal/errors"
)

// Block grid geometry and per-block change threshold for 8-bit luma frames.
const (
	diffBlockSize      = 16
	diffBlockThreshold = 25.0
)

// DiffResult is the outcome of comparing one frame against its predecessor.
type DiffResult struct {
	Motion        bool
	Score         float64
	ChangedBlocks int
	TotalBlocks   int
	Baseline      bool // first frame after a reset, nothing to compare against
}

// Analyzer computes block-based luma differences between consecutive frames.
// Not safe for concurrent use; the control loop owns it.
type Analyzer struct {
	mu          sync.Mutex
	sensitivity float64
	ref         []float64
	refWidth    int
	refHeight   int

	frames uint64
}

// NewAnalyzer builds an analyzer with the given sensitivity in [0,1]. Higher
// sensitivity lowers the changed-area fraction needed to report motion.
func NewAnalyzer(sensitivity float64) (*Analyzer, error) {
	if sensitivity < 0 || sensitivity > 1 {
		return nil, errors.Newf("difference sensitivity %.2f out of range [0,1]", sensitivity).
			Component(ComponentMotion).
			Category(errors.CategoryValidation).
			Build()
	}
	return &Analyzer{sensitivity: sensitivity}, nil
}

// SetSensitivity retunes the motion trigger fraction.
func (a *Analyzer) SetSensitivity(sensitivity float64) {
	if sensitivity < 0 || sensitivity > 1 {
		return
	}
	a.mu.Lock()
	a.sensitivity = sensitivity
	a.mu.Unlock()
}

// Reset drops the reference frame. The next Analyze call re-baselines;
// required after a port reinitialization or frame-size change.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	a.ref = nil
	a.refWidth, a.refHeight = 0, 0
	a.mu.Unlock()
}

// Analyze compares the frame against the stored reference and replaces the
// reference with it. The descriptor's pixel data is an 8-bit luma plane and
// is not retained past the call.
func (a *Analyzer) Analyze(desc camera.FrameDescriptor) (DiffResult, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return DiffResult{}, errors.Newf("frame dimensions %dx%d invalid", desc.Width, desc.Height).
			Component(ComponentMotion).
			Category(errors.CategoryValidation).
			Build()
	}
	if desc.Length < desc.Width*desc.Height {
		return DiffResult{}, errors.Newf("frame payload %d bytes shorter than %dx%d luma plane",
			desc.Length, desc.Width, desc.Height).
			Component(ComponentMotion).
			Category(errors.CategoryValidation).
			Build()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames++

	blocksX := (desc.Width + diffBlockSize - 1) / diffBlockSize
	blocksY := (desc.Height + diffBlockSize - 1) / diffBlockSize
	means := blockMeans(desc.Data, desc.Width, desc.Height, blocksX, blocksY)

	if a.ref == nil || a.refWidth != desc.Width || a.refHeight != desc.Height {
		a.ref = means
		a.refWidth, a.refHeight = desc.Width, desc.Height
		return DiffResult{Baseline: true, TotalBlocks: blocksX * blocksY}, nil
	}

	changed := 0
	for i, mean := range means {
		delta := mean - a.ref[i]
		if delta < 0 {
			delta = -delta
		}
		if delta > diffBlockThreshold {
			changed++
		}
	}
	a.ref = means

	total := blocksX * blocksY
	score := float64(changed) / float64(total)
	return DiffResult{
		Motion:        score >= a.triggerFraction(),
		Score:         score,
		ChangedBlocks: changed,
		TotalBlocks:   total,
	}, nil
}

// triggerFraction is the changed-block fraction above which the analyzer
// reports motion: 0.05 at full sensitivity up to 0.50 at zero.
func (a *Analyzer) triggerFraction() float64 {
	return 0.05 + (1.0-a.sensitivity)*0.45
}

// Frames returns how many frames the analyzer has seen.
func (a *Analyzer) Frames() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frames
}

// blockMeans averages 8-bit luma over a blocksX x blocksY grid.
func blockMeans(data []byte, width, height, blocksX, blocksY int) []float64 {
	means := make([]float64, blocksX*blocksY)
	counts := make([]int, blocksX*blocksY)
	for y := 0; y < height; y++ {
		rowBlock := (y / diffBlockSize) * blocksX
		row := y * width
		for x := 0; x < width; x++ {
			idx := rowBlock + x/diffBlockSize
			means[idx] += float64(data[row+x])
			counts[idx]++
		}
	}
	for i := range means {
		if counts[i] > 0 {
			means[i] /= float64(counts[i])
		}
	}
	return means
}
