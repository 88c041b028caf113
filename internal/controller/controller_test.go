package controller

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewriterben/wildcam-go/internal/camera"
	"github.com/thewriterben/wildcam-go/internal/conf"
	"github.com/thewriterben/wildcam-go/internal/framepool"
	"github.com/thewriterben/wildcam-go/internal/hardware"
	"github.com/thewriterben/wildcam-go/internal/power"
)

type fixedPowerMonitor struct {
	mu       sync.Mutex
	state    power.State
	fraction float64
}

func (f *fixedPowerMonitor) CurrentPowerState() power.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fixedPowerMonitor) BatteryFraction() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fraction
}

func (f *fixedPowerMonitor) set(state power.State, fraction float64) {
	f.mu.Lock()
	f.state = state
	f.fraction = fraction
	f.mu.Unlock()
}

type recordingStorage struct {
	mu    sync.Mutex
	saves int
}

func (r *recordingStorage) SaveImage(_ context.Context, frame *camera.FrameHandle, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	return frame.ID.String() + ".pgm", nil
}

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	return &conf.Settings{
		Node: conf.NodeSettings{ID: "test-node", Latitude: 60.17, Longitude: 24.94},
		Capture: conf.CaptureSettings{
			DeadlineMs: 5000,
			QueueSize:  3,
			SaveFolder: t.TempDir(),
		},
		Fusion: conf.FusionSettings{
			Policy:              "either_suffices",
			EdgeSensitivity:     0.7,
			DiffSensitivity:     0.5,
			CooldownMs:          2000,
			ConfidenceThreshold: 0.3,
			FalsePositiveFilter: true,
			MinMotionBlocks:     5,
			DebounceMs:          2000,
		},
		Power:    conf.PowerSettings{ControlIntervalMs: 30000},
		Recovery: conf.RecoverySettings{SensorResetThreshold: 5, PortReinitThreshold: 10},
	}
}

func testPort() *hardware.SimulatedPort {
	return hardware.NewSimulatedPort(hardware.SimulatedPortConfig{
		FrameSize:  camera.FrameSizeQVGA,
		Latency:    time.Millisecond,
		MotionRate: 0.001,
		Seed:       42,
	})
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Settings: testSettings(t)})
	assert.Error(t, err, "port and monitor are required")
}

func TestNewAssemblesCore(t *testing.T) {
	t.Parallel()

	c, err := New(Options{
		Settings:     testSettings(t),
		Port:         testPort(),
		PowerMonitor: &fixedPowerMonitor{state: power.StateNormal, fraction: 0.9},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Pipeline().QueueCap())
	assert.Equal(t, 5*time.Second, c.Pipeline().Deadline())
}

func TestNewRejectsBadFusionPolicy(t *testing.T) {
	t.Parallel()

	s := testSettings(t)
	s.Fusion.Policy = "seance"
	_, err := New(Options{
		Settings:     s,
		Port:         testPort(),
		PowerMonitor: &fixedPowerMonitor{state: power.StateNormal},
	})
	assert.Error(t, err)
}

func TestSelfTest(t *testing.T) {
	t.Parallel()

	c, err := New(Options{
		Settings:     testSettings(t),
		Port:         testPort(),
		PowerMonitor: &fixedPowerMonitor{state: power.StateNormal, fraction: 0.9},
	})
	require.NoError(t, err)

	result, err := c.SelfTest(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.Equal(t, 0, c.Pipeline().Outstanding())
}

func TestCriticalPowerAdaptation(t *testing.T) {
	t.Parallel()

	mon := &fixedPowerMonitor{state: power.StateCritical, fraction: 0.05}
	c, err := New(Options{
		Settings:     testSettings(t),
		Port:         testPort(),
		PowerMonitor: mon,
	})
	require.NoError(t, err)

	c.adaptPower()

	assert.Equal(t, 2*time.Second, c.Pipeline().Deadline(),
		"critical state must shorten the deadline")

	c.Pipeline().RecreateQueue()
	assert.Equal(t, 1, c.Pipeline().QueueCap(),
		"critical state must stage a single-buffer queue")
}

func TestPowerAdaptationOnlyOnStateChange(t *testing.T) {
	t.Parallel()

	mon := &fixedPowerMonitor{state: power.StateCritical, fraction: 0.05}
	c, err := New(Options{
		Settings:     testSettings(t),
		Port:         testPort(),
		PowerMonitor: mon,
	})
	require.NoError(t, err)

	c.adaptPower()
	require.Equal(t, 2*time.Second, c.Pipeline().Deadline())

	// Manual changes survive repeat samples of an unchanged state.
	c.Pipeline().SetDeadline(4 * time.Second)
	c.adaptPower()
	assert.Equal(t, 4*time.Second, c.Pipeline().Deadline())

	mon.set(power.StateNormal, 0.9)
	c.adaptPower()
	assert.Equal(t, 5*time.Second, c.Pipeline().Deadline())
}

func TestDetectionCycleTriggersCapture(t *testing.T) {
	t.Parallel()

	c, err := New(Options{
		Settings:     testSettings(t),
		Port:         testPort(),
		PowerMonitor: &fixedPowerMonitor{state: power.StateNormal, fraction: 0.9},
	})
	require.NoError(t, err)

	// Edge signal plus either_suffices policy yields a verdict.
	c.Signal()
	c.detectionCycle(context.Background(), time.Now())

	assert.Equal(t, 1, c.Pipeline().QueueLen(), "positive verdict must capture a frame")
	stats := c.Pipeline().Stats()
	assert.GreaterOrEqual(t, stats.Successes, uint64(1))
}

func TestDetectionCycleQuietSceneNoCapture(t *testing.T) {
	t.Parallel()

	c, err := New(Options{
		Settings:     testSettings(t),
		Port:         testPort(),
		PowerMonitor: &fixedPowerMonitor{state: power.StateNormal, fraction: 0.9},
	})
	require.NoError(t, err)

	c.detectionCycle(context.Background(), time.Now())
	assert.Equal(t, 0, c.Pipeline().QueueLen())
}

func TestRunConsumesAndSavesFrames(t *testing.T) {
	t.Parallel()

	storage := &recordingStorage{}
	c, err := New(Options{
		Settings:     testSettings(t),
		Port:         testPort(),
		PowerMonitor: &fixedPowerMonitor{state: power.StateNormal, fraction: 0.9},
		Storage:      storage,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Give the loops a few cycles, nudging the edge trigger so a verdict
	// and a stored frame happen.
	for i := 0; i < 4; i++ {
		c.Signal()
		time.Sleep(600 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop on context cancellation")
	}

	storage.mu.Lock()
	saves := storage.saves
	storage.mu.Unlock()
	assert.Greater(t, saves, 0, "at least one frame must reach storage")

	c.Pipeline().FlushQueue()
	assert.Equal(t, 0, c.Pipeline().Outstanding(), "no leaked handles after shutdown")
}

func TestStatusSnapshot(t *testing.T) {
	t.Parallel()

	c, err := New(Options{
		Settings:     testSettings(t),
		Port:         testPort(),
		PowerMonitor: &fixedPowerMonitor{state: power.StateNormal, fraction: 0.8},
	})
	require.NoError(t, err)

	c.Signal()
	c.detectionCycle(context.Background(), time.Now())

	snap := c.Status()
	assert.Equal(t, 3, snap.QueueCap)
	assert.NotNil(t, snap.LastVerdict)
	out := snap.String()
	assert.Contains(t, out, "wildcam status")
	assert.Contains(t, out, "policy either_suffices")
}

func TestFileStorageSaveImage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs := &FileStorage{NodeID: "cam01"}

	port := testPort()
	handle, err := port.Acquire(context.Background())
	require.NoError(t, err)

	name, err := fs.SaveImage(context.Background(), handle, dir)
	require.NoError(t, err)
	assert.Contains(t, name, "cam01_")

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, byte('P'), data[0])
	assert.Greater(t, len(data), handle.Len())
}

func TestFileStorageRejectsEmptyFrame(t *testing.T) {
	t.Parallel()

	fs := &FileStorage{NodeID: "cam01"}
	_, err := fs.SaveImage(context.Background(), nil, t.TempDir())
	assert.Error(t, err)
}

func TestCaptureMargins(t *testing.T) {
	t.Parallel()

	t.Run("configured floors convert to bytes", func(t *testing.T) {
		t.Parallel()
		m := captureMargins(&conf.CaptureSettings{
			FastMemoryMinKB: 200,
			SlowMemoryMinKB: 1024,
		})
		assert.Equal(t, uint64(200*1024), m.FastMin)
		assert.Equal(t, uint64(1024*1024), m.SlowMin)
	})

	t.Run("unset floors keep defaults", func(t *testing.T) {
		t.Parallel()
		m := captureMargins(&conf.CaptureSettings{})
		assert.Equal(t, framepool.DefaultMargins(), m)
	})
}

func TestNewDecidesFramePlacement(t *testing.T) {
	t.Parallel()

	c, err := New(Options{
		Settings:     testSettings(t),
		Port:         testPort(),
		PowerMonitor: &fixedPowerMonitor{state: power.StateNormal, fraction: 0.9},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.Pipeline().Placement(),
		"construction must pick a memory class for frame buffers")
}
