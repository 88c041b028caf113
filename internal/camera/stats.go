package camera

import (
	"sync"
	"time"
)

// CaptureStats accumulates cumulative capture counters and latency figures.
// Mutated only by the pipeline, read by diagnostics.
type CaptureStats struct {
	mu sync.RWMutex

	attempts  uint64
	successes uint64
	failures  uint64
	drops     uint64

	minLatency time.Duration
	maxLatency time.Duration
	avgLatency time.Duration

	avgFrameBytes int
	totalBytes    uint64

	lastCapture time.Time
}

// CaptureStatsSnapshot is an immutable copy of the running counters.
type CaptureStatsSnapshot struct {
	Attempts  uint64
	Successes uint64
	Failures  uint64
	Drops     uint64

	MinLatency time.Duration
	MaxLatency time.Duration
	AvgLatency time.Duration

	AvgFrameBytes int
	TotalBytes    uint64

	LastCapture time.Time
}

// NewCaptureStats creates zeroed capture statistics.
func NewCaptureStats() *CaptureStats {
	return &CaptureStats{}
}

// RecordSuccess updates the counters for a successful capture.
func (s *CaptureStats) RecordSuccess(latency time.Duration, frameBytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	s.successes++
	s.totalBytes += uint64(frameBytes)
	s.lastCapture = time.Now()

	if s.successes == 1 {
		s.minLatency = latency
		s.maxLatency = latency
		s.avgLatency = latency
		s.avgFrameBytes = frameBytes
		return
	}

	if latency < s.minLatency {
		s.minLatency = latency
	}
	if latency > s.maxLatency {
		s.maxLatency = latency
	}

	// Running averages over successful captures.
	n := time.Duration(s.successes)
	s.avgLatency = (s.avgLatency*(n-1) + latency) / n
	s.avgFrameBytes = (s.avgFrameBytes*int(s.successes-1) + frameBytes) / int(s.successes)
}

// RecordFailure updates the counters for a timed-out or faulted capture.
func (s *CaptureStats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	s.failures++
	s.lastCapture = time.Now()
}

// RecordDrop updates the counters for a frame dropped on a full queue.
// A drop is a successful capture that found no room, not a capture failure.
func (s *CaptureStats) RecordDrop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	s.drops++
	s.lastCapture = time.Now()
}

// Snapshot returns a copy of the running counters.
func (s *CaptureStats) Snapshot() CaptureStatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CaptureStatsSnapshot{
		Attempts:      s.attempts,
		Successes:     s.successes,
		Failures:      s.failures,
		Drops:         s.drops,
		MinLatency:    s.minLatency,
		MaxLatency:    s.maxLatency,
		AvgLatency:    s.avgLatency,
		AvgFrameBytes: s.avgFrameBytes,
		TotalBytes:    s.totalBytes,
		LastCapture:   s.lastCapture,
	}
}
