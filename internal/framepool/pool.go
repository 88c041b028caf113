// Package framepool decides how many hardware frame buffers may be outstanding
// and whether they are backed by fast or slow memory. Recommendations are
// applied only at pipeline (re)initialization boundaries, never mid-flight.
package framepool

import (
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/thewriterben/wildcam-go/internal/errors"
)

// Component identifier for framepool errors
const ComponentFramePool = "framepool"

// MemoryClass identifies which memory tier backs a frame buffer.
type MemoryClass string

const (
	MemoryFast MemoryClass = "fast" // internal RAM, fastest access
	MemorySlow MemoryClass = "slow" // external memory, larger but slower
)

// Buffer count bounds for the handoff queue.
const (
	MinBufferCount = 1
	MaxBufferCount = 5
)

// Free-memory tiers used by RecommendBufferCount, in bytes.
const (
	slowTierLarge  = 2 * 1024 * 1024
	slowTierMedium = 1 * 1024 * 1024
	fastTierLow    = 100 * 1024
	fastTierMedium = 200 * 1024
)

// ErrOutOfMemory is returned when neither memory class can satisfy the
// minimum buffer requirement. Fatal to initialization, never degraded silently.
var ErrOutOfMemory = errors.New(errors.NewStd("no memory class can hold a frame buffer")).
	Component(ComponentFramePool).
	Category(errors.CategoryResource).
	Context("resource", "frame_memory").
	Build()

// Availability reports the free bytes in each memory class.
type Availability struct {
	FreeFast uint64
	FreeSlow uint64
}

// Probe samples current memory availability. Available physical memory maps
// to the fast class and free swap to the slow class.
func Probe() (Availability, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Availability{}, errors.Wrap(err).
			Component(ComponentFramePool).
			Category(errors.CategoryResource).
			Context("operation", "probe_virtual_memory").
			Build()
	}

	sm, err := mem.SwapMemory()
	if err != nil {
		return Availability{}, errors.Wrap(err).
			Component(ComponentFramePool).
			Category(errors.CategoryResource).
			Context("operation", "probe_swap_memory").
			Build()
	}

	return Availability{FreeFast: vm.Available, FreeSlow: sm.Free}, nil
}

// RecommendBufferCount returns how many frame handles may be outstanding,
// between MinBufferCount and MaxBufferCount. More slow-memory headroom allows
// more buffers; scarce fast memory without slow backing forces the minimum.
func RecommendBufferCount(avail Availability) int {
	if avail.FreeSlow > 0 {
		switch {
		case avail.FreeSlow > slowTierLarge:
			return MaxBufferCount
		case avail.FreeSlow > slowTierMedium:
			return 4
		default:
			return 3
		}
	}

	switch {
	case avail.FreeFast < fastTierLow:
		return MinBufferCount
	case avail.FreeFast < fastTierMedium:
		return 2
	default:
		return 3
	}
}

// Margins holds the safety margins for ChooseLocation, in bytes.
type Margins struct {
	FastMin uint64 // fast memory kept in reserve for the control loop
	SlowMin uint64 // minimum slow memory required to place a buffer there
}

// DefaultMargins returns the margins used when none are configured.
func DefaultMargins() Margins {
	return Margins{FastMin: fastTierLow, SlowMin: 512 * 1024}
}

// ChooseLocation picks the memory class for the next buffer allocation.
// Fast memory is preferred only while its headroom exceeds the safety margin,
// then slow memory, otherwise ErrOutOfMemory.
func ChooseLocation(freeFast, freeSlow uint64, margins Margins) (MemoryClass, error) {
	if freeFast > margins.FastMin {
		return MemoryFast, nil
	}
	if freeSlow > margins.SlowMin {
		return MemorySlow, nil
	}
	return "", errors.Newf("no memory class can hold a frame buffer: fast=%d slow=%d", freeFast, freeSlow).
		Component(ComponentFramePool).
		Category(errors.CategoryResource).
		Context("free_fast_bytes", freeFast).
		Context("free_slow_bytes", freeSlow).
		Build()
}

// IsOutOfMemory reports whether err represents buffer memory exhaustion.
func IsOutOfMemory(err error) bool {
	return errors.IsCategory(err, errors.CategoryResource)
}
