package camera

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/thewriterben/wildcam-go/internal/framepool"
)

// FrameHandle is the ownership token for one captured image buffer. The pixel
// buffer is exclusively owned by whichever component currently holds the
// handle; it is transferred, never copied, never aliased.
type FrameHandle struct {
	ID        uuid.UUID
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
	Class     framepool.MemoryClass
}

// Len returns the byte length of the pixel buffer.
func (h *FrameHandle) Len() int {
	return len(h.Data)
}

// FrameDescriptor is the view of a frame passed by reference to the inference
// collaborator. The receiver must not retain it past the call.
type FrameDescriptor struct {
	Data      []byte
	Length    int
	Width     int
	Height    int
	Timestamp time.Time
}

// Descriptor returns the frame descriptor for the inference collaborator.
func (h *FrameHandle) Descriptor() FrameDescriptor {
	return FrameDescriptor{
		Data:      h.Data,
		Length:    len(h.Data),
		Width:     h.Width,
		Height:    h.Height,
		Timestamp: h.Timestamp,
	}
}

// FrameSize enumerates supported capture resolutions, largest first.
type FrameSize int

const (
	FrameSizeUXGA FrameSize = iota // 1600x1200
	FrameSizeSXGA                  // 1280x1024
	FrameSizeSVGA                  // 800x600
	FrameSizeVGA                   // 640x480
	FrameSizeQVGA                  // 320x240
)

// Dimensions returns the pixel dimensions of the frame size.
func (fs FrameSize) Dimensions() (width, height int) {
	switch fs {
	case FrameSizeUXGA:
		return 1600, 1200
	case FrameSizeSXGA:
		return 1280, 1024
	case FrameSizeSVGA:
		return 800, 600
	case FrameSizeVGA:
		return 640, 480
	case FrameSizeQVGA:
		return 320, 240
	default:
		return 800, 600
	}
}

func (fs FrameSize) String() string {
	switch fs {
	case FrameSizeUXGA:
		return "UXGA"
	case FrameSizeSXGA:
		return "SXGA"
	case FrameSizeSVGA:
		return "SVGA"
	case FrameSizeVGA:
		return "VGA"
	case FrameSizeQVGA:
		return "QVGA"
	default:
		return "unknown"
	}
}

// SmallestFrameSize is forced by the power controller in the CRITICAL state.
const SmallestFrameSize = FrameSizeQVGA

// GainProfile carries the sensor settings applied for a lighting or power
// condition. Values follow the sensor's native ranges: brightness, contrast
// and AE level -2..2, gain ceiling as a power-of-two multiplier.
type GainProfile struct {
	Brightness  int
	Contrast    int
	AELevel     int
	GainCeiling int // 2, 16, 32 or 64
}

// CapturePort is the hardware capture interface. Acquire blocks until a frame
// is available or the context deadline expires; every returned handle must be
// passed back to Release exactly once. Implementations live outside this
// module (board HALs, simulators).
type CapturePort interface {
	Acquire(ctx context.Context) (*FrameHandle, error)
	Release(h *FrameHandle) error
	Reinitialize() error
	ConfigureSensor(profile GainProfile) error
	SetFrameSize(size FrameSize) error
}
