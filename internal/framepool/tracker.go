package framepool

import (
	"sync"

	"github.com/google/uuid"

	"github.com/thewriterben/wildcam-go/internal/errors"
)

// Tracker is a ledger of outstanding frame handles. It enforces the
// single-owner lifecycle: every acquired handle is released exactly once, to
// the memory class it was acquired from. A violation is reported as an error
// without corrupting the ledger.
type Tracker struct {
	mu          sync.Mutex
	outstanding map[uuid.UUID]MemoryClass

	acquired uint64
	released uint64
	rejected uint64
}

// NewTracker creates an empty handle ledger.
func NewTracker() *Tracker {
	return &Tracker{outstanding: make(map[uuid.UUID]MemoryClass)}
}

// Track records a newly acquired handle.
func (t *Tracker) Track(id uuid.UUID, class MemoryClass) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.outstanding[id]; exists {
		t.rejected++
		return errors.Newf("handle %s already tracked", id).
			Component(ComponentFramePool).
			Category(errors.CategoryState).
			Context("handle_id", id.String()).
			Build()
	}
	t.outstanding[id] = class
	t.acquired++
	return nil
}

// Release removes a handle from the ledger. Releasing an unknown handle
// (double release) or releasing to the wrong memory class is rejected.
func (t *Tracker) Release(id uuid.UUID, class MemoryClass) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	got, exists := t.outstanding[id]
	if !exists {
		t.rejected++
		return errors.Newf("handle %s released twice or never acquired", id).
			Component(ComponentFramePool).
			Category(errors.CategoryState).
			Context("handle_id", id.String()).
			Build()
	}
	if got != class {
		t.rejected++
		return errors.Newf("handle %s acquired from %s memory but released to %s", id, got, class).
			Component(ComponentFramePool).
			Category(errors.CategoryState).
			Context("handle_id", id.String()).
			Context("acquired_class", string(got)).
			Context("released_class", string(class)).
			Build()
	}

	delete(t.outstanding, id)
	t.released++
	return nil
}

// Outstanding returns the number of handles currently held somewhere in the
// pipeline, queue or a consumer.
func (t *Tracker) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.outstanding)
}

// Reclaim forgets every outstanding handle and returns their IDs. Used by the
// failure recovery ladder when the queue is flushed and handles may have
// leaked past a crashed consumer.
func (t *Tracker) Reclaim() []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	leaked := make([]uuid.UUID, 0, len(t.outstanding))
	for id := range t.outstanding {
		leaked = append(leaked, id)
	}
	t.outstanding = make(map[uuid.UUID]MemoryClass)
	return leaked
}

// TrackerStats is a snapshot of ledger counters.
type TrackerStats struct {
	Acquired    uint64
	Released    uint64
	Rejected    uint64
	Outstanding int
}

// Stats returns a snapshot of the ledger counters.
func (t *Tracker) Stats() TrackerStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrackerStats{
		Acquired:    t.acquired,
		Released:    t.released,
		Rejected:    t.rejected,
		Outstanding: len(t.outstanding),
	}
}
