// Package camera implements the frame acquisition pipeline: it drives the
// hardware capture port under a per-capture deadline, hands completed frames
// off through a bounded non-blocking queue, and records capture statistics.
//
// Ownership model:
//
//	port -> pipeline -> handoff queue -> consumer -> port
//
// A FrameHandle is exclusively owned by whichever component currently holds
// it. Ownership transfers are unidirectional and the handle is returned to
// the port exactly once, on every code path including failure paths. The
// framepool.Tracker ledger enforces this at runtime.
package camera
