// Package motion implements the detection half of the capture core: a
// debounced edge trigger fed from interrupt context, a block-based
// frame-difference analyzer, and a fusion engine that combines both signals
// into a single verdict per detection cycle.
//
// The edge trigger's Signal method is the only entry point safe to call from
// an interrupt or signal-handler context; everything else runs on the control
// loop. Fusion state is mutated exclusively by the control loop, so a verdict
// cycle needs no locking beyond the engine's own config swap.
package motion
