package power

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewriterben/wildcam-go/internal/camera"
)

func TestParseState(t *testing.T) {
	t.Parallel()

	for _, s := range AllStates() {
		state, err := ParseState(s)
		require.NoError(t, err)
		assert.Equal(t, s, state.String())
	}

	state, err := ParseState(" Charging ")
	require.NoError(t, err)
	assert.Equal(t, StateCharging, state)

	_, err = ParseState("plugged_in")
	assert.Error(t, err)
}

func TestEvaluateCritical(t *testing.T) {
	t.Parallel()

	rec := Evaluate(StateCritical)
	assert.Equal(t, 2*time.Second, rec.CaptureDeadline)
	assert.Equal(t, 1, rec.BufferCount)
	assert.True(t, rec.ForceFrameSize)
	assert.Equal(t, camera.SmallestFrameSize, rec.FrameSize)
	assert.Equal(t, 64, rec.Gain.GainCeiling)
}

func TestEvaluateDeadlinesMonotonic(t *testing.T) {
	t.Parallel()

	normal := Evaluate(StateNormal)
	save := Evaluate(StatePowerSave)
	low := Evaluate(StateLow)
	critical := Evaluate(StateCritical)

	assert.Equal(t, 5*time.Second, normal.CaptureDeadline)
	assert.Greater(t, normal.CaptureDeadline, save.CaptureDeadline)
	assert.Greater(t, save.CaptureDeadline, low.CaptureDeadline)
	assert.Greater(t, low.CaptureDeadline, critical.CaptureDeadline)
	assert.Equal(t, 2*time.Second, critical.CaptureDeadline)
}

func TestEvaluateSaverStatesCapBuffers(t *testing.T) {
	t.Parallel()

	for _, state := range []State{StatePowerSave, StateLow, StateCritical} {
		rec := Evaluate(state)
		assert.Equal(t, 1, rec.BufferCount, "state %s must cap buffers", state)
		assert.Equal(t, state == StateCritical, rec.ForceFrameSize,
			"only critical forces frame size")
	}
}

func TestEvaluateGainCeilingsEscalate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, Evaluate(StateNormal).Gain.GainCeiling)
	assert.Equal(t, 16, Evaluate(StatePowerSave).Gain.GainCeiling)
	assert.Equal(t, 32, Evaluate(StateLow).Gain.GainCeiling)
	assert.Equal(t, 64, Evaluate(StateCritical).Gain.GainCeiling)
	assert.Equal(t, 2, Evaluate(StateCharging).Gain.GainCeiling)
}

func TestEvaluateChargingBiasesQuality(t *testing.T) {
	t.Parallel()

	rec := Evaluate(StateCharging)
	assert.Equal(t, 3, rec.BufferCount)
	assert.Equal(t, 5*time.Second, rec.CaptureDeadline)
	assert.Equal(t, 1, rec.Gain.Brightness)
	assert.Equal(t, 1, rec.Gain.Contrast)
	assert.False(t, rec.ForceFrameSize)
}

func TestEvaluateUnknownStateFallsBackToNormal(t *testing.T) {
	t.Parallel()

	rec := Evaluate(State("haywire"))
	assert.Equal(t, StateNormal, rec.State)
	assert.Equal(t, 5*time.Second, rec.CaptureDeadline)
}

func TestApplyDelta(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.4, ApplyDelta(0.5, -0.1), 1e-9)
	assert.InDelta(t, 0.0, ApplyDelta(0.2, -0.5), 1e-9)
	assert.InDelta(t, 1.0, ApplyDelta(0.95, 0.1), 1e-9)
}
