package errors

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	t.Parallel()

	err := Newf("capture failed after %d attempts", 3).
		Component("capture").
		Category(CategoryCapture).
		Context("deadline_ms", 5000).
		Build()

	require.NotNil(t, err)
	assert.Equal(t, "capture failed after 3 attempts", err.Error())
	assert.Equal(t, "capture", err.Component)
	assert.Equal(t, CategoryCapture, err.Category)
	assert.Equal(t, 5000, err.Context["deadline_ms"])
	assert.WithinDuration(t, time.Now(), err.Timestamp, time.Second)
}

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	err := New(io.EOF).Build()
	assert.Equal(t, ComponentUnknown, err.Component)
	assert.Equal(t, CategoryGeneric, err.Category)
}

func TestUnwrapPreservesSentinel(t *testing.T) {
	t.Parallel()

	err := Wrap(io.ErrUnexpectedEOF).
		Component("camera").
		Category(CategoryHardware).
		Build()

	assert.True(t, Is(err, io.ErrUnexpectedEOF))
}

func TestIsMatchesByCategory(t *testing.T) {
	t.Parallel()

	a := Newf("a").Category(CategoryTimeout).Build()
	b := Newf("b").Category(CategoryTimeout).Build()
	c := Newf("c").Category(CategoryHardware).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestIsCategoryHelpers(t *testing.T) {
	t.Parallel()

	timeout := Newf("deadline exceeded").Category(CategoryTimeout).Build()
	hw := Newf("sensor fault").Category(CategoryHardware).Build()

	assert.True(t, IsTimeout(timeout))
	assert.False(t, IsTimeout(hw))
	assert.True(t, IsHardware(hw))
	assert.True(t, IsCategory(timeout, CategoryTimeout))
}

func TestPriorityValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "valid_critical", in: PriorityCritical, want: PriorityCritical},
		{name: "invalid_falls_back_to_medium", in: "urgent", want: PriorityMedium},
		{name: "empty_stays_empty", in: "", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Newf("x").Priority(tt.in).Build()
			assert.Equal(t, tt.want, err.Priority)
		})
	}
}

func TestGetContextReturnsCopy(t *testing.T) {
	t.Parallel()

	err := Newf("x").Context("k", "v").Build()
	ctx := err.GetContext()
	ctx["k"] = "mutated"
	assert.Equal(t, "v", err.Context["k"])
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	err := ValidationError("cooldown must be non-negative")
	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, "cooldown must be non-negative", err.Error())
}

func TestErrorWithoutUnderlying(t *testing.T) {
	t.Parallel()

	err := New(nil).
		Component("camera").
		Category(CategoryState).
		Build()

	assert.NotEmpty(t, err.Error())
	assert.Contains(t, err.Error(), "camera")
	assert.Contains(t, err.Error(), string(CategoryState))
	assert.Nil(t, err.Unwrap())
}
