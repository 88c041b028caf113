package suncalc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helsinki in midsummer has long days and well-defined civil twilight.
const (
	testLat = 60.1699
	testLon = 24.9384
)

func TestGetSunEventTimes(t *testing.T) {
	t.Parallel()

	sc := NewSunCalc(testLat, testLon)
	date := time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC)

	times, err := sc.GetSunEventTimes(date)
	require.NoError(t, err)

	assert.True(t, times.CivilDawn.Before(times.Sunrise))
	assert.True(t, times.Sunrise.Before(times.Sunset))
	assert.True(t, times.Sunset.Before(times.CivilDusk))
}

func TestGetSunEventTimesCached(t *testing.T) {
	t.Parallel()

	sc := NewSunCalc(testLat, testLon)
	date := time.Date(2025, 6, 21, 6, 0, 0, 0, time.UTC)

	first, err := sc.GetSunEventTimes(date)
	require.NoError(t, err)

	second, err := sc.GetSunEventTimes(date.Add(4 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, second, "same date must hit the cache")
}

func TestIsLowLight(t *testing.T) {
	t.Parallel()

	sc := NewSunCalc(testLat, testLon)

	noon := time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC)
	assert.False(t, sc.IsLowLight(noon))

	// Midwinter midnight is dark even in midsummer latitudes.
	midnight := time.Date(2025, 12, 21, 0, 30, 0, 0, time.UTC)
	assert.True(t, sc.IsLowLight(midnight))
}

func TestIsLowLightPolarFallback(t *testing.T) {
	t.Parallel()

	// Longyearbyen in midwinter: the sun never reaches civil depression,
	// so the fixed-hours heuristic applies.
	sc := NewSunCalc(78.2232, 15.6267)

	night := time.Date(2025, 12, 21, 23, 0, 0, 0, time.UTC)
	assert.True(t, sc.IsLowLight(night))

	midday := time.Date(2025, 12, 21, 13, 0, 0, 0, time.UTC)
	assert.False(t, sc.IsLowLight(midday))
}
