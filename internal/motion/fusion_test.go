package motion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewriterben/wildcam-go/internal/errors"
)

func testConfig() Config {
	return Config{
		Policy:              PolicyEitherSuffices,
		EdgeSensitivity:     0.7,
		DiffSensitivity:     0.5,
		Cooldown:            2 * time.Second,
		ConfidenceThreshold: 0.3,
		FalsePositiveFilter: true,
		MinMotionBlocks:     5,
	}
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"edge_only", "difference_only", "both_required", "either_suffices", "adaptive"} {
		p, err := ParsePolicy(s)
		require.NoError(t, err)
		assert.Equal(t, s, p.String())
	}

	p, err := ParsePolicy(" Both_Required ")
	require.NoError(t, err)
	assert.Equal(t, PolicyBothRequired, p)

	_, err = ParsePolicy("pir_or_camera")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, testConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown policy", func(c *Config) { c.Policy = "psychic" }},
		{"negative cooldown", func(c *Config) { c.Cooldown = -time.Second }},
		{"edge sensitivity above one", func(c *Config) { c.EdgeSensitivity = 1.5 }},
		{"negative diff sensitivity", func(c *Config) { c.DiffSensitivity = -0.1 }},
		{"threshold above one", func(c *Config) { c.ConfidenceThreshold = 2 }},
		{"negative min blocks", func(c *Config) { c.MinMotionBlocks = -1 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		})
	}
}

func TestBothRequiredCombinedConfidence(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Policy = PolicyBothRequired
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	v := e.Evaluate(time.Now(), Inputs{
		EdgeTriggered: true,
		DiffMotion:    true,
		DiffScore:     0.5,
		DiffBlocks:    12,
	})

	assert.True(t, v.Triggered)
	assert.Equal(t, PolicyBothRequired, v.Policy)
	assert.InDelta(t, 0.816, v.Confidence, 1e-9)
	assert.InDelta(t, 0.8, v.EdgeConfidence, 1e-9)
	assert.InDelta(t, 0.5, v.DiffConfidence, 1e-9)
}

func TestBothRequiredNeedsBothSources(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Policy = PolicyBothRequired
	cfg.Cooldown = 0
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	v := e.Evaluate(time.Now(), Inputs{EdgeTriggered: true})
	assert.False(t, v.Triggered)
	assert.InDelta(t, 0.8*edgeWeight, v.Confidence, 1e-9)

	v = e.Evaluate(time.Now(), Inputs{DiffMotion: true, DiffScore: 0.9, DiffBlocks: 20})
	assert.False(t, v.Triggered)
}

func TestConfidenceCappedAtOne(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Policy = PolicyBothRequired
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	v := e.Evaluate(time.Now(), Inputs{
		EdgeTriggered: true,
		DiffMotion:    true,
		DiffScore:     1.0,
		DiffBlocks:    50,
	})
	assert.True(t, v.Triggered)
	assert.InDelta(t, 1.0, v.Confidence, 1e-9)
}

func TestEitherSufficesUsesWeightedMax(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	v := e.Evaluate(time.Now(), Inputs{EdgeTriggered: true})
	assert.True(t, v.Triggered)
	assert.InDelta(t, 0.8*edgeWeight, v.Confidence, 1e-9)
}

func TestEdgeOnlyFixedConfidence(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Policy = PolicyEdgeOnly
	cfg.Cooldown = 0
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	v := e.Evaluate(time.Now(), Inputs{EdgeTriggered: true})
	assert.True(t, v.Triggered)
	assert.InDelta(t, 0.8, v.Confidence, 1e-9)

	v = e.Evaluate(time.Now(), Inputs{DiffMotion: true, DiffScore: 0.9, DiffBlocks: 20})
	assert.False(t, v.Triggered, "frame difference must be ignored")
	assert.InDelta(t, 0.0, v.Confidence, 1e-9)
}

func TestDifferenceOnlyUsesScore(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Policy = PolicyDifferenceOnly
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	v := e.Evaluate(time.Now(), Inputs{DiffMotion: true, DiffScore: 0.45, DiffBlocks: 9})
	assert.True(t, v.Triggered)
	assert.InDelta(t, 0.45, v.Confidence, 1e-9)
}

func TestCooldownSuppressesDetection(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	now := time.Now()
	first := e.Evaluate(now, Inputs{EdgeTriggered: true})
	require.True(t, first.Triggered)

	during := e.Evaluate(now.Add(500*time.Millisecond), Inputs{EdgeTriggered: true})
	assert.False(t, during.Triggered)
	assert.True(t, during.Cooldown)

	after := e.Evaluate(now.Add(3*time.Second), Inputs{EdgeTriggered: true})
	assert.True(t, after.Triggered)

	stats := e.Stats()
	assert.Equal(t, uint64(3), stats.Cycles)
	assert.Equal(t, uint64(2), stats.Verdicts)
	assert.Equal(t, uint64(1), stats.CooldownSkips)
}

func TestThresholdGateRejects(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Policy = PolicyDifferenceOnly
	cfg.ConfidenceThreshold = 0.5
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	v := e.Evaluate(time.Now(), Inputs{DiffMotion: true, DiffScore: 0.4, DiffBlocks: 10})
	assert.False(t, v.Triggered)
	assert.True(t, v.BelowThreshold)
	assert.False(t, v.Filtered)

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.ThresholdRejections)
	assert.Equal(t, uint64(0), stats.FilteredFalsePositives)
}

func TestSparseDifferenceFilteredAsFalsePositive(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Policy = PolicyDifferenceOnly
	cfg.ConfidenceThreshold = 0.1
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	v := e.Evaluate(time.Now(), Inputs{DiffMotion: true, DiffScore: 0.15, DiffBlocks: 3})
	assert.False(t, v.Triggered)
	assert.True(t, v.Filtered)
	assert.False(t, v.BelowThreshold)

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.FilteredFalsePositives)
	assert.Equal(t, uint64(0), stats.ThresholdRejections,
		"a filtered false positive is not a threshold rejection")
}

func TestFalsePositiveFilterRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		in         Inputs
		confidence float64
		minBlocks  int
		accept     bool
	}{
		{
			name:       "below filter floor",
			in:         Inputs{DiffMotion: true, DiffScore: 0.25, DiffBlocks: 10},
			confidence: 0.25,
			minBlocks:  5,
			accept:     false,
		},
		{
			name:       "agreement accepted",
			in:         Inputs{EdgeTriggered: true, DiffMotion: true, DiffScore: 0.3, DiffBlocks: 2},
			confidence: 0.5,
			minBlocks:  5,
			accept:     true,
		},
		{
			name:       "dense difference accepted",
			in:         Inputs{DiffMotion: true, DiffScore: 0.4, DiffBlocks: 9},
			confidence: 0.4,
			minBlocks:  5,
			accept:     true,
		},
		{
			name:       "sparse difference needs high confidence",
			in:         Inputs{DiffMotion: true, DiffScore: 0.45, DiffBlocks: 3},
			confidence: 0.45,
			minBlocks:  5,
			accept:     false,
		},
		{
			name:       "sparse difference with high confidence",
			in:         Inputs{DiffMotion: true, DiffScore: 0.7, DiffBlocks: 3},
			confidence: 0.7,
			minBlocks:  5,
			accept:     true,
		},
		{
			name:       "edge alone accepted",
			in:         Inputs{EdgeTriggered: true},
			confidence: 0.48,
			minBlocks:  5,
			accept:     true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.accept, passesFalsePositiveFilter(tt.in, tt.confidence, tt.minBlocks))
		})
	}
}

func TestFilterDisabledPassesThrough(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Policy = PolicyDifferenceOnly
	cfg.ConfidenceThreshold = 0.1
	cfg.FalsePositiveFilter = false
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	v := e.Evaluate(time.Now(), Inputs{DiffMotion: true, DiffScore: 0.15, DiffBlocks: 3})
	assert.True(t, v.Triggered, "filter disabled must not reject")
}

type fixedDaylight struct{ low bool }

func (f fixedDaylight) IsLowLight(time.Time) bool { return f.low }

func TestAdaptivePolicyResolution(t *testing.T) {
	t.Parallel()

	t.Run("low light prefers edge only", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Policy = PolicyAdaptive
		e, err := NewEngine(cfg, WithDaylight(fixedDaylight{low: true}))
		require.NoError(t, err)

		v := e.Evaluate(time.Now(), Inputs{DiffMotion: true, DiffScore: 0.9, DiffBlocks: 20})
		assert.Equal(t, PolicyEdgeOnly, v.Policy)
		assert.False(t, v.Triggered, "frame difference alone must not fire at night")
	})

	t.Run("daylight uses either suffices", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Policy = PolicyAdaptive
		e, err := NewEngine(cfg, WithDaylight(fixedDaylight{low: false}))
		require.NoError(t, err)

		v := e.Evaluate(time.Now(), Inputs{DiffMotion: true, DiffScore: 0.9, DiffBlocks: 20})
		assert.Equal(t, PolicyEitherSuffices, v.Policy)
		assert.True(t, v.Triggered)
	})

	t.Run("no oracle falls back to either suffices", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Policy = PolicyAdaptive
		e, err := NewEngine(cfg)
		require.NoError(t, err)

		v := e.Evaluate(time.Now(), Inputs{EdgeTriggered: true})
		assert.Equal(t, PolicyEitherSuffices, v.Policy)
	})
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(testConfig())
	require.NoError(t, err)

	bad := testConfig()
	bad.ConfidenceThreshold = 3
	require.Error(t, e.UpdateConfig(bad))
	assert.Equal(t, testConfig(), e.ConfigSnapshot(), "rejected update must not apply")

	good := testConfig()
	good.Policy = PolicyBothRequired
	require.NoError(t, e.UpdateConfig(good))
	assert.Equal(t, PolicyBothRequired, e.ConfigSnapshot().Policy)
}

func TestStatsAverageConfidence(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Cooldown = 0
	cfg.Policy = PolicyEdgeOnly
	e, err := NewEngine(cfg)
	require.NoError(t, err)

	now := time.Now()
	e.Evaluate(now, Inputs{EdgeTriggered: true})
	e.Evaluate(now.Add(time.Second), Inputs{EdgeTriggered: true})

	stats := e.Stats()
	assert.Equal(t, uint64(2), stats.Verdicts)
	assert.InDelta(t, 0.8, stats.AvgConfidence, 1e-9)

	e.ResetStats()
	assert.Equal(t, uint64(0), e.Stats().Cycles)
}
