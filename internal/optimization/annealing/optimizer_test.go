package annealing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/LAYUP/internal/optimization"
	"github.com/copyleftdev/LAYUP/internal/optimization/clt"
)

// testConfig returns a valid baseline configuration that individual tests
// override as needed.
func testConfig() Config {
	return Config{
		Material:           clt.Constants{E1: 89e9, E2: 8e9, G12: 4.5e9, Nu12: 0.3},
		PlyThickness:       0.001,
		AllowedAngles:      []float64{0, 45, -45, 90},
		MinPercent:         0.1,
		MinFullPlies:       4,
		MaxFullPlies:       40,
		PerPlyWeight:       0.005,
		Iterations:         10000,
		InitialTemperature: 1.0,
		CoolingRate:        0.999,
		Seed:               42,
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty angles", func(c *Config) { c.AllowedAngles = nil }},
		{"duplicate angles", func(c *Config) { c.AllowedAngles = []float64{0, 45, 45} }},
		{"min percent above one", func(c *Config) { c.MinPercent = 1.5 }},
		{"negative min percent", func(c *Config) { c.MinPercent = -0.1 }},
		{"odd ply bound", func(c *Config) { c.MinFullPlies = 5 }},
		{"zero max plies", func(c *Config) { c.MaxFullPlies = 0 }},
		{"min above max", func(c *Config) { c.MinFullPlies = 40; c.MaxFullPlies = 4 }},
		{"zero per-ply weight", func(c *Config) { c.PerPlyWeight = 0 }},
		{"zero iterations", func(c *Config) { c.Iterations = 0 }},
		{"zero temperature", func(c *Config) { c.InitialTemperature = 0 }},
		{"cooling rate one", func(c *Config) { c.CoolingRate = 1 }},
		{"cooling rate zero", func(c *Config) { c.CoolingRate = 0 }},
		{"negative modulus", func(c *Config) { c.Material.E1 = -1 }},
		{"zero ply thickness", func(c *Config) { c.PlyThickness = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			opt, err := New(cfg)
			require.Error(t, err)
			assert.Nil(t, opt)
		})
	}
}

func TestOptimizeAllZeroDegenerate(t *testing.T) {
	// With a single allowed angle and a fixed ply count the search space is
	// a single point: a 4-ply all-0 laminate with zero penalty.
	cfg := testConfig()
	cfg.AllowedAngles = []float64{0}
	cfg.MinPercent = 0
	cfg.MinFullPlies = 4
	cfg.MaxFullPlies = 4
	cfg.Iterations = 100

	opt, err := New(cfg)
	require.NoError(t, err)

	result, err := opt.Optimize(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Best)

	assert.Equal(t, []float64{0, 0, 0, 0}, result.Best.Sequence)
	assert.True(t, result.Best.Objective > 0, "objective should be positive")
	assert.False(t, math.IsInf(result.Best.Objective, 0), "objective should be finite")
	assert.Less(t, result.Best.Objective, float64(violationPenalty), "objective should carry no penalty")
}

func TestOptimizeReachesFeasibleEightPly(t *testing.T) {
	// With minPercent = 0.25 and a fixed 8-ply laminate, two plies each of
	// 0, 90, +45, -45 arranged symmetrically are feasible; the search must
	// drive the penalty to zero.
	cfg := testConfig()
	cfg.MinPercent = 0.25
	cfg.MinFullPlies = 8
	cfg.MaxFullPlies = 8
	cfg.Iterations = 50000
	cfg.Seed = 7

	opt, err := New(cfg)
	require.NoError(t, err)

	result, err := opt.Optimize(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Best)

	assert.Len(t, result.Best.Sequence, 8)
	assert.Less(t, result.Best.Objective, float64(violationPenalty),
		"best solution should be penalty-free")

	// Verify feasibility directly on the returned sequence.
	e := testEvaluator(t, cfg.MinPercent)
	assert.Zero(t, e.Penalty(result.Best.Sequence))
}

func TestOptimizeBestMonotonic(t *testing.T) {
	cfg := testConfig()
	cfg.Iterations = 5000
	cfg.ReportEvery = 1

	var bests []float64
	cfg.Observer = func(p optimization.Progress) {
		bests = append(bests, p.BestObjective)
	}

	opt, err := New(cfg)
	require.NoError(t, err)

	result, err := opt.Optimize(context.Background())
	require.NoError(t, err)

	require.Len(t, bests, cfg.Iterations)
	for i := 1; i < len(bests); i++ {
		assert.LessOrEqual(t, bests[i], bests[i-1],
			"best objective must never regress (iteration %d)", i)
	}
	assert.Equal(t, bests[len(bests)-1], result.Best.Objective)
}

func TestOptimizeTemperatureDecay(t *testing.T) {
	cfg := testConfig()
	cfg.Iterations = 2000
	cfg.ReportEvery = 100

	var temps []float64
	cfg.Observer = func(p optimization.Progress) {
		temps = append(temps, p.Temperature)
	}

	opt, err := New(cfg)
	require.NoError(t, err)

	result, err := opt.Optimize(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, temps)
	for i := 1; i < len(temps); i++ {
		assert.Less(t, temps[i], temps[i-1], "temperature must decay")
		assert.Greater(t, temps[i], 0.0, "temperature must stay positive")
	}
	assert.InDelta(t, math.Pow(cfg.CoolingRate, float64(cfg.Iterations)),
		result.FinalTemperature, 1e-9)
}

func TestOptimizeDeterministicWithSeed(t *testing.T) {
	run := func() *optimization.Result {
		cfg := testConfig()
		cfg.Iterations = 3000
		cfg.Seed = 1234

		opt, err := New(cfg)
		require.NoError(t, err)

		result, err := opt.Optimize(context.Background())
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()

	assert.Equal(t, first.Best.Sequence, second.Best.Sequence)
	assert.Equal(t, first.Best.Objective, second.Best.Objective)
}

func TestOptimizeSequenceInvariants(t *testing.T) {
	cfg := testConfig()
	cfg.Iterations = 5000

	opt, err := New(cfg)
	require.NoError(t, err)

	result, err := opt.Optimize(context.Background())
	require.NoError(t, err)

	seq := result.Best.Sequence
	n := len(seq)

	assert.Zero(t, n%2, "full laminate length must be even")
	assert.GreaterOrEqual(t, n, cfg.MinFullPlies)
	assert.LessOrEqual(t, n, cfg.MaxFullPlies)

	allowed := map[float64]bool{0: true, 45: true, -45: true, 90: true}
	for i, a := range seq {
		assert.True(t, allowed[a], "angle %v at %d not in allowed set", a, i)
		assert.Equal(t, seq[n-1-i], a, "full laminate must be symmetric")
	}
}

func TestOptimizeCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Iterations = 1000000

	opt, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := opt.Optimize(ctx)
	require.Error(t, err, "should return error when context is cancelled")
	assert.Nil(t, result, "should not return result when cancelled")
}

func TestStop(t *testing.T) {
	cfg := testConfig()
	cfg.Iterations = 200

	opt, err := New(cfg)
	require.NoError(t, err)

	// Stop before Optimize is a no-op.
	opt.Stop()

	_, err = opt.Optimize(context.Background())
	require.NoError(t, err)
}

func TestBestSolutionCopies(t *testing.T) {
	cfg := testConfig()
	cfg.Iterations = 500

	opt, err := New(cfg)
	require.NoError(t, err)

	_, err = opt.Optimize(context.Background())
	require.NoError(t, err)

	first := opt.BestSolution()
	require.NotNil(t, first)
	first.Sequence[0] = 1234

	second := opt.BestSolution()
	assert.NotEqual(t, 1234.0, second.Sequence[0], "BestSolution must return a copy")
}
