package annealing

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/copyleftdev/LAYUP/internal/optimization"
	"github.com/copyleftdev/LAYUP/internal/optimization/clt"
)

// Config contains the full configuration for a layup annealing run.
type Config struct {
	// Material holds the engineering constants of the ply material.
	Material clt.Constants

	// PlyThickness is the uniform ply thickness in meters.
	PlyThickness float64

	// AllowedAngles is the discrete set of ply orientations, in degrees.
	AllowedAngles []float64

	// MinPercent is the minimum fraction of the full laminate required in
	// each orientation class (0, 90, +/-45 combined).
	MinPercent float64

	// MinFullPlies and MaxFullPlies bound the full (symmetric) laminate.
	// Both must be positive and even; the search works on the halves.
	MinFullPlies int
	MaxFullPlies int

	// PerPlyWeight is the weight contribution of a single ply (kg).
	PerPlyWeight float64

	// Iterations is the fixed iteration budget. Termination is by count
	// only; there is no convergence-based early stop.
	Iterations int

	// InitialTemperature and CoolingRate define the geometric cooling
	// schedule T *= CoolingRate per iteration.
	InitialTemperature float64
	CoolingRate        float64

	// Seed seeds the random number generator. Zero selects a time-based
	// seed; any other value makes the run reproducible.
	Seed int64

	// ReportEvery is the observer cadence in iterations. Zero disables
	// progress reporting.
	ReportEvery int

	// Observer receives progress snapshots. Optional.
	Observer optimization.Observer
}

// validate checks the fatal configuration errors before the search starts.
func (c *Config) validate() error {
	if len(c.AllowedAngles) == 0 {
		return optimization.NewError("allowed angles must not be empty").
			WithComponent("annealing").WithOperation("validate")
	}
	seen := make(map[float64]struct{}, len(c.AllowedAngles))
	for _, a := range c.AllowedAngles {
		if _, dup := seen[a]; dup {
			return optimization.NewErrorf("allowed angles must be distinct, %v repeats", a).
				WithComponent("annealing").WithOperation("validate")
		}
		seen[a] = struct{}{}
	}
	if c.MinPercent < 0 || c.MinPercent > 1 {
		return optimization.NewErrorf("min percent must be in [0,1], got %v", c.MinPercent).
			WithComponent("annealing").WithOperation("validate")
	}
	if c.MinFullPlies <= 0 || c.MaxFullPlies <= 0 {
		return optimization.NewErrorf("ply bounds must be positive, got min=%d max=%d",
			c.MinFullPlies, c.MaxFullPlies).WithComponent("annealing").WithOperation("validate")
	}
	if c.MinFullPlies%2 != 0 || c.MaxFullPlies%2 != 0 {
		return optimization.NewErrorf("ply bounds must be even for a symmetric laminate, got min=%d max=%d",
			c.MinFullPlies, c.MaxFullPlies).WithComponent("annealing").WithOperation("validate")
	}
	if c.MinFullPlies > c.MaxFullPlies {
		return optimization.NewErrorf("min plies %d exceeds max plies %d", c.MinFullPlies, c.MaxFullPlies).
			WithComponent("annealing").WithOperation("validate")
	}
	if c.PerPlyWeight <= 0 {
		return optimization.NewErrorf("per-ply weight must be positive, got %v", c.PerPlyWeight).
			WithComponent("annealing").WithOperation("validate")
	}
	if c.Iterations <= 0 {
		return optimization.NewErrorf("iterations must be positive, got %d", c.Iterations).
			WithComponent("annealing").WithOperation("validate")
	}
	if c.InitialTemperature <= 0 {
		return optimization.NewErrorf("initial temperature must be positive, got %v", c.InitialTemperature).
			WithComponent("annealing").WithOperation("validate")
	}
	if c.CoolingRate <= 0 || c.CoolingRate >= 1 {
		return optimization.NewErrorf("cooling rate must be in (0,1), got %v", c.CoolingRate).
			WithComponent("annealing").WithOperation("validate")
	}
	return nil
}

// Optimizer searches for a symmetric stacking sequence that maximizes
// bending stiffness while minimizing weight, under balance and coverage
// constraints expressed as soft penalties. It implements
// optimization.Optimizer.
type Optimizer struct {
	cfg       Config
	evaluator *Evaluator
	rng       *rand.Rand

	minHalf int
	maxHalf int

	// mu guards best, which the server reads while the search runs.
	mu   sync.RWMutex
	best *optimization.Solution

	cancel context.CancelFunc
}

// New creates an annealing optimizer. All configuration errors are caught
// here, before the search loop; runtime numeric edge cases are expressed as
// penalties inside the evaluator instead.
func New(cfg Config) (*Optimizer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	material, err := clt.NewMaterial(cfg.Material)
	if err != nil {
		return nil, err
	}
	laminate, err := clt.NewLaminate(material, cfg.PlyThickness)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Optimizer{
		cfg:       cfg,
		evaluator: NewEvaluator(laminate, cfg.PerPlyWeight, cfg.MinPercent),
		rng:       rand.New(rand.NewSource(seed)),
		minHalf:   cfg.MinFullPlies / 2,
		maxHalf:   cfg.MaxFullPlies / 2,
	}, nil
}

// Optimize runs the annealing loop for the configured iteration budget and
// returns the best full sequence found, mirrored from the best half.
func (o *Optimizer) Optimize(ctx context.Context) (*optimization.Result, error) {
	ctx, o.cancel = context.WithCancel(ctx)
	defer o.cancel()

	current := o.randomHalf()
	currentObj := o.evaluator.Objective(current)

	bestHalf := append([]float64(nil), current...)
	bestObj := currentObj
	o.storeBest(bestHalf, bestObj)

	temperature := o.cfg.InitialTemperature

	for it := 0; it < o.cfg.Iterations; it++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		candidate := o.propose(current)
		candidateObj := o.evaluator.Objective(candidate)

		// Metropolis acceptance: always take improvements, take worsening
		// moves with probability exp(-delta/T).
		delta := candidateObj - currentObj
		if delta < 0 || o.rng.Float64() < math.Exp(-delta/temperature) {
			current = candidate
			currentObj = candidateObj

			if currentObj < bestObj {
				bestHalf = append([]float64(nil), current...)
				bestObj = currentObj
				o.storeBest(bestHalf, bestObj)
			}
		}

		temperature *= o.cfg.CoolingRate

		if o.cfg.Observer != nil && o.cfg.ReportEvery > 0 && (it+1)%o.cfg.ReportEvery == 0 {
			o.cfg.Observer(optimization.Progress{
				Iteration:        it + 1,
				Temperature:      temperature,
				CurrentObjective: currentObj,
				BestObjective:    bestObj,
				BestHalfLength:   len(bestHalf),
			})
		}
	}

	return &optimization.Result{
		Best:             o.BestSolution(),
		Iterations:       o.cfg.Iterations,
		FinalTemperature: temperature,
	}, nil
}

// BestSolution returns the best solution found so far, as a full mirrored
// sequence. Safe to call while Optimize is running.
func (o *Optimizer) BestSolution() *optimization.Solution {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.best == nil {
		return nil
	}
	return &optimization.Solution{
		Sequence:  append([]float64(nil), o.best.Sequence...),
		Objective: o.best.Objective,
	}
}

// Stop cancels a running optimization.
func (o *Optimizer) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
}

// randomHalf draws the initial half-sequence: uniform length within
// [minHalf, maxHalf], each position uniform over the allowed angles.
func (o *Optimizer) randomHalf() []float64 {
	length := o.minHalf + o.rng.Intn(o.maxHalf-o.minHalf+1)
	half := make([]float64, length)
	for i := range half {
		half[i] = o.cfg.AllowedAngles[o.rng.Intn(len(o.cfg.AllowedAngles))]
	}
	return half
}

// propose applies one uniformly chosen legal move to a copy of the current
// half-sequence.
func (o *Optimizer) propose(current []float64) []float64 {
	moves := legalMoves(len(current), o.minHalf, o.maxHalf)
	switch moves[o.rng.Intn(len(moves))] {
	case moveInsert:
		return applyInsert(current, o.cfg.AllowedAngles, o.rng)
	case moveDelete:
		return applyDelete(current, o.rng)
	default:
		return applyChange(current, o.cfg.AllowedAngles, o.rng)
	}
}

func (o *Optimizer) storeBest(half []float64, objective float64) {
	o.mu.Lock()
	o.best = &optimization.Solution{
		Sequence:  Mirror(half),
		Objective: objective,
	}
	o.mu.Unlock()
}
