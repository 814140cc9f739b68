package optimization

import (
	"context"
)

// Optimizer defines the interface for stacking-sequence optimizers
type Optimizer interface {
	// Optimize runs the search to completion or cancellation
	Optimize(ctx context.Context) (*Result, error)

	// BestSolution returns the best solution found so far
	BestSolution() *Solution

	// Stop gracefully stops the optimization process
	Stop()
}

// Solution is a full stacking sequence together with its objective value.
// Lower objective values are better.
type Solution struct {
	// Sequence is the full laminate stacking sequence, in degrees,
	// ordered bottom to top.
	Sequence []float64
	// Objective is deflection metric + weight + penalty.
	Objective float64
}

// PlyCount returns the number of plies in the full laminate.
func (s *Solution) PlyCount() int {
	return len(s.Sequence)
}

// Progress is a snapshot of the search state, delivered to observers at a
// configurable cadence. It carries only scalars so reporting stays decoupled
// from the numeric core.
type Progress struct {
	Iteration        int
	Temperature      float64
	CurrentObjective float64
	BestObjective    float64
	BestHalfLength   int
}

// Observer receives progress snapshots from a running optimizer.
type Observer func(Progress)

// Result contains the outcome of an optimization run
type Result struct {
	Best             *Solution
	Iterations       int
	FinalTemperature float64
}
