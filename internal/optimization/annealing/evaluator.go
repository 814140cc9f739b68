// Package annealing implements a variable-length simulated-annealing search
// over symmetric laminate stacking sequences. The design variable is the
// half-laminate; the full sequence is the half mirrored about the mid-plane.
package annealing

import (
	"math"

	"github.com/copyleftdev/LAYUP/internal/optimization/clt"
)

const (
	// infeasibleDeflection is returned when D11 is non-positive, keeping
	// degenerate laminates comparable instead of rejecting them outright.
	infeasibleDeflection = 1e12

	// violationPenalty is the per-unit cost of a constraint violation.
	// Soft penalties keep intermediate infeasible moves navigable for the
	// annealer; hard rejection would wall off useful paths through the
	// design space.
	violationPenalty = 1e6
)

// Mirror builds the full symmetric stacking sequence from a half-sequence:
// the half concatenated with its own reverse.
func Mirror(half []float64) []float64 {
	full := make([]float64, 0, 2*len(half))
	full = append(full, half...)
	for i := len(half) - 1; i >= 0; i-- {
		full = append(full, half[i])
	}
	return full
}

// Evaluator turns a candidate stacking sequence into a scalar objective:
// deflection metric + weight + constraint penalties. It is a pure function
// of its input; two calls with the same sequence yield the same value.
type Evaluator struct {
	laminate     *clt.Laminate
	perPlyWeight float64
	minPercent   float64
}

// NewEvaluator creates an evaluator over the given laminate model.
func NewEvaluator(laminate *clt.Laminate, perPlyWeight, minPercent float64) *Evaluator {
	return &Evaluator{
		laminate:     laminate,
		perPlyWeight: perPlyWeight,
		minPercent:   minPercent,
	}
}

// Objective evaluates a half-sequence by mirroring it into a full laminate.
// This is the only entry point the annealing engine uses.
func (e *Evaluator) Objective(half []float64) float64 {
	return e.FullObjective(Mirror(half))
}

// FullObjective evaluates an arbitrary full stacking sequence.
func (e *Evaluator) FullObjective(full []float64) float64 {
	return e.DeflectionMetric(full) + e.Weight(full) + e.Penalty(full)
}

// DeflectionMetric is 1/D11 for bending about the reference axis. A stiffer
// laminate scores lower. Non-positive D11 maps to a large finite sentinel.
func (e *Evaluator) DeflectionMetric(full []float64) float64 {
	d11 := e.laminate.D11(full)
	if d11 <= 0 {
		return infeasibleDeflection
	}
	return 1 / d11
}

// Weight is the ply count times the per-ply weight.
func (e *Evaluator) Weight(full []float64) float64 {
	return float64(len(full)) * e.perPlyWeight
}

// Penalty sums the soft-constraint violations of a full sequence:
//
//   - symmetry: the first half must equal the reverse of the second half.
//     Engine-built candidates satisfy this by construction, so the check is
//     a defensive invariant for direct evaluation of arbitrary sequences.
//   - balance: the +45 and -45 ply counts must match.
//   - coverage: each orientation class {0, 90, +/-45 combined} needs at
//     least floor(N * minPercent) plies of the full laminate.
//
// The result is zero iff all constraints hold, and grows linearly with the
// violation magnitude otherwise.
func (e *Evaluator) Penalty(full []float64) float64 {
	pen := 0.0
	n := len(full)

	half := n / 2
	for i := 0; i < half; i++ {
		if full[i] != full[n-1-i] {
			pen += violationPenalty
			break
		}
	}

	var count0, count90, countP45, countM45 int
	for _, a := range full {
		switch a {
		case 0:
			count0++
		case 90:
			count90++
		case 45:
			countP45++
		case -45:
			countM45++
		}
	}

	pen += violationPenalty * math.Abs(float64(countP45-countM45))

	// Thresholds derive from the full laminate length even though the
	// search mutates only the half-sequence.
	required := int(float64(n) * e.minPercent)
	for _, count := range []int{count0, count90, countP45 + countM45} {
		if count < required {
			pen += violationPenalty * float64(required-count)
		}
	}

	return pen
}
