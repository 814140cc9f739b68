package clt

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/LAYUP/internal/optimization"
)

// Laminate integrates ply stiffness over thickness for stacking sequences
// built from a single material with uniform ply thickness. Qbar matrices are
// cached per distinct angle, so evaluating a sequence is a pure accumulation.
//
// A Laminate is not safe for concurrent use; each annealing chain owns its own.
type Laminate struct {
	material  *Material
	thickness float64

	qbarCache map[float64]*mat.SymDense
}

// NewLaminate creates a laminate evaluator for the given material and ply
// thickness (meters). The thickness must be positive.
func NewLaminate(m *Material, plyThickness float64) (*Laminate, error) {
	if plyThickness <= 0 {
		return nil, optimization.NewErrorf("ply thickness must be positive, got %v", plyThickness).
			WithComponent("clt")
	}
	return &Laminate{
		material:  m,
		thickness: plyThickness,
		qbarCache: make(map[float64]*mat.SymDense),
	}, nil
}

// qbar returns the cached transformed stiffness matrix for an angle,
// computing it on first use.
func (l *Laminate) qbar(angleDeg float64) *mat.SymDense {
	if q, ok := l.qbarCache[angleDeg]; ok {
		return q
	}
	q := l.material.Qbar(angleDeg)
	l.qbarCache[angleDeg] = q
	return q
}

// BendingStiffness computes the 3x3 bending stiffness matrix D for the full
// stacking sequence. Ply boundaries are N+1 evenly spaced coordinates from
// -N*t/2 to +N*t/2; each ply contributes Qbar * (z[i+1]^3 - z[i]^3) / 3.
//
// The matrix is recomputed from scratch on every call: a single insert or
// delete shifts the z-coordinate of every ply, so there is nothing to reuse
// across candidates.
func (l *Laminate) BendingStiffness(fullSeq []float64) *mat.SymDense {
	d := mat.NewSymDense(3, nil)
	n := len(fullSeq)
	if n == 0 {
		return d
	}

	half := float64(n) * l.thickness / 2
	z := make([]float64, n+1)
	floats.Span(z, -half, half)

	for i, angle := range fullSeq {
		q := l.qbar(angle)
		f := (z[i+1]*z[i+1]*z[i+1] - z[i]*z[i]*z[i]) / 3
		for r := 0; r < 3; r++ {
			for c := r; c < 3; c++ {
				d.SetSym(r, c, d.At(r, c)+f*q.At(r, c))
			}
		}
	}
	return d
}

// D11 returns the bending stiffness about the reference axis, the quantity
// of interest for the deflection metric.
func (l *Laminate) D11(fullSeq []float64) float64 {
	return l.BendingStiffness(fullSeq).At(0, 0)
}
