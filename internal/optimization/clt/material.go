// Package clt implements classical laminate theory: reduced stiffness
// constants for an orthotropic ply, the transformed ply stiffness matrix
// Qbar, and the bending stiffness matrix D of a stacking sequence.
package clt

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/copyleftdev/LAYUP/internal/optimization"
)

// Constants holds the engineering constants of a unidirectional ply.
type Constants struct {
	// E1 is the longitudinal modulus (Pa)
	E1 float64
	// E2 is the transverse modulus (Pa)
	E2 float64
	// G12 is the in-plane shear modulus (Pa)
	G12 float64
	// Nu12 is the major Poisson's ratio
	Nu12 float64
}

// Material holds the reduced stiffness constants derived from the
// engineering constants. It is immutable: build it once and share it.
type Material struct {
	q11, q22, q12, q66 float64
}

// NewMaterial derives the reduced stiffness constants Q11, Q22, Q12, Q66.
// It returns a configuration error when any constant is non-positive or
// when 1 - nu12*nu21 <= 0 (non-physical material).
func NewMaterial(c Constants) (*Material, error) {
	if c.E1 <= 0 || c.E2 <= 0 || c.G12 <= 0 || c.Nu12 <= 0 {
		return nil, optimization.NewErrorf("material constants must be positive, got E1=%v E2=%v G12=%v nu12=%v",
			c.E1, c.E2, c.G12, c.Nu12).WithComponent("clt")
	}

	nu21 := c.Nu12 * c.E2 / c.E1
	denom := 1 - c.Nu12*nu21
	if denom <= 0 {
		return nil, optimization.NewErrorf("non-physical material: 1 - nu12*nu21 = %v", denom).
			WithComponent("clt")
	}

	return &Material{
		q11: c.E1 / denom,
		q22: c.E2 / denom,
		q12: c.Nu12 * c.E2 / denom,
		q66: c.G12,
	}, nil
}

// ReducedStiffness returns the reduced stiffness constants (Q11, Q22, Q12, Q66).
func (m *Material) ReducedStiffness() (q11, q22, q12, q66 float64) {
	return m.q11, m.q22, m.q12, m.q66
}

// Qbar computes the transformed reduced stiffness matrix for a ply rotated
// by angleDeg from the material axes. The result is symmetric; the shear
// coupling terms Qbar16 and Qbar26 vanish at 0 and 90 degrees.
func (m *Material) Qbar(angleDeg float64) *mat.SymDense {
	theta := angleDeg * math.Pi / 180
	c := math.Cos(theta)
	s := math.Sin(theta)

	c2 := c * c
	s2 := s * s
	c4 := c2 * c2
	s4 := s2 * s2
	c3s := c2 * c * s
	cs3 := c * s2 * s
	c2s2 := c2 * s2

	q11 := m.q11*c4 + 2*(m.q12+2*m.q66)*c2s2 + m.q22*s4
	q12 := (m.q11+m.q22-4*m.q66)*c2s2 + m.q12*(c4+s4)
	q22 := m.q11*s4 + 2*(m.q12+2*m.q66)*c2s2 + m.q22*c4
	q16 := (m.q11-m.q12-2*m.q66)*c3s - (m.q22-m.q12-2*m.q66)*cs3
	q26 := (m.q11-m.q12-2*m.q66)*cs3 - (m.q22-m.q12-2*m.q66)*c3s
	q66 := (m.q11+m.q22-2*m.q12-2*m.q66)*c2s2 + m.q66*(c4+s4)

	return mat.NewSymDense(3, []float64{
		q11, q12, q16,
		q12, q22, q26,
		q16, q26, q66,
	})
}
