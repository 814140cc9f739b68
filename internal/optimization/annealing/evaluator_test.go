package annealing

import (
	"math"
	"testing"

	"github.com/copyleftdev/LAYUP/internal/optimization/clt"
)

func testEvaluator(t *testing.T, minPercent float64) *Evaluator {
	t.Helper()
	material, err := clt.NewMaterial(clt.Constants{E1: 89e9, E2: 8e9, G12: 4.5e9, Nu12: 0.3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	laminate, err := clt.NewLaminate(material, 0.001)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewEvaluator(laminate, 0.005, minPercent)
}

func TestMirror(t *testing.T) {
	tests := []struct {
		name     string
		half     []float64
		expected []float64
	}{
		{"single ply", []float64{0}, []float64{0, 0}},
		{"two plies", []float64{0, 45}, []float64{0, 45, 45, 0}},
		{"four plies", []float64{0, 45, -45, 90}, []float64{0, 45, -45, 90, 90, -45, 45, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full := Mirror(tt.half)
			if len(full) != len(tt.expected) {
				t.Fatalf("expected length %d, got %d", len(tt.expected), len(full))
			}
			for i := range full {
				if full[i] != tt.expected[i] {
					t.Errorf("at %d: expected %v, got %v", i, tt.expected[i], full[i])
				}
			}
		})
	}
}

func TestMirrorSymmetryByConstruction(t *testing.T) {
	e := testEvaluator(t, 0)

	halves := [][]float64{
		{0}, {45, -45}, {0, 90, 45}, {90, 90, 90, 90}, {0, 45, -45, 90, 0},
	}
	for _, half := range halves {
		full := Mirror(half)
		n := len(full)
		for i := 0; i < n/2; i++ {
			if full[i] != full[n-1-i] {
				t.Fatalf("mirrored sequence not palindromic for half %v", half)
			}
		}

		// With coverage disabled, any penalty on a mirrored candidate can
		// come only from imbalance, never from the symmetry check.
		pen := e.Penalty(full)
		var p45, m45 int
		for _, a := range full {
			switch a {
			case 45:
				p45++
			case -45:
				m45++
			}
		}
		expected := violationPenalty * math.Abs(float64(p45-m45))
		if pen != expected {
			t.Errorf("half %v: expected penalty %v, got %v", half, expected, pen)
		}
	}
}

func TestPenaltyZeroOnlyWhenFeasible(t *testing.T) {
	e := testEvaluator(t, 0.25)

	tests := []struct {
		name     string
		full     []float64
		wantZero bool
	}{
		{
			name:     "balanced with full coverage",
			full:     Mirror([]float64{0, 90, 45, -45}),
			wantZero: true,
		},
		{
			name:     "unbalanced 45s",
			full:     Mirror([]float64{0, 90, 45, 45}),
			wantZero: false,
		},
		{
			name:     "missing 90 coverage",
			full:     Mirror([]float64{0, 0, 45, -45}),
			wantZero: false,
		},
		{
			name:     "missing 45 family",
			full:     Mirror([]float64{0, 0, 90, 90}),
			wantZero: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pen := e.Penalty(tt.full)
			if tt.wantZero && pen != 0 {
				t.Errorf("expected zero penalty, got %v", pen)
			}
			if !tt.wantZero && pen <= 0 {
				t.Errorf("expected positive penalty, got %v", pen)
			}
		})
	}
}

func TestPenaltyMonotonicInViolation(t *testing.T) {
	e := testEvaluator(t, 0)

	// Growing imbalance between +45 and -45 grows the penalty linearly.
	one := e.Penalty(Mirror([]float64{45, 0, 0, 0}))
	two := e.Penalty(Mirror([]float64{45, 45, 0, 0}))
	three := e.Penalty(Mirror([]float64{45, 45, 45, 0}))

	if !(one < two && two < three) {
		t.Errorf("penalty should grow with imbalance: %v, %v, %v", one, two, three)
	}
	if math.Abs((two-one)-(three-two)) > 1e-9 {
		t.Errorf("penalty should be linear in imbalance: steps %v and %v", two-one, three-two)
	}
}

func TestPenaltySymmetryViolation(t *testing.T) {
	e := testEvaluator(t, 0)

	symmetric := Mirror([]float64{45, -45, 45, -45})
	asymmetric := append([]float64(nil), symmetric...)
	asymmetric[0], asymmetric[1] = asymmetric[1], asymmetric[0]

	if e.Penalty(symmetric) != 0 {
		t.Fatalf("expected zero penalty for balanced symmetric laminate")
	}
	if e.Penalty(asymmetric) != violationPenalty {
		t.Errorf("expected symmetry penalty %v, got %v", violationPenalty, e.Penalty(asymmetric))
	}
}

func TestCoverageUsesFullLength(t *testing.T) {
	// minPercent applies to the full laminate: with 10 percent of 20 plies,
	// each class needs 2 plies of the full sequence, i.e. 1 per half.
	e := testEvaluator(t, 0.1)

	half := []float64{0, 90, 45, -45, 0, 0, 0, 0, 0, 0}
	if pen := e.Penalty(Mirror(half)); pen != 0 {
		t.Errorf("expected zero penalty, got %v", pen)
	}

	short := []float64{0, 0, 45, -45, 0, 0, 0, 0, 0, 0}
	if pen := e.Penalty(Mirror(short)); pen != 2*violationPenalty {
		t.Errorf("expected shortfall of 2 for 90s, got penalty %v", pen)
	}
}

func TestObjectivePure(t *testing.T) {
	e := testEvaluator(t, 0.1)
	half := []float64{0, 45, -45, 90}

	first := e.Objective(half)
	second := e.Objective(half)
	if first != second {
		t.Errorf("objective not pure: %v vs %v", first, second)
	}
}

func TestObjectiveComposition(t *testing.T) {
	e := testEvaluator(t, 0)
	half := []float64{0, 45, -45, 90}
	full := Mirror(half)

	sum := e.DeflectionMetric(full) + e.Weight(full) + e.Penalty(full)
	if got := e.Objective(half); got != sum {
		t.Errorf("objective should be deflection+weight+penalty: got %v, want %v", got, sum)
	}

	if w := e.Weight(full); w != 8*0.005 {
		t.Errorf("expected weight %v, got %v", 8*0.005, w)
	}
}

func TestDeflectionMetricSentinel(t *testing.T) {
	e := testEvaluator(t, 0)
	// An empty laminate has zero bending stiffness.
	if got := e.DeflectionMetric(nil); got != infeasibleDeflection {
		t.Errorf("expected sentinel %v, got %v", infeasibleDeflection, got)
	}
}
