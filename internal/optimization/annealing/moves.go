package annealing

import (
	"math/rand"
)

// move identifies a structural mutation of the half-sequence.
type move int

const (
	// moveChange replaces one ply's orientation with a different one.
	moveChange move = iota
	// moveInsert adds a ply at a random position.
	moveInsert
	// moveDelete removes a random ply.
	moveDelete
)

func (m move) String() string {
	switch m {
	case moveChange:
		return "change"
	case moveInsert:
		return "insert"
	case moveDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// legalMoves returns the move kinds allowed at the current half length.
// change is always legal; insert requires room to grow; delete requires
// room to shrink.
func legalMoves(length, minHalf, maxHalf int) []move {
	moves := []move{moveChange}
	if length < maxHalf {
		moves = append(moves, moveInsert)
	}
	if length > minHalf {
		moves = append(moves, moveDelete)
	}
	return moves
}

// Moves are pure transformations: each takes the current half-sequence and
// returns a fresh one, leaving the input untouched. This keeps seeded runs
// reproducible regardless of evaluation order.

// applyChange replaces the angle at a uniformly random position with a
// uniformly random allowed angle different from the current one. With a
// single-element angle set there is no alternative and the copy is returned
// unchanged.
func applyChange(half, angles []float64, rng *rand.Rand) []float64 {
	next := append([]float64(nil), half...)
	idx := rng.Intn(len(next))

	alternatives := make([]float64, 0, len(angles))
	for _, a := range angles {
		if a != next[idx] {
			alternatives = append(alternatives, a)
		}
	}
	if len(alternatives) == 0 {
		return next
	}

	next[idx] = alternatives[rng.Intn(len(alternatives))]
	return next
}

// applyInsert inserts a uniformly random allowed angle at a uniformly random
// position, including both ends.
func applyInsert(half, angles []float64, rng *rand.Rand) []float64 {
	idx := rng.Intn(len(half) + 1)
	angle := angles[rng.Intn(len(angles))]

	next := make([]float64, 0, len(half)+1)
	next = append(next, half[:idx]...)
	next = append(next, angle)
	next = append(next, half[idx:]...)
	return next
}

// applyDelete removes the ply at a uniformly random position.
func applyDelete(half []float64, rng *rand.Rand) []float64 {
	idx := rng.Intn(len(half))

	next := make([]float64, 0, len(half)-1)
	next = append(next, half[:idx]...)
	next = append(next, half[idx+1:]...)
	return next
}
