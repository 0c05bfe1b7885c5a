package engine

import (
	"math/rand/v2"

	"chessai/internal/core"
)

const (
	centerBonus    = 10
	pawnStepBonus  = 5
	idleMinorMalus = 10
	jitterWidth    = 1.0 // jitter is uniform in [-jitterWidth/2, +jitterWidth/2)
)

var pieceValues = [...]float64{
	core.Pawn:   10,
	core.Knight: 30,
	core.Bishop: 30,
	core.Rook:   50,
	core.Queen:  90,
	core.King:   900,
}

// Evaluator scores positions from white's point of view with a small random
// jitter so equal positions do not always resolve the same way.
// An Evaluator is not safe for concurrent use, each search worker owns one.
type Evaluator struct {
	rng *rand.Rand
}

// NewEvaluator returns an evaluator drawing jitter from rng, nil disables jitter
func NewEvaluator(rng *rand.Rand) *Evaluator {
	return &Evaluator{rng: rng}
}

// Evaluate returns Static(b) plus jitter
func (e *Evaluator) Evaluate(b *core.Board) float64 {
	score := Static(b)
	if e.rng != nil {
		score += (e.rng.Float64() - 0.5) * jitterWidth
	}
	return score
}

// Static is the deterministic part of the evaluation: material, center
// occupation, pawn advancement and undeveloped minor pieces.
func Static(b *core.Board) float64 {
	var total float64

	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			piece := b[row][col]
			if piece.Empty() {
				continue
			}

			value := pieceValues[piece.Kind]

			if row >= 3 && row <= 4 && col >= 3 && col <= 4 {
				value += centerBonus
			}

			switch piece.Kind {
			case core.Pawn:
				if piece.Color == core.ColorWhite {
					value += float64(6-row) * pawnStepBonus
				} else {
					value += float64(row-1) * pawnStepBonus
				}
			case core.Knight, core.Bishop:
				if row == homeRow(piece.Color) {
					value -= idleMinorMalus
				}
			}

			if piece.Color == core.ColorWhite {
				total += value
			} else {
				total -= value
			}
		}
	}

	return total
}

// homeRow is the back rank of a side in board rows
func homeRow(c core.Color) int {
	if c == core.ColorWhite {
		return 7
	}
	return 0
}
