// Package engine implements the computer player: a static evaluator and a
// depth-limited minimax search with alpha-beta pruning.
package engine

import (
	"math"
	"math/rand/v2"
	"slices"

	"chessai/internal/core"
)

// Position is the part of the rules engine the search drives. Apply and Undo
// mutate in place and must be exact inverses, the same instance is reused for
// the whole search.
type Position[M any] interface {
	LegalMoves() []M
	Apply(m M)
	Undo()
	IsTerminal() bool
	Board() *core.Board
}

// EvalFunc scores a board, positive favours white
type EvalFunc func(b *core.Board) float64

// Result is the outcome of a root search
type Result[M any] struct {
	Move  M
	Found bool    // false when the root has no legal moves
	Score float64 // value of Move at the searched depth
	Nodes int     // minimax calls made
}

// Searcher selects moves by minimax. It is single-threaded: one search at a
// time, no state kept between searches except the random source.
type Searcher[M any] struct {
	eval  EvalFunc
	rng   *rand.Rand
	nodes int
}

// NewSearcher creates a searcher. rng shuffles the root moves, nil keeps
// generation order.
func NewSearcher[M any](eval EvalFunc, rng *rand.Rand) *Searcher[M] {
	return &Searcher[M]{eval: eval, rng: rng}
}

// SelectMove returns the move to play, ok is false when there is none
func (s *Searcher[M]) SelectMove(pos Position[M], depth int, maximizing bool) (M, bool) {
	res := s.Search(pos, depth, maximizing)
	return res.Move, res.Found
}

// Search evaluates every root move with Minimax at depth-1 and keeps the
// first strictly best one in shuffled order.
func (s *Searcher[M]) Search(pos Position[M], depth int, maximizing bool) Result[M] {
	s.nodes = 0

	var res Result[M]
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return res
	}

	moves = slices.Clone(moves)
	if s.rng != nil {
		s.rng.Shuffle(len(moves), func(i, j int) {
			moves[i], moves[j] = moves[j], moves[i]
		})
	}

	best := math.Inf(-1)
	if !maximizing {
		best = math.Inf(1)
	}

	for _, m := range moves {
		pos.Apply(m)
		value := s.Minimax(pos, depth-1, math.Inf(-1), math.Inf(1), !maximizing)
		pos.Undo()

		if (maximizing && value > best) || (!maximizing && value < best) {
			best = value
			res.Move = m
			res.Found = true
		}
	}

	res.Score = best
	res.Nodes = s.nodes
	return res
}

// Minimax returns the value of pos for the side to move within depth plies,
// cutting branches once beta <= alpha. Depth <= 0 or a finished game is a leaf.
func (s *Searcher[M]) Minimax(pos Position[M], depth int, alpha, beta float64, maximizing bool) float64 {
	s.nodes++

	if depth <= 0 || pos.IsTerminal() {
		return s.eval(pos.Board())
	}

	moves := pos.LegalMoves()
	if len(moves) == 0 {
		return s.eval(pos.Board())
	}

	if maximizing {
		maxEval := math.Inf(-1)
		for _, m := range moves {
			pos.Apply(m)
			eval := s.Minimax(pos, depth-1, alpha, beta, false)
			pos.Undo()

			maxEval = math.Max(maxEval, eval)
			alpha = math.Max(alpha, eval)
			if beta <= alpha {
				break
			}
		}
		return maxEval
	}

	minEval := math.Inf(1)
	for _, m := range moves {
		pos.Apply(m)
		eval := s.Minimax(pos, depth-1, alpha, beta, true)
		pos.Undo()

		minEval = math.Min(minEval, eval)
		beta = math.Min(beta, eval)
		if beta <= alpha {
			break
		}
	}
	return minEval
}

// RandomMove picks a uniformly random legal move, used by the easy level
func RandomMove[M any](pos Position[M], rng *rand.Rand) (M, bool) {
	moves := pos.LegalMoves()
	if len(moves) == 0 {
		var zero M
		return zero, false
	}
	return moves[rng.IntN(len(moves))], true
}
