package rules

import (
	"chessai/internal/core"

	"github.com/notnil/chess"
)

// fiftyMoveLimit is the half-move clock value at which the game is drawn
const fiftyMoveLimit = 100

// Outcome classifies the current position. Draw conditions are checked after
// checkmate and stalemate: fifty-move rule, insufficient material and threefold
// repetition within this position's own history.
func (p *Position) Outcome() core.State {
	cur := p.top()

	switch cur.pos.Status() {
	case chess.Checkmate:
		// Side to move is mated
		if cur.pos.Turn() == chess.White {
			return core.StateBlackWins
		}
		return core.StateWhiteWins
	case chess.Stalemate:
		return core.StateStalemate
	}

	if cur.halfmove >= fiftyMoveLimit {
		return core.StateDraw
	}
	if insufficientMaterial(cur.pos.Board()) {
		return core.StateDraw
	}
	if p.seen[cur.key] >= 3 {
		return core.StateDraw
	}
	return core.StateOngoing
}

// insufficientMaterial covers K v K, K+minor v K, and kings with bishops all on one square colour
func insufficientMaterial(b *chess.Board) bool {
	var pieces, minors, bishops int
	bishopColors := [2]int{}

	for sq := 0; sq < 64; sq++ {
		pc := b.Piece(chess.Square(sq))
		if pc == chess.NoPiece {
			continue
		}
		pieces++
		switch pc.Type() {
		case chess.Knight:
			minors++
		case chess.Bishop:
			minors++
			bishops++
			s := chess.Square(sq)
			bishopColors[(int(s.File())+int(s.Rank()))%2]++
		}
	}

	switch {
	case pieces == 2:
		return true
	case pieces == 3 && minors == 1:
		return true
	case bishops > 0 && pieces == bishops+2:
		return bishopColors[0] == 0 || bishopColors[1] == 0
	}
	return false
}
