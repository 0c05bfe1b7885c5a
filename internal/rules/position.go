// Package rules adapts github.com/notnil/chess to the apply/undo position
// contract used by the search engine.
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chessai/internal/core"

	"github.com/notnil/chess"
)

const (
	StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

var (
	ErrInvalidFEN  = errors.New("invalid FEN")
	ErrIllegalMove = errors.New("illegal move")
)

// repetitionKey identifies a position for threefold repetition: placement,
// turn, castling rights and en passant square, without the move counters.
type repetitionKey struct {
	squares   [64]chess.Piece
	turn      chess.Color
	castling  chess.CastleRights
	enPassant chess.Square
}

// frame is one entry of the apply/undo stack
type frame struct {
	pos      *chess.Position
	halfmove int
	key      repetitionKey
}

// Position is a mutable game state backed by immutable notnil/chess positions.
// Apply pushes the successor, Undo pops it, so the previous state is restored exactly.
type Position struct {
	stack   []frame
	seen    map[repetitionKey]int
	scratch core.Board
}

// NewPosition returns the standard starting position
func NewPosition() *Position {
	p, err := Parse(StartingFEN)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse builds a position from a FEN snapshot
func Parse(fen string) (*Position, error) {
	fen = strings.TrimSpace(fen)
	parts := strings.Fields(fen)
	if len(parts) != 6 {
		return nil, fmt.Errorf("%w: expected 6 parts, got %d", ErrInvalidFEN, len(parts))
	}

	halfmove, err := strconv.Atoi(parts[4])
	if err != nil || halfmove < 0 {
		return nil, fmt.Errorf("%w: halfmove counter", ErrInvalidFEN)
	}
	if fullmove, err := strconv.Atoi(parts[5]); err != nil || fullmove < 1 {
		return nil, fmt.Errorf("%w: fullmove counter", ErrInvalidFEN)
	}

	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	pos := chess.NewGame(opt).Position()

	if err := validateKings(pos.Board()); err != nil {
		return nil, err
	}

	enPassant, err := parseEnPassant(parts[3])
	if err != nil {
		return nil, err
	}

	p := &Position{
		seen: make(map[repetitionKey]int),
	}
	p.push(pos, halfmove, enPassant)
	return p, nil
}

// validateKings rejects placements without exactly one king per side
func validateKings(b *chess.Board) error {
	var white, black int
	for sq := 0; sq < 64; sq++ {
		switch b.Piece(chess.Square(sq)) {
		case chess.WhiteKing:
			white++
		case chess.BlackKing:
			black++
		}
	}
	if white != 1 || black != 1 {
		return fmt.Errorf("%w: need one king per side, got %d white and %d black", ErrInvalidFEN, white, black)
	}
	return nil
}

// parseEnPassant reads the FEN en passant field, "-" is chess.NoSquare
func parseEnPassant(field string) (chess.Square, error) {
	if field == "-" {
		return chess.NoSquare, nil
	}
	row, col, ok := core.SquareIndex(field)
	if !ok {
		return chess.NoSquare, fmt.Errorf("%w: en passant square %q", ErrInvalidFEN, field)
	}
	return toChessSquare(row, col), nil
}

func (p *Position) push(pos *chess.Position, halfmove int, enPassant chess.Square) {
	key := repetitionKey{
		turn:      pos.Turn(),
		castling:  pos.CastleRights(),
		enPassant: enPassant,
	}
	b := pos.Board()
	for sq := range key.squares {
		key.squares[sq] = b.Piece(chess.Square(sq))
	}

	p.seen[key]++
	p.stack = append(p.stack, frame{pos: pos, halfmove: halfmove, key: key})
}

func (p *Position) top() *frame {
	return &p.stack[len(p.stack)-1]
}

// LegalMoves enumerates legal moves in generation order, empty at game end
func (p *Position) LegalMoves() []*chess.Move {
	return p.top().pos.ValidMoves()
}

// Apply plays a move previously returned by LegalMoves
func (p *Position) Apply(m *chess.Move) {
	cur := p.top()
	halfmove := cur.halfmove + 1
	enPassant := chess.NoSquare
	if cur.pos.Board().Piece(m.S1()).Type() == chess.Pawn {
		halfmove = 0
		// Double step leaves the skipped square as target, as notnil/chess does
		if d := int(m.S2()) - int(m.S1()); d == 16 || d == -16 {
			enPassant = chess.Square((int(m.S1()) + int(m.S2())) / 2)
		}
	} else if m.HasTag(chess.Capture) {
		halfmove = 0
	}
	p.push(cur.pos.Update(m), halfmove, enPassant)
}

// Undo reverts the most recent Apply, it is a no-op on the root position
func (p *Position) Undo() {
	if len(p.stack) <= 1 {
		return
	}
	cur := p.top()
	p.seen[cur.key]--
	if p.seen[cur.key] <= 0 {
		delete(p.seen, cur.key)
	}
	p.stack = p.stack[:len(p.stack)-1]
}

// Depth returns the number of applied moves above the root
func (p *Position) Depth() int {
	return len(p.stack) - 1
}

// FEN serializes the current state
func (p *Position) FEN() string {
	return p.top().pos.String()
}

func (p *Position) SideToMove() core.Color {
	return fromChessColor(p.top().pos.Turn())
}

// PieceAt returns the occupant of an algebraic square, empty for unknown squares
func (p *Position) PieceAt(square string) core.Piece {
	row, col, ok := core.SquareIndex(square)
	if !ok {
		return core.Piece{}
	}
	return fromChessPiece(p.top().pos.Board().Piece(toChessSquare(row, col)))
}

// Board fills and returns a grid owned by the position, valid until the next call
func (p *Position) Board() *core.Board {
	b := p.top().pos.Board()
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			p.scratch[row][col] = fromChessPiece(b.Piece(toChessSquare(row, col)))
		}
	}
	return &p.scratch
}

// IsTerminal reports checkmate, stalemate or a rules draw
func (p *Position) IsTerminal() bool {
	return p.Outcome() != core.StateOngoing
}

// ParseMove resolves UCI text such as "e2e4" or "e7e8q" against the legal moves.
// A promotion without a piece letter promotes to a queen.
func (p *Position) ParseMove(text string) (*chess.Move, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if len(text) < 4 || len(text) > 5 {
		return nil, fmt.Errorf("%w: %q", ErrIllegalMove, text)
	}
	from, to := text[:2], text[2:4]
	promo := core.Queen
	if len(text) == 5 {
		promo = core.ParsePieceKind(text[4:])
		if promo == core.NoKind || promo == core.Pawn || promo == core.King {
			return nil, fmt.Errorf("%w: bad promotion piece in %q", ErrIllegalMove, text)
		}
	}

	for _, m := range p.LegalMoves() {
		if m.S1().String() != from || m.S2().String() != to {
			continue
		}
		if m.Promo() != chess.NoPieceType && fromChessKind(m.Promo()) != promo {
			continue
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrIllegalMove, text)
}

// EncodeMove converts an engine move to its wire form
func EncodeMove(m *chess.Move) core.Move {
	return core.Move{
		From:      m.S1().String(),
		To:        m.S2().String(),
		Promotion: fromChessKind(m.Promo()).String(),
	}
}

func toChessSquare(row, col int) chess.Square {
	return chess.Square((7-row)*8 + col)
}

func fromChessColor(c chess.Color) core.Color {
	if c == chess.Black {
		return core.ColorBlack
	}
	return core.ColorWhite
}

func fromChessKind(t chess.PieceType) core.PieceKind {
	switch t {
	case chess.Pawn:
		return core.Pawn
	case chess.Knight:
		return core.Knight
	case chess.Bishop:
		return core.Bishop
	case chess.Rook:
		return core.Rook
	case chess.Queen:
		return core.Queen
	case chess.King:
		return core.King
	default:
		return core.NoKind
	}
}

func fromChessPiece(pc chess.Piece) core.Piece {
	if pc == chess.NoPiece {
		return core.Piece{}
	}
	return core.Piece{
		Color: fromChessColor(pc.Color()),
		Kind:  fromChessKind(pc.Type()),
	}
}
