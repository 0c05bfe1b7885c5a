package rules

import (
	"errors"
	"testing"

	"chessai/internal/core"

	"github.com/notnil/chess"
)

func mustParse(t *testing.T, fen string) *Position {
	t.Helper()
	p, err := Parse(fen)
	if err != nil {
		t.Fatalf("parse %q: %v", fen, err)
	}
	return p
}

func play(t *testing.T, p *Position, moves ...string) {
	t.Helper()
	for _, text := range moves {
		m, err := p.ParseMove(text)
		if err != nil {
			t.Fatalf("move %s: %v", text, err)
		}
		p.Apply(m)
	}
}

func TestStartingPositionMoves(t *testing.T) {
	p := NewPosition()
	if got := len(p.LegalMoves()); got != 20 {
		t.Fatalf("expected 20 opening moves, got %d", got)
	}
	if p.SideToMove() != core.ColorWhite {
		t.Fatalf("expected white to move")
	}
	if p.IsTerminal() {
		t.Fatalf("starting position reported terminal")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"not a fen",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - a 1",
		"8/8/8/8/8/8/8/8 w - - 0 1",
	}
	for _, fen := range cases {
		if _, err := Parse(fen); !errors.Is(err, ErrInvalidFEN) {
			t.Errorf("Parse(%q) = %v, want ErrInvalidFEN", fen, err)
		}
	}
}

func TestApplyUndoRestoresFEN(t *testing.T) {
	fens := []string{
		StartingFEN,
		// en passant available on f6
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
		// both sides may castle, captures available
		"r3k2r/pppq1ppp/2npbn2/2b1p3/2B1P3/2NPBN2/PPPQ1PPP/R3K2R w KQkq - 4 8",
		// promotion with capture
		"1r2k3/P7/8/8/8/8/8/4K3 w - - 0 40",
	}

	for _, fen := range fens {
		p := mustParse(t, fen)
		before := p.FEN()
		for _, m := range p.LegalMoves() {
			p.Apply(m)
			if p.FEN() == before {
				t.Fatalf("%s: move %s did not change the position", fen, m)
			}
			p.Undo()
			if got := p.FEN(); got != before {
				t.Fatalf("%s: undo of %s gave %s", fen, m, got)
			}
		}
		if p.Depth() != 0 {
			t.Fatalf("expected depth 0 after undo cycle, got %d", p.Depth())
		}
	}
}

func TestNestedUndo(t *testing.T) {
	p := NewPosition()
	start := p.FEN()
	play(t, p, "e2e4", "e7e5")
	afterTwo := p.FEN()
	play(t, p, "g1f3")
	p.Undo()
	if got := p.FEN(); got != afterTwo {
		t.Fatalf("expected %s after one undo, got %s", afterTwo, got)
	}
	p.Undo()
	p.Undo()
	p.Undo() // extra undo on root is ignored
	if got := p.FEN(); got != start {
		t.Fatalf("expected start position, got %s", got)
	}
}

func TestParseMovePromotionDefaultsToQueen(t *testing.T) {
	p := mustParse(t, "8/4P3/8/8/8/8/k7/4K3 w - - 0 1")

	m, err := p.ParseMove("e7e8")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Promo() != chess.Queen {
		t.Fatalf("expected queen promotion, got %v", m.Promo())
	}

	m, err = p.ParseMove("e7e8n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Promo() != chess.Knight {
		t.Fatalf("expected knight promotion, got %v", m.Promo())
	}

	if got := EncodeMove(m); got.UCI() != "e7e8n" {
		t.Fatalf("expected e7e8n, got %s", got.UCI())
	}

	if _, err = p.ParseMove("e7e8k"); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected illegal king promotion, got %v", err)
	}
}

func TestParseMoveRejectsIllegal(t *testing.T) {
	p := NewPosition()
	for _, text := range []string{"e2e5", "e7e5", "zz", "a1a1a1"} {
		if _, err := p.ParseMove(text); !errors.Is(err, ErrIllegalMove) {
			t.Errorf("ParseMove(%q) = %v, want ErrIllegalMove", text, err)
		}
	}
}

func TestBoardOrientation(t *testing.T) {
	p := NewPosition()
	b := p.Board()

	if b[0][4] != (core.Piece{Color: core.ColorBlack, Kind: core.King}) {
		t.Fatalf("expected black king on e8, got %+v", b[0][4])
	}
	if b[7][3] != (core.Piece{Color: core.ColorWhite, Kind: core.Queen}) {
		t.Fatalf("expected white queen on d1, got %+v", b[7][3])
	}
	if b[6][0].Kind != core.Pawn || b[6][0].Color != core.ColorWhite {
		t.Fatalf("expected white pawn on a2, got %+v", b[6][0])
	}
	if !b[4][4].Empty() {
		t.Fatalf("expected empty e4")
	}
	if got := p.PieceAt("g8"); got != (core.Piece{Color: core.ColorBlack, Kind: core.Knight}) {
		t.Fatalf("expected black knight on g8, got %+v", got)
	}
	if got := p.PieceAt("z9"); !got.Empty() {
		t.Fatalf("expected empty piece for bad square")
	}
}

func TestOutcome(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		want core.State
	}{
		{"fools mate", "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", core.StateBlackWins},
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", core.StateStalemate},
		{"fifty moves", "8/8/8/4k3/8/8/4K3/4R3 w - - 100 60", core.StateDraw},
		{"king and knight", "8/8/8/4k3/8/8/4K3/4N3 w - - 0 1", core.StateDraw},
		{"bare kings", "8/8/8/4k3/8/8/4K3/8 w - - 0 1", core.StateDraw},
		{"same colour bishops", "8/8/8/2b1k3/8/8/4K3/2B5 w - - 0 1", core.StateDraw},
		{"rook keeps the game alive", "8/8/8/4k3/8/8/4K3/4R3 w - - 0 1", core.StateOngoing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := mustParse(t, tc.fen)
			if got := p.Outcome(); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
			if p.IsTerminal() != (tc.want != core.StateOngoing) {
				t.Fatalf("IsTerminal disagrees with outcome %s", tc.want)
			}
		})
	}
}

func TestThreefoldRepetition(t *testing.T) {
	p := NewPosition()
	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}

	play(t, p, shuffle...)
	if p.IsTerminal() {
		t.Fatalf("second occurrence must not end the game")
	}

	play(t, p, shuffle...)
	if got := p.Outcome(); got != core.StateDraw {
		t.Fatalf("expected draw by repetition, got %s", got)
	}

	p.Undo()
	if p.IsTerminal() {
		t.Fatalf("undo must clear the repetition count")
	}
}

func TestRepetitionKeyTracksEnPassant(t *testing.T) {
	p := NewPosition()
	play(t, p, "e2e4")

	withTarget := mustParse(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	without := mustParse(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")

	if p.top().key != withTarget.top().key {
		t.Fatalf("double step must set the en passant target")
	}
	if p.top().key == without.top().key {
		t.Fatalf("en passant target must distinguish otherwise equal positions")
	}

	play(t, p, "g8f6")
	if p.top().key.enPassant != chess.NoSquare {
		t.Fatalf("knight move must clear the en passant target")
	}
}

func TestParseRejectsBadEnPassantField(t *testing.T) {
	if _, err := Parse("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq z9 0 1"); !errors.Is(err, ErrInvalidFEN) {
		t.Fatalf("expected ErrInvalidFEN, got %v", err)
	}
}

func TestHalfmoveClockResetsOnPawnMove(t *testing.T) {
	p := mustParse(t, "8/8/8/4k3/8/8/P3K3/4R3 w - - 99 60")

	play(t, p, "a2a3")
	if p.IsTerminal() {
		t.Fatalf("pawn move must reset the fifty-move clock")
	}
	p.Undo()

	play(t, p, "e1h1")
	if got := p.Outcome(); got != core.StateDraw {
		t.Fatalf("expected fifty-move draw, got %s", got)
	}
}
