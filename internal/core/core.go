package core

type State int

const (
	StateOngoing State = iota
	StatePending       // Computer is calculating a move
	StateStuck         // Search request failed, game cannot continue
	StateWhiteWins
	StateBlackWins
	StateDraw
	StateStalemate
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStuck:
		return "stuck"
	case StateWhiteWins:
		return "white wins"
	case StateBlackWins:
		return "black wins"
	case StateDraw:
		return "draw"
	case StateStalemate:
		return "stalemate"
	case StateOngoing:
		return "ongoing"
	default:
		return "unknown"
	}
}

// IsOver reports whether the state is a final game result
func (s State) IsOver() bool {
	switch s {
	case StateWhiteWins, StateBlackWins, StateDraw, StateStalemate:
		return true
	}
	return false
}

type Color byte

const (
	ColorWhite Color = iota + 1
	ColorBlack
)

func (c Color) String() string {
	if c == ColorWhite {
		return "w"
	} else if c == ColorBlack {
		return "b"
	} else {
		return "-"
	}
}

// ParseColor accepts "w" or "b"
func ParseColor(s string) (Color, bool) {
	switch s {
	case "w":
		return ColorWhite, true
	case "b":
		return ColorBlack, true
	}
	return 0, false
}

func OppositeColor(c Color) Color {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

// PieceKind is the type of a chess piece, zero means no piece
type PieceKind byte

const (
	NoKind PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

func (k PieceKind) String() string {
	switch k {
	case Pawn:
		return "p"
	case Knight:
		return "n"
	case Bishop:
		return "b"
	case Rook:
		return "r"
	case Queen:
		return "q"
	case King:
		return "k"
	default:
		return ""
	}
}

// ParsePieceKind maps a lowercase piece letter to its kind
func ParsePieceKind(s string) PieceKind {
	switch s {
	case "p":
		return Pawn
	case "n":
		return Knight
	case "b":
		return Bishop
	case "r":
		return Rook
	case "q":
		return Queen
	case "k":
		return King
	default:
		return NoKind
	}
}

// Piece is an optional board occupant, the zero value is an empty square
type Piece struct {
	Color Color
	Kind  PieceKind
}

func (p Piece) Empty() bool {
	return p.Kind == NoKind
}

// Letter returns the FEN letter, uppercase for white and '.' for empty
func (p Piece) Letter() byte {
	if p.Empty() {
		return '.'
	}
	l := p.Kind.String()[0]
	if p.Color == ColorWhite {
		return l - 'a' + 'A'
	}
	return l
}

// Board is an 8x8 grid indexed [row][col], row 0 is rank 8 and col 0 is file a
type Board [8][8]Piece

// SquareName converts grid coordinates to algebraic notation
func SquareName(row, col int) string {
	return string([]byte{byte('a' + col), byte('8' - row)})
}

// SquareIndex converts algebraic notation to grid coordinates
func SquareIndex(square string) (row, col int, ok bool) {
	if len(square) != 2 {
		return 0, 0, false
	}
	if square[0] < 'a' || square[0] > 'h' || square[1] < '1' || square[1] > '8' {
		return 0, 0, false
	}
	return int('8' - square[1]), int(square[0] - 'a'), true
}

// Move is the wire form of a chess move
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"` // "q", "r", "b" or "n"
}

// UCI renders the move as long algebraic text, e.g. e7e8q
func (m Move) UCI() string {
	return m.From + m.To + m.Promotion
}

// ParseUCI splits long algebraic text into a Move, ok is false for malformed text
func ParseUCI(text string) (Move, bool) {
	if len(text) < 4 || len(text) > 5 {
		return Move{}, false
	}
	m := Move{From: text[:2], To: text[2:4], Promotion: text[4:]}
	if _, _, ok := SquareIndex(m.From); !ok {
		return Move{}, false
	}
	if _, _, ok := SquareIndex(m.To); !ok {
		return Move{}, false
	}
	return m, true
}
