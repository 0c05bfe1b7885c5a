package core

// Request types

type CreateGameRequest struct {
	White PlayerConfig `json:"white" validate:"required"`
	Black PlayerConfig `json:"black" validate:"required"`
	FEN   string       `json:"fen,omitempty" validate:"omitempty,max=100"`
}

type ConfigurePlayersRequest struct {
	White PlayerConfig `json:"white" validate:"required"`
	Black PlayerConfig `json:"black" validate:"required"`
}

type MoveRequest struct {
	Move string `json:"move" validate:"required,min=4,max=5"` // "cccc" for computer move, 4-5 chars for UCI moves
}

type UndoRequest struct {
	Count int `json:"count" validate:"required,min=1,max=300"`
}

// SearchRequest asks the engine for one move in a standalone position
type SearchRequest struct {
	PositionSnapshot string `json:"positionSnapshot" validate:"required,max=100"`
	Depth            int    `json:"depth" validate:"required,min=1,max=5"`
	Side             string `json:"side" validate:"required,oneof=w b"`
}

// Response types

// SearchResponse carries the selected move, nil when the position has no legal moves
type SearchResponse struct {
	Move  *Move   `json:"move"`
	Score float64 `json:"score,omitempty"`
	Nodes int     `json:"nodes,omitempty"`
}

type GameResponse struct {
	GameID   string          `json:"gameId"`
	FEN      string          `json:"fen"`
	Turn     string          `json:"turn"`  // "w" or "b"
	State    string          `json:"state"` // "ongoing", "white wins", etc
	Moves    []string        `json:"moves"`
	Players  PlayersResponse `json:"players"`
	LastMove *MoveInfo       `json:"lastMove,omitempty"`
}

type MoveInfo struct {
	Move        string  `json:"move"`
	PlayerColor string  `json:"playerColor"` // "w" or "b"
	Score       float64 `json:"score,omitempty"`
	Depth       int     `json:"depth,omitempty"`
	Nodes       int     `json:"nodes,omitempty"`
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"` // ASCII representation
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
