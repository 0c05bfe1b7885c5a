package game

import (
	"errors"
	"fmt"
	"sync"

	"chessai/internal/core"
	"chessai/internal/rules"
)

// ErrStaleHistory rejects a move computed against a history that has since changed
var ErrStaleHistory = errors.New("game history changed")

type Snapshot struct {
	FEN           string     `json:"fen"`
	PreviousMove  string     `json:"previousMove"`
	NextTurnColor core.Color `json:"nextTurnColor"`
	PlayerID      string     `json:"playerId"` // ID of the player whose turn it is
}

// MoveResult tracks the outcome of a move
type MoveResult struct {
	Move        string     `json:"move"`
	PlayerColor core.Color `json:"playerColor"`
	GameState   core.State `json:"gameState"`
	Score       float64    `json:"score"`
	Depth       int        `json:"depth"`
	Nodes       int        `json:"nodes"`
}

// Game holds one game's history and players. Methods are safe for
// concurrent use, engine callbacks update games from worker goroutines.
type Game struct {
	mu         sync.RWMutex
	snapshots  []Snapshot
	players    map[core.Color]*core.Player
	state      core.State
	lastResult *MoveResult
}

func New(initialFEN string, whitePlayer, blackPlayer *core.Player, startingTurnColor core.Color) *Game {
	// Determine which player's turn it is initially
	var initialPlayerID string
	if startingTurnColor == core.ColorWhite {
		initialPlayerID = whitePlayer.ID
	} else {
		initialPlayerID = blackPlayer.ID
	}

	return &Game{
		snapshots: []Snapshot{
			{
				FEN:           initialFEN,
				PreviousMove:  "",
				NextTurnColor: startingTurnColor,
				PlayerID:      initialPlayerID,
			},
		},
		players: map[core.Color]*core.Player{
			core.ColorWhite: whitePlayer,
			core.ColorBlack: blackPlayer,
		},
		state: core.StateOngoing,
	}
}

func (g *Game) LastResult() *MoveResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastResult
}

// CurrentSnapshot returns the latest game snapshot
func (g *Game) CurrentSnapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshots[len(g.snapshots)-1]
}

// CurrentFEN returns the current position in FEN notation
func (g *Game) CurrentFEN() string {
	return g.CurrentSnapshot().FEN
}

func (g *Game) NextTurnColor() core.Color {
	return g.CurrentSnapshot().NextTurnColor
}

func (g *Game) NextPlayer() *core.Player {
	color := g.NextTurnColor()
	return g.GetPlayer(color)
}

func (g *Game) GetPlayer(color core.Color) *core.Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.players[color]
}

// HasComputer reports whether either side is played by the engine
func (g *Game) HasComputer() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, p := range g.players {
		if p.Type == core.PlayerComputer {
			return true
		}
	}
	return false
}

// AppendMove records a move played from the position after ply moves. It fails
// with ErrStaleHistory unless the game is still in state from with exactly ply
// moves, so two moves computed from the same parent cannot both land.
// On success the game state becomes result.GameState.
func (g *Game) AppendMove(from core.State, ply int, fen string, result *MoveResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != from {
		return fmt.Errorf("%w: state is %s", ErrStaleHistory, g.state)
	}
	if len(g.snapshots)-1 != ply {
		return fmt.Errorf("%w: %d moves played, expected %d", ErrStaleHistory, len(g.snapshots)-1, ply)
	}

	next := core.OppositeColor(g.snapshots[len(g.snapshots)-1].NextTurnColor)
	g.snapshots = append(g.snapshots, Snapshot{
		FEN:           fen,
		PreviousMove:  result.Move,
		NextTurnColor: next,
		PlayerID:      g.players[next].ID,
	})
	g.lastResult = result
	g.state = result.GameState
	return nil
}

func (g *Game) UpdatePlayers(whitePlayer, blackPlayer *core.Player) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.players[core.ColorWhite] = whitePlayer
	g.players[core.ColorBlack] = blackPlayer

	// Update current snapshot's PlayerID to reflect new player
	currentSnap := &g.snapshots[len(g.snapshots)-1]
	currentSnap.PlayerID = g.players[currentSnap.NextTurnColor].ID
}

func (g *Game) UndoMoves(count int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if count < 1 {
		return fmt.Errorf("invalid undo count: %d", count)
	}
	if g.state == core.StatePending {
		return fmt.Errorf("cannot undo while a computer move is pending")
	}

	availableMoves := len(g.snapshots) - 1
	if availableMoves < count {
		return fmt.Errorf("cannot undo %d moves: only %d moves available", count, availableMoves)
	}

	g.snapshots = g.snapshots[:len(g.snapshots)-count]
	g.state = core.StateOngoing // Reset game state when undoing
	g.lastResult = nil
	return nil
}

func (g *Game) Moves() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	moves := []string{}
	for i := 1; i < len(g.snapshots); i++ {
		if g.snapshots[i].PreviousMove != "" {
			moves = append(moves, g.snapshots[i].PreviousMove)
		}
	}
	return moves
}

func (g *Game) State() core.State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

func (g *Game) SetState(s core.State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = s
}

// CompareAndSetState sets the state only when it currently equals from
func (g *Game) CompareAndSetState(from, to core.State) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != from {
		return false
	}
	g.state = to
	return true
}

func (g *Game) InitialFEN() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(g.snapshots) > 0 {
		return g.snapshots[0].FEN
	}
	return rules.StartingFEN
}

// Position rebuilds the current position from the initial FEN and the move
// history, so repetition draws see the whole game.
func (g *Game) Position() (*rules.Position, error) {
	pos, _, err := g.Replay()
	return pos, err
}

// Replay is Position plus the number of moves replayed, read from one
// consistent view of the history. Pass the count to AppendMove.
func (g *Game) Replay() (*rules.Position, int, error) {
	g.mu.RLock()
	initial := g.snapshots[0].FEN
	moves := make([]string, 0, len(g.snapshots)-1)
	for _, snap := range g.snapshots[1:] {
		moves = append(moves, snap.PreviousMove)
	}
	g.mu.RUnlock()

	pos, err := rules.Parse(initial)
	if err != nil {
		return nil, 0, err
	}
	for _, text := range moves {
		m, err := pos.ParseMove(text)
		if err != nil {
			return nil, 0, fmt.Errorf("replay %s: %w", text, err)
		}
		pos.Apply(m)
	}
	return pos, len(moves), nil
}
