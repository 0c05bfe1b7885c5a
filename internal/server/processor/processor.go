// Package processor executes game and search commands against the game
// service and the engine queue.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
	"unicode"

	"chessai/internal/core"
	"chessai/internal/rules"
	"chessai/internal/server/game"
	"chessai/internal/server/service"
)

// computerMoveToken in a move request asks the engine to play for the side to move
const computerMoveToken = "cccc"

// FEN validation regex
var fenPattern = regexp.MustCompile(`^[rnbqkpRNBQKP1-8/]+ [wb] [KQkq-]+ [a-h1-8-]+ \d+ \d+$`)

// Config sizes the engine worker pool
type Config struct {
	Workers   int
	QueueSize int
	Seed      uint64 // 0 seeds each worker randomly
}

// Processor handles command execution and coordinates between service and engine layers
type Processor struct {
	svc   *service.Service
	queue *EngineQueue
}

// New creates a processor and starts its engine workers
func New(svc *service.Service, cfg Config) *Processor {
	return &Processor{
		svc:   svc,
		queue: NewEngineQueue(cfg.Workers, cfg.QueueSize, cfg.Seed),
	}
}

func (p *Processor) Execute(cmd Command) ProcessorResponse {
	switch cmd.Type {
	case CmdCreateGame:
		return p.handleCreateGame(cmd)
	case CmdConfigurePlayers:
		return p.handleConfigurePlayers(cmd)
	case CmdGetGame:
		return p.handleGetGame(cmd)
	case CmdMakeMove:
		return p.handleMakeMove(cmd)
	case CmdUndoMove:
		return p.handleUndoMove(cmd)
	case CmdDeleteGame:
		return p.handleDeleteGame(cmd)
	case CmdGetBoard:
		return p.handleGetBoard(cmd)
	case CmdSearch:
		return p.handleSearch(cmd)
	default:
		return p.errorResponse("unknown command", core.ErrInvalidRequest)
	}
}

// isFENSafe rejects control characters and text that is not shaped like a FEN
func (p *Processor) isFENSafe(fen string) bool {
	for _, r := range fen {
		if unicode.IsControl(r) && r != ' ' {
			return false
		}
	}
	return fenPattern.MatchString(fen)
}

// isMoveSafe accepts [a-h][1-8][a-h][1-8][qrbn]?
func (p *Processor) isMoveSafe(move string) bool {
	if len(move) < 4 || len(move) > 5 {
		return false
	}

	if move[0] < 'a' || move[0] > 'h' ||
		move[1] < '1' || move[1] > '8' ||
		move[2] < 'a' || move[2] > 'h' ||
		move[3] < '1' || move[3] > '8' {
		return false
	}

	if len(move) == 5 {
		switch move[4] {
		case 'q', 'r', 'b', 'n':
		default:
			return false
		}
	}

	return true
}

// handleCreateGame creates a new game and starts the computer if it moves first
func (p *Processor) handleCreateGame(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.CreateGameRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	initialFEN := rules.StartingFEN
	if args.FEN != "" {
		initialFEN = strings.TrimSpace(args.FEN)
		if !p.isFENSafe(initialFEN) {
			return p.errorResponse("invalid FEN format or characters", core.ErrInvalidFEN)
		}
	}

	pos, err := rules.Parse(initialFEN)
	if err != nil {
		return p.errorResponse(err.Error(), core.ErrInvalidFEN)
	}

	gameID := p.svc.GenerateGameID()
	whitePlayer := core.NewPlayer(args.White, core.ColorWhite)
	blackPlayer := core.NewPlayer(args.Black, core.ColorBlack)

	if err = p.svc.CreateGame(gameID, whitePlayer, blackPlayer, pos.FEN(), pos.SideToMove()); err != nil {
		return p.errorResponse(fmt.Sprintf("failed to create game: %v", err), core.ErrInternalError)
	}

	g, err := p.svc.GetGame(gameID)
	if err != nil {
		return p.errorResponse("game creation failed", core.ErrInternalError)
	}

	// A finished starting position never reaches the engine
	if state := pos.Outcome(); state != core.StateOngoing {
		p.svc.UpdateGameState(gameID, state)
	} else if g.NextPlayer().Type == core.PlayerComputer {
		if err := p.startComputerMove(gameID, g); err != nil {
			log.Printf("Computer move for new game %s not started: %v", gameID, err)
		}
	}

	return ProcessorResponse{
		Success: true,
		Pending: g.State() == core.StatePending,
		Data:    p.buildGameResponse(gameID, g),
	}
}

// handleConfigurePlayers updates player configuration mid-game
func (p *Processor) handleConfigurePlayers(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.ConfigurePlayersRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	if g.State() == core.StatePending {
		return p.errorResponse("cannot change players while computer is calculating", core.ErrInvalidRequest)
	}

	whitePlayer := core.NewPlayer(args.White, core.ColorWhite)
	blackPlayer := core.NewPlayer(args.Black, core.ColorBlack)

	if err = p.svc.UpdatePlayers(cmd.GameID, whitePlayer, blackPlayer); err != nil {
		return p.errorResponse(fmt.Sprintf("failed to update players: %v", err), core.ErrInternalError)
	}

	return ProcessorResponse{
		Success: true,
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

func (p *Processor) handleGetGame(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	return ProcessorResponse{
		Success: true,
		Pending: g.State() == core.StatePending,
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

// handleMakeMove plays a human move, or the computer's on computerMoveToken.
// A human move handing the turn to a computer player starts its search.
func (p *Processor) handleMakeMove(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.MoveRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	switch state := g.State(); state {
	case core.StatePending:
		return p.errorResponse("computer move in progress", core.ErrInvalidRequest)
	case core.StateStuck:
		return p.errorResponse("game is stuck due to engine error", core.ErrGameOver)
	case core.StateOngoing:
	default:
		return p.errorResponse(fmt.Sprintf("game is over: %s", state), core.ErrGameOver)
	}

	move := strings.ToLower(strings.TrimSpace(args.Move))

	if move == computerMoveToken {
		if g.NextPlayer().Type != core.PlayerComputer {
			return p.errorResponse("not computer player's turn", core.ErrNotHumanTurn)
		}
		if err := p.startComputerMove(cmd.GameID, g); err != nil {
			return p.queueErrorResponse(err)
		}

		response := p.buildGameResponse(cmd.GameID, g)
		response.LastMove = &core.MoveInfo{
			PlayerColor: g.NextTurnColor().String(),
		}
		return ProcessorResponse{
			Success: true,
			Pending: true,
			Data:    response,
		}
	}

	if g.NextPlayer().Type != core.PlayerHuman {
		return p.errorResponse("not human player's turn", core.ErrNotHumanTurn)
	}

	if !p.isMoveSafe(move) {
		return p.errorResponse("invalid move format", core.ErrInvalidMove)
	}

	pos, ply, err := g.Replay()
	if err != nil {
		return p.errorResponse(fmt.Sprintf("game history corrupt: %v", err), core.ErrInternalError)
	}

	m, err := pos.ParseMove(move)
	if err != nil {
		return p.errorResponse("illegal move", core.ErrInvalidMove)
	}

	currentColor := pos.SideToMove()
	pos.Apply(m)
	result := &game.MoveResult{
		Move:        rules.EncodeMove(m).UCI(),
		PlayerColor: currentColor,
		GameState:   pos.Outcome(),
	}

	if err = p.svc.ApplyMove(cmd.GameID, core.StateOngoing, ply, result, pos.FEN()); err != nil {
		if errors.Is(err, game.ErrStaleHistory) {
			return p.errorResponse("game changed by another move, reload and retry", core.ErrInvalidRequest)
		}
		return p.errorResponse(fmt.Sprintf("failed to apply move: %v", err), core.ErrInternalError)
	}

	if result.GameState == core.StateOngoing && g.NextPlayer().Type == core.PlayerComputer {
		if err := p.startComputerMove(cmd.GameID, g); err != nil {
			log.Printf("Computer reply for game %s not started: %v", cmd.GameID, err)
		}
	}

	return ProcessorResponse{
		Success: true,
		Pending: g.State() == core.StatePending,
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

// handleUndoMove reverts game state
func (p *Processor) handleUndoMove(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	switch g.State() {
	case core.StatePending:
		return p.errorResponse("cannot undo while computer move is in progress", core.ErrInvalidRequest)
	case core.StateStuck:
		return p.errorResponse("cannot undo in stuck game", core.ErrInvalidRequest)
	}

	args := core.UndoRequest{Count: 1}
	if req, ok := cmd.Args.(core.UndoRequest); ok && req.Count > 0 {
		args = req
	}

	if err = p.svc.UndoMoves(cmd.GameID, args.Count); err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			return p.errorResponse("game not found", core.ErrGameNotFound)
		}
		return p.errorResponse(err.Error(), core.ErrInvalidRequest)
	}

	// An earlier position may itself be final, e.g. a game created from a drawn FEN
	if pos, err := g.Position(); err == nil {
		if state := pos.Outcome(); state != core.StateOngoing {
			p.svc.UpdateGameState(cmd.GameID, state)
		}
	}

	return ProcessorResponse{
		Success: true,
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

// handleDeleteGame removes a game
func (p *Processor) handleDeleteGame(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	if g.State() == core.StatePending {
		return p.errorResponse("cannot delete game while computer move is in progress", core.ErrInvalidRequest)
	}

	if err = p.svc.DeleteGame(cmd.GameID); err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	return ProcessorResponse{
		Success: true,
	}
}

// handleGetBoard returns board visualization
func (p *Processor) handleGetBoard(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	fen := g.CurrentFEN()
	pos, err := rules.Parse(fen)
	if err != nil {
		return p.errorResponse("error parsing FEN", core.ErrInvalidFEN)
	}

	return ProcessorResponse{
		Success: true,
		Data: core.BoardResponse{
			FEN:   fen,
			Board: pos.ASCII(),
		},
	}
}

// handleSearch runs one stateless search and waits for the move
func (p *Processor) handleSearch(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.SearchRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	fen := strings.TrimSpace(args.PositionSnapshot)
	if !p.isFENSafe(fen) {
		return p.errorResponse("invalid FEN format or characters", core.ErrInvalidFEN)
	}
	if _, err := rules.Parse(fen); err != nil {
		return p.errorResponse(err.Error(), core.ErrInvalidFEN)
	}

	side, ok := core.ParseColor(args.Side)
	if !ok {
		return p.errorResponse("side must be w or b", core.ErrInvalidRequest)
	}

	ctx := cmd.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := p.queue.Search(ctx, fen, side, args.Depth)
	if err != nil {
		return p.queueErrorResponse(err)
	}

	response := core.SearchResponse{Nodes: result.Nodes}
	if m, ok := core.ParseUCI(result.Move); ok {
		response.Move = &m
		response.Score = result.Score
	}

	return ProcessorResponse{
		Success: true,
		Data:    response,
	}
}

// startComputerMove marks the game pending and queues a search for the side
// to move. The callback applies the engine's move or marks the game stuck.
func (p *Processor) startComputerMove(gameID string, g *game.Game) error {
	if !g.CompareAndSetState(core.StateOngoing, core.StatePending) {
		return fmt.Errorf("game %s is %s", gameID, g.State())
	}

	fen := g.CurrentFEN()
	color := g.NextTurnColor()
	player := g.NextPlayer()

	err := p.queue.SubmitAsync(gameID, fen, color, player.Difficulty.SearchDepth(), func(result EngineResult) {
		p.finishComputerMove(gameID, color, result)
	})
	if err != nil {
		g.CompareAndSetState(core.StatePending, core.StateOngoing)
		return err
	}
	return nil
}

func (p *Processor) finishComputerMove(gameID string, color core.Color, result EngineResult) {
	g, err := p.svc.GetGame(gameID)
	if err != nil {
		return // Game was deleted
	}

	if g.State() != core.StatePending {
		return
	}

	if result.Error != nil {
		log.Printf("Engine error for game %s: %v", gameID, result.Error)
		p.svc.UpdateGameState(gameID, core.StateStuck)
		return
	}

	pos, ply, err := g.Replay()
	if err != nil {
		log.Printf("Replay failed for game %s: %v", gameID, err)
		p.svc.UpdateGameState(gameID, core.StateStuck)
		return
	}

	if result.Move == "" {
		state := pos.Outcome()
		if state == core.StateOngoing {
			state = core.StateStuck
		}
		p.svc.UpdateGameState(gameID, state)
		return
	}

	m, err := pos.ParseMove(result.Move)
	if err != nil {
		log.Printf("Engine returned unplayable move %s for game %s: %v", result.Move, gameID, err)
		p.svc.UpdateGameState(gameID, core.StateStuck)
		return
	}
	pos.Apply(m)

	if err := p.svc.ApplyMove(gameID, core.StatePending, ply, &game.MoveResult{
		Move:        result.Move,
		PlayerColor: color,
		GameState:   pos.Outcome(),
		Score:       result.Score,
		Depth:       result.Depth,
		Nodes:       result.Nodes,
	}, pos.FEN()); err != nil {
		log.Printf("Applying computer move for game %s: %v", gameID, err)
	}
}

// buildGameResponse constructs standard game response
func (p *Processor) buildGameResponse(gameID string, g *game.Game) core.GameResponse {
	resp := core.GameResponse{
		GameID: gameID,
		FEN:    g.CurrentFEN(),
		Turn:   g.NextTurnColor().String(),
		State:  g.State().String(),
		Moves:  g.Moves(),
		Players: core.PlayersResponse{
			White: g.GetPlayer(core.ColorWhite),
			Black: g.GetPlayer(core.ColorBlack),
		},
	}

	if result := g.LastResult(); result != nil {
		resp.LastMove = &core.MoveInfo{
			Move:        result.Move,
			PlayerColor: result.PlayerColor.String(),
			Score:       result.Score,
			Depth:       result.Depth,
			Nodes:       result.Nodes,
		}
	}

	return resp
}

func (p *Processor) queueErrorResponse(err error) ProcessorResponse {
	switch {
	case errors.Is(err, ErrQueueFull):
		return p.errorResponse(err.Error(), core.ErrQueueFull)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return p.errorResponse("search abandoned", core.ErrInternalError)
	default:
		return p.errorResponse(err.Error(), core.ErrInternalError)
	}
}

// errorResponse creates error response
func (p *Processor) errorResponse(message, code string) ProcessorResponse {
	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Error: message,
			Code:  code,
		},
	}
}

// Close stops the engine workers
func (p *Processor) Close() error {
	return p.queue.Shutdown(5 * time.Second)
}
