package service

import (
	"errors"
	"fmt"

	"chessai/internal/core"
	"chessai/internal/server/game"

	"github.com/google/uuid"
)

var ErrGameNotFound = errors.New("game not found")

// CreateGame registers a new game with pre-constructed players
func (s *Service) CreateGame(id string, whitePlayer, blackPlayer *core.Player, initialFEN string, startingTurn core.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[id]; exists {
		return fmt.Errorf("game %s already exists", id)
	}

	s.games[id] = game.New(initialFEN, whitePlayer, blackPlayer, startingTurn)
	return nil
}

// UpdatePlayers replaces players in an existing game
func (s *Service) UpdatePlayers(gameID string, whitePlayer, blackPlayer *core.Player) error {
	g, err := s.GetGame(gameID)
	if err != nil {
		return err
	}

	g.UpdatePlayers(whitePlayer, blackPlayer)
	return nil
}

// GetGame retrieves a game by ID
func (s *Service) GetGame(gameID string) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return g, nil
}

// GenerateGameID creates a new unique game ID
func (s *Service) GenerateGameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for {
		id := uuid.New().String()
		if _, exists := s.games[id]; !exists {
			return id
		}
	}
}

// ApplyMove appends a validated move, records its result and wakes waiters.
// The move must have been computed in state from on a history of ply moves,
// otherwise game.ErrStaleHistory is returned and nothing changes.
// result.GameState becomes the game state.
func (s *Service) ApplyMove(gameID string, from core.State, ply int, result *game.MoveResult, newFEN string) error {
	g, err := s.GetGame(gameID)
	if err != nil {
		return err
	}

	if err := g.AppendMove(from, ply, newFEN, result); err != nil {
		return err
	}

	s.waiter.NotifyGame(gameID, ply+1)
	return nil
}

// UpdateGameState sets the game state, finished games wake waiters
func (s *Service) UpdateGameState(gameID string, state core.State) error {
	g, err := s.GetGame(gameID)
	if err != nil {
		return err
	}

	g.SetState(state)

	if state != core.StateOngoing && state != core.StatePending {
		s.waiter.NotifyGame(gameID, -1)
	}
	return nil
}

// UndoMoves removes the specified number of moves from game history
func (s *Service) UndoMoves(gameID string, count int) error {
	g, err := s.GetGame(gameID)
	if err != nil {
		return err
	}

	if err := g.UndoMoves(count); err != nil {
		return err
	}

	s.waiter.NotifyGame(gameID, len(g.Moves()))
	return nil
}

// DeleteGame removes a game from memory
func (s *Service) DeleteGame(gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[gameID]; !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}

	s.waiter.RemoveGame(gameID)

	delete(s.games, gameID)
	return nil
}
