// Package service keeps the in-memory game registry and notifies
// long-polling clients when a game changes.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chessai/internal/server/game"
)

// Service coordinates game state and client notification
type Service struct {
	games  map[string]*game.Game
	mu     sync.RWMutex
	waiter *WaitRegistry
}

// New creates an empty service
func New() *Service {
	return &Service{
		games:  make(map[string]*game.Game),
		waiter: NewWaitRegistry(),
	}
}

// RegisterWait registers a client to wait for game state changes
func (s *Service) RegisterWait(ctx context.Context, gameID string, moveCount int) <-chan struct{} {
	ch := s.waiter.RegisterWait(ctx, gameID, moveCount)

	// Re-check after registering so a change in between is not missed
	g, err := s.GetGame(gameID)
	switch {
	case err != nil, g.State().IsOver():
		s.waiter.NotifyGame(gameID, -1)
	case len(g.Moves()) != moveCount:
		s.waiter.NotifyGame(gameID, len(g.Moves()))
	}
	return ch
}

// GameCount returns the number of games held in memory
func (s *Service) GameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// Shutdown releases waiting clients and drops all games
func (s *Service) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.waiter.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("wait registry: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.games = make(map[string]*game.Game)

	return errors.Join(errs...)
}
