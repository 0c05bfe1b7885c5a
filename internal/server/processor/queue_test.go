package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"chessai/internal/core"
	"chessai/internal/rules"
)

func TestSubmitReportsFullQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// No workers, so the single slot stays occupied
	q := &EngineQueue{
		tasks:  make(chan EngineTask, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	resp := make(chan EngineResult, 1)

	if err := q.Submit(EngineTask{FEN: rules.StartingFEN, Response: resp}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := q.Submit(EngineTask{FEN: rules.StartingFEN, Response: resp}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestShutdownRejectsNewWork(t *testing.T) {
	q := NewEngineQueue(1, 4, 1)
	if err := q.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	_, err := q.Search(context.Background(), rules.StartingFEN, core.ColorWhite, 1)
	if !errors.Is(err, ErrQueueShutdown) {
		t.Fatalf("expected ErrQueueShutdown, got %v", err)
	}
}

func TestSeededWorkersAreReproducible(t *testing.T) {
	run := func() string {
		q := NewEngineQueue(1, 4, 42)
		defer q.Shutdown(time.Second)

		res, err := q.Search(context.Background(), rules.StartingFEN, core.ColorWhite, 2)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		return res.Move
	}

	first := run()
	if first == "" {
		t.Fatalf("expected a move from the starting position")
	}
	for i := 0; i < 3; i++ {
		if got := run(); got != first {
			t.Fatalf("seeded search changed its move: %s then %s", first, got)
		}
	}
}

func TestInvalidFENReportsError(t *testing.T) {
	q := NewEngineQueue(1, 4, 1)
	defer q.Shutdown(time.Second)

	results := make(chan EngineResult, 1)
	err := q.SubmitAsync("g1", "8/8/8/8/8/8/8/8 w - - 0 1", core.ColorWhite, 2, func(r EngineResult) {
		results <- r
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case r := <-results:
		if !errors.Is(r.Error, rules.ErrInvalidFEN) {
			t.Fatalf("expected ErrInvalidFEN, got %v", r.Error)
		}
		if r.GameID != "g1" {
			t.Fatalf("expected game id g1, got %s", r.GameID)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no result")
	}
}
