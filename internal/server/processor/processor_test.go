package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chessai/internal/core"
	"chessai/internal/server/service"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	svc := service.New()
	p := New(svc, Config{Workers: 2, QueueSize: 8, Seed: 7})
	t.Cleanup(func() {
		p.Close()
		svc.Shutdown(time.Second)
	})
	return p
}

func human() core.PlayerConfig { return core.PlayerConfig{Type: core.PlayerHuman} }

func computer(d core.Difficulty) core.PlayerConfig {
	return core.PlayerConfig{Type: core.PlayerComputer, Difficulty: d}
}

func mustCreate(t *testing.T, p *Processor, req core.CreateGameRequest) core.GameResponse {
	t.Helper()
	resp := p.Execute(NewCreateGameCommand(req))
	if !resp.Success {
		t.Fatalf("create failed: %+v", resp.Error)
	}
	return resp.Data.(core.GameResponse)
}

func expectError(t *testing.T, resp ProcessorResponse, code string) {
	t.Helper()
	if resp.Success {
		t.Fatalf("expected %s, got success", code)
	}
	if resp.Error.Code != code {
		t.Fatalf("expected %s, got %s (%s)", code, resp.Error.Code, resp.Error.Error)
	}
}

// waitForMoves polls until the game has n moves and is no longer pending
func waitForMoves(t *testing.T, p *Processor, gameID string, n int) core.GameResponse {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp := p.Execute(NewGetGameCommand(gameID))
		if !resp.Success {
			t.Fatalf("get failed: %+v", resp.Error)
		}
		g := resp.Data.(core.GameResponse)
		if len(g.Moves) >= n && g.State != core.StatePending.String() {
			return g
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d moves, have %v in state %s", n, g.Moves, g.State)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHumanGameFlow(t *testing.T) {
	p := newTestProcessor(t)
	g := mustCreate(t, p, core.CreateGameRequest{White: human(), Black: human()})

	if g.Turn != "w" || g.State != "ongoing" {
		t.Fatalf("unexpected new game %+v", g)
	}

	resp := p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "E2E4"}))
	if !resp.Success {
		t.Fatalf("move failed: %+v", resp.Error)
	}
	after := resp.Data.(core.GameResponse)
	if after.Turn != "b" || len(after.Moves) != 1 || after.Moves[0] != "e2e4" {
		t.Fatalf("unexpected state after e2e4: %+v", after)
	}

	expectError(t, p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "e2e4"})), core.ErrInvalidMove)
	expectError(t, p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "z9z9"})), core.ErrInvalidMove)
	expectError(t, p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "cccc"})), core.ErrNotHumanTurn)

	resp = p.Execute(NewUndoMoveCommand(g.GameID, core.UndoRequest{Count: 1}))
	if !resp.Success {
		t.Fatalf("undo failed: %+v", resp.Error)
	}
	if undone := resp.Data.(core.GameResponse); len(undone.Moves) != 0 || undone.Turn != "w" {
		t.Fatalf("unexpected state after undo: %+v", undone)
	}
	expectError(t, p.Execute(NewUndoMoveCommand(g.GameID, core.UndoRequest{Count: 1})), core.ErrInvalidRequest)

	board := p.Execute(NewGetBoardCommand(g.GameID))
	if !board.Success || board.Data.(core.BoardResponse).Board == "" {
		t.Fatalf("board failed: %+v", board)
	}

	if resp := p.Execute(NewDeleteGameCommand(g.GameID)); !resp.Success {
		t.Fatalf("delete failed: %+v", resp.Error)
	}
	expectError(t, p.Execute(NewGetGameCommand(g.GameID)), core.ErrGameNotFound)
}

func TestFoolsMateEndsGame(t *testing.T) {
	p := newTestProcessor(t)
	g := mustCreate(t, p, core.CreateGameRequest{White: human(), Black: human()})

	var resp ProcessorResponse
	for _, mv := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		resp = p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: mv}))
		if !resp.Success {
			t.Fatalf("move %s failed: %+v", mv, resp.Error)
		}
	}
	if state := resp.Data.(core.GameResponse).State; state != "black wins" {
		t.Fatalf("expected black wins, got %s", state)
	}
	expectError(t, p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "a2a3"})), core.ErrGameOver)
}

func TestCreateRejectsBadFEN(t *testing.T) {
	p := newTestProcessor(t)

	for _, fen := range []string{
		"garbage",
		"8/8/8/8/8/8/8/8 w - - 0 1", // no kings
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1\nquit",
	} {
		resp := p.Execute(NewCreateGameCommand(core.CreateGameRequest{White: human(), Black: human(), FEN: fen}))
		expectError(t, resp, core.ErrInvalidFEN)
	}
}

func TestCreateFromFinishedPosition(t *testing.T) {
	p := newTestProcessor(t)
	g := mustCreate(t, p, core.CreateGameRequest{
		White: computer(core.DifficultyHard),
		Black: human(),
		FEN:   "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1",
	})
	if g.State != "stalemate" {
		t.Fatalf("expected stalemate, got %s", g.State)
	}
}

func TestComputerRepliesToHumanMove(t *testing.T) {
	p := newTestProcessor(t)
	g := mustCreate(t, p, core.CreateGameRequest{White: human(), Black: computer(core.DifficultyMedium)})

	resp := p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "e2e4"}))
	if !resp.Success {
		t.Fatalf("move failed: %+v", resp.Error)
	}

	done := waitForMoves(t, p, g.GameID, 2)
	if done.Turn != "w" || done.State != "ongoing" {
		t.Fatalf("unexpected state after reply: %+v", done)
	}
	if done.LastMove == nil || done.LastMove.PlayerColor != "b" || done.LastMove.Depth != 2 || done.LastMove.Nodes == 0 {
		t.Fatalf("missing search metadata: %+v", done.LastMove)
	}
}

func TestComputerOpensWhenWhite(t *testing.T) {
	p := newTestProcessor(t)
	g := mustCreate(t, p, core.CreateGameRequest{White: computer(core.DifficultyEasy), Black: human()})

	done := waitForMoves(t, p, g.GameID, 1)
	if done.Turn != "b" {
		t.Fatalf("expected black to move after computer opening, got %s", done.Turn)
	}
	if done.LastMove == nil || done.LastMove.Depth != 0 {
		t.Fatalf("easy move should report depth 0: %+v", done.LastMove)
	}
}

func TestComputerVsComputerSteps(t *testing.T) {
	p := newTestProcessor(t)
	g := mustCreate(t, p, core.CreateGameRequest{White: computer(core.DifficultyEasy), Black: computer(core.DifficultyEasy)})
	waitForMoves(t, p, g.GameID, 1)

	resp := p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "cccc"}))
	if !resp.Success || !resp.Pending {
		t.Fatalf("expected pending computer move, got %+v", resp)
	}
	waitForMoves(t, p, g.GameID, 2)

	expectError(t, p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "e2e4"})), core.ErrNotHumanTurn)
}

func TestConfigurePlayers(t *testing.T) {
	p := newTestProcessor(t)
	g := mustCreate(t, p, core.CreateGameRequest{White: human(), Black: human()})

	resp := p.Execute(NewConfigurePlayersCommand(g.GameID, core.ConfigurePlayersRequest{
		White: human(),
		Black: computer(core.DifficultyHard),
	}))
	if !resp.Success {
		t.Fatalf("configure failed: %+v", resp.Error)
	}
	updated := resp.Data.(core.GameResponse)
	if updated.Players.Black.Type != core.PlayerComputer || updated.Players.Black.Difficulty != core.DifficultyHard {
		t.Fatalf("black not updated: %+v", updated.Players.Black)
	}
}

func TestSearchCommand(t *testing.T) {
	p := newTestProcessor(t)

	resp := p.Execute(NewSearchCommand(context.Background(), core.SearchRequest{
		PositionSnapshot: "4k3/8/8/3q4/8/8/3R4/4K3 w - - 0 1",
		Depth:            2,
		Side:             "w",
	}))
	if !resp.Success {
		t.Fatalf("search failed: %+v", resp.Error)
	}
	result := resp.Data.(core.SearchResponse)
	if result.Move == nil || result.Move.UCI() != "d2d5" {
		t.Fatalf("expected d2d5, got %+v", result.Move)
	}
	if result.Nodes == 0 {
		t.Fatalf("expected node count")
	}

	resp = p.Execute(NewSearchCommand(context.Background(), core.SearchRequest{
		PositionSnapshot: "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		Depth:            2,
		Side:             "w",
	}))
	if !resp.Success {
		t.Fatalf("search failed: %+v", resp.Error)
	}
	if result := resp.Data.(core.SearchResponse); result.Move != nil {
		t.Fatalf("mated side must get no move, got %+v", result.Move)
	}

	expectError(t, p.Execute(NewSearchCommand(context.Background(), core.SearchRequest{
		PositionSnapshot: "not a fen",
		Depth:            1,
		Side:             "w",
	})), core.ErrInvalidFEN)
}

func TestSearchAbandonedByCaller(t *testing.T) {
	p := newTestProcessor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := p.Execute(NewSearchCommand(ctx, core.SearchRequest{
		PositionSnapshot: "r3k2r/pppq1ppp/2npbn2/2b1p3/2B1P3/2NPBN2/PPPQ1PPP/R3K2R w KQkq - 4 8",
		Depth:            3,
		Side:             "w",
	}))
	expectError(t, resp, core.ErrInternalError)
}

func TestConcurrentMovesOnOneGame(t *testing.T) {
	p := newTestProcessor(t)

	for i := 0; i < 100; i++ {
		g := mustCreate(t, p, core.CreateGameRequest{White: human(), Black: human()})

		var wg sync.WaitGroup
		responses := make([]ProcessorResponse, 2)
		for j, mv := range []string{"e2e4", "d2d4"} {
			wg.Add(1)
			go func(j int, mv string) {
				defer wg.Done()
				responses[j] = p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: mv}))
			}(j, mv)
		}
		wg.Wait()

		accepted := 0
		for _, resp := range responses {
			if resp.Success {
				accepted++
				continue
			}
			if code := resp.Error.Code; code != core.ErrInvalidMove && code != core.ErrInvalidRequest {
				t.Fatalf("losing move got %s (%s)", code, resp.Error.Error)
			}
		}
		if accepted != 1 {
			t.Fatalf("game %d: %d moves accepted for white's first turn", i, accepted)
		}

		stored, err := p.svc.GetGame(g.GameID)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := stored.Position(); err != nil {
			t.Fatalf("history no longer replays: %v", err)
		}
		if moves := stored.Moves(); len(moves) != 1 {
			t.Fatalf("history = %v, want one move", moves)
		}
	}
}

// pendingGame creates a human game with one move played and holds it as if
// a computer search were running
func pendingGame(t *testing.T, p *Processor) string {
	t.Helper()
	g := mustCreate(t, p, core.CreateGameRequest{White: human(), Black: human()})
	if resp := p.Execute(NewMakeMoveCommand(g.GameID, core.MoveRequest{Move: "e2e4"})); !resp.Success {
		t.Fatalf("move failed: %+v", resp.Error)
	}

	stored, err := p.svc.GetGame(g.GameID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.CompareAndSetState(core.StateOngoing, core.StatePending) {
		t.Fatalf("could not mark game pending")
	}
	return g.GameID
}

func TestPendingComputerMoveBlocksInput(t *testing.T) {
	p := newTestProcessor(t)
	id := pendingGame(t, p)

	tests := []struct {
		name string
		cmd  Command
	}{
		{"human move", NewMakeMoveCommand(id, core.MoveRequest{Move: "e7e5"})},
		{"computer trigger", NewMakeMoveCommand(id, core.MoveRequest{Move: "cccc"})},
		{"undo", NewUndoMoveCommand(id, core.UndoRequest{Count: 1})},
		{"delete", NewDeleteGameCommand(id)},
		{"configure players", NewConfigurePlayersCommand(id, core.ConfigurePlayersRequest{White: human(), Black: computer(core.DifficultyEasy)})},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expectError(t, p.Execute(tc.cmd), core.ErrInvalidRequest)
		})
	}

	resp := p.Execute(NewGetGameCommand(id))
	if !resp.Success || !resp.Pending {
		t.Fatalf("expected pending game, got %+v", resp)
	}
	g := resp.Data.(core.GameResponse)
	if len(g.Moves) != 1 || g.Players.Black.Type != core.PlayerHuman {
		t.Fatalf("rejected commands changed the game: %+v", g)
	}
}

func TestFailedComputerMoveMarksGameStuck(t *testing.T) {
	tests := []struct {
		name   string
		result EngineResult
	}{
		{"engine error", EngineResult{Error: errors.New("worker panic")}},
		{"unplayable move", EngineResult{Move: "e2e5"}},
		{"no move in live position", EngineResult{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProcessor(t)
			id := pendingGame(t, p)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			woken := p.svc.RegisterWait(ctx, id, 1)

			tc.result.GameID = id
			p.finishComputerMove(id, core.ColorBlack, tc.result)

			select {
			case <-woken:
			case <-time.After(time.Second):
				t.Fatalf("waiter not woken")
			}

			stored, err := p.svc.GetGame(id)
			if err != nil {
				t.Fatal(err)
			}
			if stored.State() != core.StateStuck {
				t.Fatalf("state = %s, want stuck", stored.State())
			}
			if len(stored.Moves()) != 1 {
				t.Fatalf("stuck game gained a move: %v", stored.Moves())
			}

			expectError(t, p.Execute(NewMakeMoveCommand(id, core.MoveRequest{Move: "e7e5"})), core.ErrGameOver)
			expectError(t, p.Execute(NewUndoMoveCommand(id, core.UndoRequest{Count: 1})), core.ErrInvalidRequest)
		})
	}
}
