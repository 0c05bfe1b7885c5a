package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chessai/internal/client/display"
	"chessai/internal/core"
)

// maxPolls bounds how many long polls a command waits for the computer
const maxPolls = 8

var errNoGame = errors.New("no current game, use 'new' or 'join <gameId>'")

func (r *Registry) registerGameCommands() {
	r.Register(&Command{
		Name:        "new",
		ShortName:   "n",
		Description: "Create a new game",
		Usage:       "new",
		Handler:     newGameHandler,
	})

	r.Register(&Command{
		Name:        "join",
		ShortName:   "j",
		Description: "Join/set current game ID",
		Usage:       "join <gameId>",
		Handler:     joinGameHandler,
	})

	r.Register(&Command{
		Name:        "move",
		ShortName:   "m",
		Description: "Make a move",
		Usage:       "move <uci-move>",
		Handler:     moveHandler,
	})

	r.Register(&Command{
		Name:        "computer",
		ShortName:   "c",
		Description: "Ask the computer to move for the side to play",
		Usage:       "computer",
		Handler:     computerMoveHandler,
	})

	r.Register(&Command{
		Name:        "undo",
		ShortName:   "u",
		Description: "Undo moves",
		Usage:       "undo [count]",
		Handler:     undoHandler,
	})

	r.Register(&Command{
		Name:        "show",
		ShortName:   "h",
		Description: "Show board and game state",
		Usage:       "show",
		Handler:     showBoardHandler,
	})

	r.Register(&Command{
		Name:        "state",
		ShortName:   "s",
		Description: "Show raw game JSON",
		Usage:       "state",
		Handler:     gameStateHandler,
	})

	r.Register(&Command{
		Name:        "delete",
		ShortName:   "d",
		Description: "Delete a game",
		Usage:       "delete [gameId]",
		Handler:     deleteGameHandler,
	})

	r.Register(&Command{
		Name:        "poll",
		ShortName:   "p",
		Description: "Long-poll for game updates",
		Usage:       "poll",
		Handler:     pollHandler,
	})

	r.Register(&Command{
		Name:        "search",
		ShortName:   "e",
		Description: "Ask the engine for a move in any position",
		Usage:       "search <depth 1-5> [fen]  (defaults to the current game's position)",
		Handler:     searchHandler,
	})
}

// parseDifficulty accepts e/m/h, the full names or 1-3
func parseDifficulty(text string) (core.Difficulty, error) {
	switch strings.ToLower(text) {
	case "e", "easy", "1":
		return core.DifficultyEasy, nil
	case "m", "medium", "2":
		return core.DifficultyMedium, nil
	case "h", "hard", "3":
		return core.DifficultyHard, nil
	default:
		return 0, fmt.Errorf("unknown difficulty %q, use easy, medium or hard", text)
	}
}

func askComputer(s Session, label string) (core.PlayerConfig, error) {
	answer, err := s.Ask(display.Yellow(label+" difficulty (easy/medium/hard) [medium]: "), "medium")
	if err != nil {
		return core.PlayerConfig{}, err
	}
	d, err := parseDifficulty(answer)
	if err != nil {
		return core.PlayerConfig{}, err
	}
	return core.PlayerConfig{Type: core.PlayerComputer, Difficulty: d}, nil
}

func newGameHandler(s Session, args []string) error {
	out := s.Out()
	fmt.Fprintln(out, "\n"+display.Cyan("Creating new game..."))

	mode, err := s.Ask(display.Yellow("Mode: 1) human vs human 2) human vs computer 3) computer vs computer [2]: "), "2")
	if err != nil {
		return err
	}

	human := core.PlayerConfig{Type: core.PlayerHuman}
	req := &core.CreateGameRequest{White: human, Black: human}
	playerColor := ""

	switch mode {
	case "1":
	case "2":
		side, err := s.Ask(display.Yellow("Play as (w/b) [w]: "), "w")
		if err != nil {
			return err
		}
		color, ok := core.ParseColor(strings.ToLower(side))
		if !ok {
			return fmt.Errorf("side must be w or b")
		}
		computer, err := askComputer(s, "Computer")
		if err != nil {
			return err
		}
		if color == core.ColorWhite {
			req.Black = computer
		} else {
			req.White = computer
		}
		playerColor = color.String()
	case "3":
		if req.White, err = askComputer(s, "White"); err != nil {
			return err
		}
		if req.Black, err = askComputer(s, "Black"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	if req.FEN, err = s.Ask(display.Yellow("Starting position (FEN) [default]: "), ""); err != nil {
		return err
	}

	resp, err := s.GetClient().CreateGame(req)
	if err != nil {
		return err
	}

	s.SetCurrentGame(resp.GameID)
	s.SetGameState(resp)
	s.SetPlayerColor(playerColor)

	fmt.Fprintln(out, display.Green("Game created: "+resp.GameID))
	return waitForComputer(s, resp)
}

func joinGameHandler(s Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: join <gameId>")
	}

	gameID := args[0]
	resp, err := s.GetClient().GetGame(gameID)
	if err != nil {
		return err
	}

	s.SetCurrentGame(gameID)
	s.SetGameState(resp)

	fmt.Fprintln(s.Out(), display.Green("Joined game: "+gameID))
	fmt.Fprintf(s.Out(), "%s | Moves: %d\n", display.StatusLine(resp.State, resp.Turn), len(resp.Moves))
	return nil
}

func moveHandler(s Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: move <uci-move>")
	}

	gameID := s.GetCurrentGame()
	if gameID == "" {
		return errNoGame
	}

	resp, err := s.GetClient().MakeMove(gameID, args[0])
	if err != nil {
		return err
	}

	s.SetGameState(resp)
	fmt.Fprintln(s.Out(), display.Green("Move accepted"))
	return waitForComputer(s, resp)
}

func computerMoveHandler(s Session, args []string) error {
	gameID := s.GetCurrentGame()
	if gameID == "" {
		return errNoGame
	}

	resp, err := s.GetClient().MakeMove(gameID, "cccc")
	if err != nil {
		return err
	}

	s.SetGameState(resp)
	return waitForComputer(s, resp)
}

// waitForComputer long-polls while the server reports a computer move in
// progress, then prints the move and the resulting status
func waitForComputer(s Session, resp *core.GameResponse) error {
	out := s.Out()
	c := s.GetClient()

	for i := 0; resp.State == core.StatePending.String(); i++ {
		if i == maxPolls {
			return fmt.Errorf("computer still thinking, use 'poll' to keep waiting")
		}
		if i == 0 {
			fmt.Fprintln(out, display.Magenta("Computer is thinking..."))
		}

		next, err := c.GetGameWithPoll(resp.GameID, len(resp.Moves))
		if err != nil {
			return err
		}
		if len(next.Moves) > len(resp.Moves) && next.LastMove != nil {
			fmt.Fprintln(out, display.Magenta("Computer played: "+next.LastMove.Move)+searchInfo(next.LastMove))
		}
		resp = next
		s.SetGameState(resp)
	}

	fmt.Fprintln(out, display.StatusLine(resp.State, resp.Turn))
	return nil
}

func searchInfo(m *core.MoveInfo) string {
	if m.Depth == 0 {
		return ""
	}
	return fmt.Sprintf(" (depth %d, score %.1f, nodes %d)", m.Depth, m.Score, m.Nodes)
}

func undoHandler(s Session, args []string) error {
	gameID := s.GetCurrentGame()
	if gameID == "" {
		return errNoGame
	}

	count := 1
	// Against the computer take back its reply together with our move
	if g := s.GameState(); g != nil && s.GetPlayerColor() == g.Turn && len(g.Moves) >= 2 {
		count = 2
	}
	if len(args) > 0 {
		var err error
		if count, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("invalid count: %s", args[0])
		}
	}

	resp, err := s.GetClient().UndoMoves(gameID, count)
	if err != nil {
		return err
	}

	s.SetGameState(resp)
	fmt.Fprintln(s.Out(), display.Green(fmt.Sprintf("Undid %d move(s)", count)))
	return nil
}

func showBoardHandler(s Session, args []string) error {
	gameID := s.GetCurrentGame()
	if gameID == "" {
		return errNoGame
	}

	c := s.GetClient()
	game, err := c.GetGame(gameID)
	if err != nil {
		return err
	}
	board, err := c.GetBoard(gameID)
	if err != nil {
		return err
	}

	s.SetGameState(game)

	out := s.Out()
	fmt.Fprintln(out)
	display.RenderBoard(out, board.Board)

	fmt.Fprintf(out, "\nFEN: %s\n", game.FEN)
	fmt.Fprintf(out, "%s | Moves: %d\n", display.StatusLine(game.State, game.Turn), len(game.Moves))

	if len(game.Moves) > 0 {
		fmt.Fprintf(out, "\nHistory: %s\n", display.MoveHistory(game.Moves))
	}

	if game.LastMove != nil {
		fmt.Fprintf(out, "Last move: %s by %s%s\n",
			game.LastMove.Move, display.ColorForTurn(game.LastMove.PlayerColor), searchInfo(game.LastMove))
	}
	return nil
}

func gameStateHandler(s Session, args []string) error {
	gameID := s.GetCurrentGame()
	if gameID == "" {
		return errNoGame
	}

	resp, err := s.GetClient().GetGame(gameID)
	if err != nil {
		return err
	}

	s.SetGameState(resp)
	fmt.Fprintln(s.Out(), display.Cyan("Game State:"))
	display.PrettyPrintJSON(s.Out(), resp)
	return nil
}

func deleteGameHandler(s Session, args []string) error {
	gameID := s.GetCurrentGame()
	if len(args) > 0 {
		gameID = args[0]
	}
	if gameID == "" {
		return fmt.Errorf("specify game ID or set current game")
	}

	if err := s.GetClient().DeleteGame(gameID); err != nil {
		return err
	}

	if gameID == s.GetCurrentGame() {
		s.SetCurrentGame("")
	}

	fmt.Fprintln(s.Out(), display.Green("Game deleted: "+gameID))
	return nil
}

func pollHandler(s Session, args []string) error {
	gameID := s.GetCurrentGame()
	if gameID == "" {
		return errNoGame
	}

	moveCount := s.GetLastMoveCount()
	fmt.Fprintln(s.Out(), display.Cyan(fmt.Sprintf("Long-polling for updates (move count: %d), up to 25 seconds...", moveCount)))

	resp, err := s.GetClient().GetGameWithPoll(gameID, moveCount)
	if err != nil {
		return err
	}
	s.SetGameState(resp)

	if len(resp.Moves) != moveCount {
		fmt.Fprintln(s.Out(), display.Green("Game updated!"))
		if resp.LastMove != nil {
			fmt.Fprintf(s.Out(), "Last move: %s%s\n", resp.LastMove.Move, searchInfo(resp.LastMove))
		}
	} else {
		fmt.Fprintln(s.Out(), display.Yellow("No updates (timeout)"))
	}
	fmt.Fprintln(s.Out(), display.StatusLine(resp.State, resp.Turn))
	return nil
}

// searchHandler runs a stateless search. The side to maximize is taken from
// the FEN's active color.
func searchHandler(s Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: search <depth 1-5> [fen]")
	}

	depth, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid depth: %s", args[0])
	}

	fen := strings.Join(args[1:], " ")
	if fen == "" {
		g := s.GameState()
		if g == nil {
			return fmt.Errorf("no position: pass a FEN or join a game")
		}
		fen = g.FEN
	}

	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return fmt.Errorf("FEN has no side to move")
	}

	resp, err := s.GetClient().Search(fen, depth, fields[1])
	if err != nil {
		return err
	}

	out := s.Out()
	if resp.Move == nil {
		fmt.Fprintln(out, display.Yellow("No legal moves"))
		return nil
	}
	fmt.Fprintf(out, "%s (score %.1f, nodes %d)\n", display.Green("Best move: "+resp.Move.UCI()), resp.Score, resp.Nodes)
	return nil
}
