// Package main implements an interactive terminal client for the chess server API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"chessai/internal/client/commands"
	"chessai/internal/client/display"
	"chessai/internal/client/session"
	"chessai/internal/core"

	"github.com/chzyer/readline"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "Chess server API base URL")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	flag.Parse()

	display.SetEnabled(!*noColor && display.StdoutIsTerminal())

	s := session.New(strings.TrimRight(*apiURL, "/"))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("chess"),
		HistoryFile:     ".chess_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, display.Red(err.Error()))
		os.Exit(1)
	}
	defer rl.Close()

	// Questions asked by commands share the line editor but not its history
	s.Input = func(prompt string) (string, error) {
		rl.SetPrompt(prompt)
		rl.Config.DisableAutoSaveHistory = true
		defer func() { rl.Config.DisableAutoSaveHistory = false }()
		return rl.Readline()
	}
	s.Writer = rl.Stdout()
	s.Client.Out = rl.Stdout()

	fmt.Fprintln(s.Writer, display.Cyan("Chess Client"))
	fmt.Fprintln(s.Writer, display.Cyan("API: "+s.APIBaseURL))
	fmt.Fprintf(s.Writer, "Type 'help' for commands\n\n")

	registry := commands.NewRegistry(s)

	for {
		rl.SetPrompt(buildPrompt(s))

		line, err := rl.Readline()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Trailing -v turns on verbose output for one command
		s.Verbose = false
		if strings.HasSuffix(line, " -v") {
			s.Verbose = true
			line = strings.TrimSuffix(line, " -v")
		}

		if err := registry.Execute(line); errors.Is(err, commands.ErrExit) {
			break
		}
	}
}

func buildPrompt(s *session.Session) string {
	prompt := "chess"

	if s.CurrentGame != "" {
		id := s.CurrentGame
		if len(id) > 8 {
			id = id[:8]
		}
		label := display.White(id)
		if s.PlayerColor != "" {
			label += " " + display.ColorForTurn(s.PlayerColor)
		}
		prompt += " [" + label + "]"
	}

	if g := s.CurrentGameState; g != nil {
		if g.Players.White == nil || g.Players.Black == nil {
			return display.Prompt(prompt)
		}
		player := g.Players.White
		if g.Turn == "b" {
			player = g.Players.Black
		}
		kind := "h"
		if player.Type == core.PlayerComputer {
			kind = "c"
		}
		prompt += fmt.Sprintf(" - Turn:%s(%s)", display.ColorForTurn(g.Turn), kind)
	}

	return display.Prompt(prompt)
}
