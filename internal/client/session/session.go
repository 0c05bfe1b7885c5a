// Package session holds the terminal client's state between commands.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"chessai/internal/client/api"
	"chessai/internal/core"
)

type Session struct {
	APIBaseURL       string
	Client           *api.Client
	Verbose          bool
	CurrentGame      string
	CurrentGameState *core.GameResponse
	PlayerColor      string // "w" or "b" when the user plays one side against the computer
	LastMoveCount    int

	// Input reads one answer after showing prompt, nil reads stdin
	Input  func(prompt string) (string, error)
	Writer io.Writer

	stdin *bufio.Reader
}

// New returns a session talking to baseURL
func New(baseURL string) *Session {
	return &Session{
		APIBaseURL: baseURL,
		Client:     api.New(baseURL),
		Writer:     os.Stdout,
	}
}

func (s *Session) GetAPIBaseURL() string { return s.APIBaseURL }

func (s *Session) SetAPIBaseURL(url string) {
	s.APIBaseURL = url
	s.Client.SetBaseURL(url)
}

func (s *Session) GetCurrentGame() string { return s.CurrentGame }

// SetCurrentGame switches games, forgetting state kept for the previous one
func (s *Session) SetCurrentGame(id string) {
	if id != s.CurrentGame {
		s.CurrentGameState = nil
		s.PlayerColor = ""
		s.LastMoveCount = 0
	}
	s.CurrentGame = id
}

func (s *Session) GetLastMoveCount() int { return s.LastMoveCount }
func (s *Session) SetLastMoveCount(n int) { s.LastMoveCount = n }
func (s *Session) GetClient() *api.Client { return s.Client }
func (s *Session) IsVerbose() bool { return s.Verbose }
func (s *Session) GetPlayerColor() string { return s.PlayerColor }
func (s *Session) SetPlayerColor(c string) { s.PlayerColor = c }
func (s *Session) GameState() *core.GameResponse { return s.CurrentGameState }

// SetGameState records the latest server view of the current game
func (s *Session) SetGameState(g *core.GameResponse) {
	s.CurrentGameState = g
	if g != nil {
		s.LastMoveCount = len(g.Moves)
	}
}

func (s *Session) Out() io.Writer {
	if s.Writer == nil {
		return io.Discard
	}
	return s.Writer
}

// Ask shows prompt and returns the trimmed answer, def when it is empty
func (s *Session) Ask(prompt, def string) (string, error) {
	var line string
	var err error
	if s.Input != nil {
		line, err = s.Input(prompt)
	} else {
		if s.stdin == nil {
			s.stdin = bufio.NewReader(os.Stdin)
		}
		fmt.Fprint(s.Out(), prompt)
		line, err = s.stdin.ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
	}
	if err != nil {
		return "", err
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}
