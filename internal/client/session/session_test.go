package session

import (
	"errors"
	"testing"

	"chessai/internal/core"
)

func TestAskDefaults(t *testing.T) {
	answers := []string{"  c ", "", "x"}
	s := New("http://localhost:8080")
	s.Writer = nil
	s.Input = func(string) (string, error) {
		if len(answers) == 0 {
			return "", errors.New("no input")
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}

	if got, _ := s.Ask("type: ", "h"); got != "c" {
		t.Fatalf("expected trimmed answer, got %q", got)
	}
	if got, _ := s.Ask("type: ", "h"); got != "h" {
		t.Fatalf("expected default, got %q", got)
	}
	s.Ask("skip: ", "")
	if _, err := s.Ask("type: ", "h"); err == nil {
		t.Fatalf("expected input error")
	}
}

func TestSwitchingGamesClearsState(t *testing.T) {
	s := New("http://localhost:8080")
	s.SetCurrentGame("a")
	s.SetGameState(&core.GameResponse{GameID: "a", Moves: []string{"e2e4"}})
	s.SetPlayerColor("w")

	if s.GetLastMoveCount() != 1 {
		t.Fatalf("move count should follow game state")
	}

	s.SetCurrentGame("a")
	if s.GameState() == nil {
		t.Fatalf("re-selecting the same game must keep state")
	}

	s.SetCurrentGame("b")
	if s.GameState() != nil || s.GetPlayerColor() != "" || s.GetLastMoveCount() != 0 {
		t.Fatalf("state not cleared on game switch")
	}
}

func TestSetAPIBaseURLUpdatesClient(t *testing.T) {
	s := New("http://localhost:8080")
	s.SetAPIBaseURL("http://example:9090/")
	if s.Client.BaseURL != "http://example:9090" {
		t.Fatalf("client base URL not updated: %s", s.Client.BaseURL)
	}
}
