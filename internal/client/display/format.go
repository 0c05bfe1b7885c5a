package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// PrettyPrintJSON writes v as indented JSON
func PrettyPrintJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(w, Red("Error formatting JSON: "+err.Error()))
		return
	}
	fmt.Fprintln(w, string(data))
}

// StatusLine describes a game state for the player, e.g. "White's Turn" or
// "Game Over: Checkmate!". state is the server's state string.
func StatusLine(state, turn string) string {
	switch state {
	case "white wins", "black wins":
		return "Game Over: Checkmate!"
	case "draw", "stalemate":
		return "Game Over: Draw!"
	case "stuck":
		return "Game Stuck: engine error"
	case "pending":
		return "Computer is thinking..."
	}
	if turn == "b" {
		return "Black's Turn"
	}
	return "White's Turn"
}

// MoveHistory numbers UCI moves in pairs: "1.e2e4 e7e5 2.g1f3"
func MoveHistory(moves []string) string {
	var b strings.Builder
	for i, move := range moves {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i%2 == 0 {
			fmt.Fprintf(&b, "%d.", i/2+1)
		}
		b.WriteString(move)
	}
	return b.String()
}
