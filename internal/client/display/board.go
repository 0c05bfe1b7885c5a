package display

import (
	"fmt"
	"io"
	"strings"
)

// RenderBoard writes an ASCII board with white pieces blue, black pieces red
// and coordinates cyan. The first and last lines carry the file letters.
func RenderBoard(w io.Writer, asciiBoard string) {
	lines := strings.Split(strings.TrimRight(asciiBoard, "\n"), "\n")

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fileLine := i == 0 || i == len(lines)-1

		var b strings.Builder
		for _, char := range line {
			s := string(char)
			switch {
			case fileLine && char >= 'a' && char <= 'h':
				b.WriteString(Cyan(s))
			case char >= '1' && char <= '8':
				b.WriteString(Cyan(s))
			case char >= 'A' && char <= 'Z':
				b.WriteString(Blue(s))
			case char >= 'a' && char <= 'z':
				b.WriteString(Red(s))
			default:
				b.WriteRune(char)
			}
		}
		fmt.Fprintln(w, b.String())
	}
}

// ColorForTurn returns colored turn indicator
func ColorForTurn(turn string) string {
	if turn == "w" {
		return Blue("White")
	}
	return Red("Black")
}
