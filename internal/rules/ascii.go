package rules

import (
	"fmt"
	"strings"
)

// ASCII creates an ASCII representation of the board
func (p *Position) ASCII() string {
	b := p.Board()

	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for r := 0; r < 8; r++ {
		sb.WriteString(fmt.Sprintf("%d ", 8-r))
		for f := 0; f < 8; f++ {
			sb.WriteString(fmt.Sprintf("%c ", b[r][f].Letter()))
		}
		sb.WriteString(fmt.Sprintf(" %d\n", 8-r))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}
