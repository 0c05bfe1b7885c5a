package display

import (
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Palette used across the client. Colors switch off together via SetEnabled.
var (
	Red     = color.New(color.FgRed).SprintFunc()
	Green   = color.New(color.FgGreen).SprintFunc()
	Yellow  = color.New(color.FgYellow).SprintFunc()
	Blue    = color.New(color.FgBlue).SprintFunc()
	Magenta = color.New(color.FgMagenta).SprintFunc()
	Cyan    = color.New(color.FgCyan).SprintFunc()
	White   = color.New(color.FgWhite).SprintFunc()
)

// SetEnabled turns colored output on or off for the whole process
func SetEnabled(on bool) {
	color.NoColor = !on
}

// StdoutIsTerminal reports whether stdout is an interactive terminal
func StdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Prompt returns a colored prompt string
func Prompt(text string) string {
	return Yellow(text + " > ")
}
