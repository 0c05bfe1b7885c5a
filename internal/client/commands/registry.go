// Package commands implements the terminal client's command set.
package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"chessai/internal/client/api"
	"chessai/internal/client/display"
	"chessai/internal/core"
)

// Session is the client state commands read and update
type Session interface {
	GetAPIBaseURL() string
	SetAPIBaseURL(string)
	GetCurrentGame() string
	SetCurrentGame(string)
	GetLastMoveCount() int
	SetLastMoveCount(int)
	GetClient() *api.Client
	IsVerbose() bool
	GameState() *core.GameResponse
	SetGameState(*core.GameResponse)
	SetPlayerColor(string)
	GetPlayerColor() string
	Ask(prompt, def string) (string, error)
	Out() io.Writer
}

// Command defines a client command with its handler
type Command struct {
	Name        string
	ShortName   string
	Description string
	Usage       string
	Handler     func(Session, []string) error
}

// ErrExit is returned by the exit command, the REPL stops on it
var ErrExit = errors.New("exit")

// Registry manages command registration and execution
type Registry struct {
	session  Session
	commands map[string]*Command
	groups   []group
}

type group struct {
	title string
	names []string
}

func NewRegistry(session Session) *Registry {
	r := &Registry{
		session:  session,
		commands: make(map[string]*Command),
	}

	r.registerGameCommands()
	r.registerDebugCommands()

	r.Register(&Command{
		Name:        "help",
		ShortName:   "?",
		Description: "Show available commands",
		Usage:       "help [command]",
		Handler:     r.helpHandler,
	})
	r.Register(&Command{
		Name:        "exit",
		ShortName:   "x",
		Description: "Exit the client",
		Usage:       "exit",
		Handler:     exitHandler,
	})

	r.groups = []group{
		{"Game Commands", []string{"new", "join", "move", "computer", "undo", "show", "state", "delete", "poll"}},
		{"Engine Commands", []string{"search"}},
		{"Utility Commands", []string{"health", "url", "raw", "clear", "help", "exit"}},
	}
	return r
}

func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
}

// Execute runs one input line. It returns ErrExit when the user asked to quit,
// other command errors are printed.
func (r *Registry) Execute(input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	out := r.session.Out()
	cmd, exists := r.commands[parts[0]]
	if !exists {
		fmt.Fprintln(out, display.Red("Unknown command: "+parts[0]))
		fmt.Fprintln(out, "Type 'help' for available commands")
		return nil
	}

	r.session.GetClient().SetVerbose(r.session.IsVerbose())

	err := cmd.Handler(r.session, parts[1:])
	if errors.Is(err, ErrExit) {
		return err
	}
	if err != nil {
		fmt.Fprintln(out, display.Red("Error: "+err.Error()))
	}
	return nil
}

func (r *Registry) helpHandler(s Session, args []string) error {
	out := s.Out()

	if len(args) > 0 {
		cmd, exists := r.commands[args[0]]
		if !exists {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintf(out, "\n%s - %s\n", display.Cyan(cmd.Name), cmd.Description)
		if cmd.ShortName != "" {
			fmt.Fprintf(out, "Short form: %s\n", display.Cyan(cmd.ShortName))
		}
		fmt.Fprintf(out, "Usage: %s\n", cmd.Usage)
		return nil
	}

	fmt.Fprintf(out, "\n%s\n\n", display.Cyan("Available Commands:"))
	for i, g := range r.groups {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, display.Yellow(g.title+":"))
		for _, name := range g.names {
			cmd, exists := r.commands[name]
			if !exists {
				continue
			}
			short := ""
			if cmd.ShortName != "" {
				short = "[" + display.Cyan(cmd.ShortName) + "] "
			}
			fmt.Fprintf(out, "  %s%-10s %s\n", short, cmd.Name, cmd.Description)
		}
	}

	fmt.Fprintln(out, "\nType 'help <command>' for detailed usage")
	fmt.Fprintln(out, "Add '-v' to any command for verbose output")
	return nil
}

func exitHandler(s Session, args []string) error {
	fmt.Fprintln(s.Out(), display.Cyan("Goodbye!"))
	return ErrExit
}
