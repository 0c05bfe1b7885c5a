// Package cli holds the server's offline engine tools, run without the API.
package cli

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"text/tabwriter"
	"time"

	"chessai/internal/core"
	"chessai/internal/engine"
	"chessai/internal/rules"

	"github.com/notnil/chess"
)

// benchPositions cover an opening, a middlegame and an endgame
var benchPositions = []string{
	rules.StartingFEN,
	"r3k2r/pppq1ppp/2npbn2/2b1p3/2B1P3/2NPBN2/PPPQ1PPP/R3K2R w KQkq - 4 8",
	"8/5pk1/6p1/8/3R4/6P1/5PK1/3r4 b - - 0 40",
}

// Run is the entry point for the CLI mini-app
func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: search, bench")
	}

	switch args[0] {
	case "search":
		return runSearch(args[1:])
	case "bench":
		return runBench(args[1:])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

// searchLine is one row of tool output
type searchLine struct {
	fen     string
	move    string
	score   float64
	nodes   int
	elapsed time.Duration
}

// newRand mirrors the server's -seed flag: 0 picks a random seed.
// deterministic returns nil, which turns off jitter and root shuffling.
func newRand(seed uint64, deterministic bool) *rand.Rand {
	switch {
	case deterministic:
		return nil
	case seed == 0:
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	default:
		return rand.New(rand.NewPCG(seed, 0))
	}
}

func search(fen string, depth int, rng *rand.Rand) (searchLine, error) {
	pos, err := rules.Parse(fen)
	if err != nil {
		return searchLine{}, err
	}

	s := engine.NewSearcher[*chess.Move](engine.NewEvaluator(rng).Evaluate, rng)

	start := time.Now()
	res := s.Search(pos, depth, pos.SideToMove() == core.ColorWhite)
	line := searchLine{
		fen:     fen,
		move:    "(none)",
		nodes:   res.Nodes,
		elapsed: time.Since(start),
	}
	if res.Found {
		line.move = rules.EncodeMove(res.Move).UCI()
		line.score = res.Score
	}
	return line, nil
}

func printLines(lines []searchLine) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MOVE\tSCORE\tNODES\tTIME\tFEN")
	for _, l := range lines {
		fmt.Fprintf(w, "%s\t%.1f\t%d\t%s\t%s\n", l.move, l.score, l.nodes, l.elapsed.Round(time.Millisecond), l.fen)
	}
	return w.Flush()
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fen := fs.String("fen", rules.StartingFEN, "Position to search")
	depth := fs.Int("depth", 3, "Search depth in plies")
	seed := fs.Uint64("seed", 0, "Random seed, 0 picks one")
	deterministic := fs.Bool("deterministic", false, "Disable evaluation jitter and move shuffling")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *depth < 1 {
		return fmt.Errorf("depth must be at least 1")
	}

	line, err := search(*fen, *depth, newRand(*seed, *deterministic))
	if err != nil {
		return err
	}
	return printLines([]searchLine{line})
}

func runBench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	depth := fs.Int("depth", 3, "Search depth in plies")
	seed := fs.Uint64("seed", 0, "Random seed, 0 picks one")
	deterministic := fs.Bool("deterministic", false, "Disable evaluation jitter and move shuffling")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *depth < 1 {
		return fmt.Errorf("depth must be at least 1")
	}

	rng := newRand(*seed, *deterministic)
	lines := make([]searchLine, 0, len(benchPositions))
	var total time.Duration
	var nodes int
	for _, fen := range benchPositions {
		line, err := search(fen, *depth, rng)
		if err != nil {
			return fmt.Errorf("bench position %q: %w", fen, err)
		}
		lines = append(lines, line)
		total += line.elapsed
		nodes += line.nodes
	}

	if err := printLines(lines); err != nil {
		return err
	}
	if total > 0 {
		fmt.Printf("\n%d nodes in %s (%.0f nodes/s)\n", nodes, total.Round(time.Millisecond), float64(nodes)/total.Seconds())
	}
	return nil
}
