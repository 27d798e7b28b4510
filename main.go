// Rizzi is the engine's command line: move generator checks, search
// benchmarks and engine matches.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/hailam/rizzi/internal/app"
	"github.com/hailam/rizzi/internal/board"
	"github.com/hailam/rizzi/internal/config"
	"github.com/hailam/rizzi/internal/engine"
	"github.com/hailam/rizzi/internal/player"
	"github.com/hailam/rizzi/internal/storage"
)

const (
	engineName = "rizzi"
	benchDepth = 5
)

type command struct {
	name, help string
	run        func(ctx context.Context, args []string) error
}

var commands = []command{
	{"perft", "count move generator leaf nodes", runPerft},
	{"bench", "search the reference positions to a fixed depth", runBench},
	{"match", "play the engine against a random mover", runMatch},
	{"play", "let the engine play itself and print the game", runPlay},
	{"stats", "show recorded match results", runStats},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <command> [flags]\n\ncommands:\n", os.Args[0])
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-6s %s\n", c.name, c.help)
	}
	fmt.Fprintf(os.Stderr, "\nrun '%s <command> -h' for the flags of a command\n", os.Args[0])
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name := os.Args[1]
	i := slices.IndexFunc(commands, func(c command) bool { return c.name == name })
	if i < 0 {
		if name != "help" && name != "-h" && name != "--help" {
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		}
		usage()
		os.Exit(2)
	}

	if err := commands[i].run(ctx, os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
}

// openApp parses args on a flag set that carries the shared configuration
// flags next to the command's own, then opens the app.
func openApp(fs *flag.FlagSet, args []string) (*app.App, error) {
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return app.Open(flags, os.Stderr)
}

func parsePosition(fen string) (*board.Position, error) {
	if fen == "" || fen == "startpos" {
		return board.NewPosition(), nil
	}
	return board.ParseFEN(fen)
}

func runPerft(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("perft", flag.ContinueOnError)
	fen := fs.String("fen", "startpos", "position to count from")
	depth := fs.Int("depth", 5, "depth in plies")
	divide := fs.Bool("divide", false, "print the count below every root move")
	parallel := fs.Bool("parallel", false, "count root moves concurrently")
	suite := fs.Bool("suite", false, "check every reference position against its known counts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *suite {
		return perftSuite(*depth)
	}

	pos, err := parsePosition(*fen)
	if err != nil {
		return err
	}
	if *depth < 1 {
		return fmt.Errorf("depth must be positive, got %d", *depth)
	}

	start := time.Now()
	var counts map[board.Move]uint64
	if *parallel {
		counts, err = pos.PerftDivideParallel(ctx, *depth, runtime.GOMAXPROCS(0))
		if err != nil {
			return err
		}
	} else {
		counts = pos.PerftDivide(*depth)
	}
	elapsed := time.Since(start)

	if *divide {
		moves := make([]board.Move, 0, len(counts))
		for m := range counts {
			moves = append(moves, m)
		}
		slices.SortFunc(moves, func(a, b board.Move) int { return strings.Compare(a.String(), b.String()) })
		for _, m := range moves {
			fmt.Printf("%s: %d\n", m, counts[m])
		}
		fmt.Println()
	}

	nodes := board.Sum(counts)
	fmt.Printf("Nodes: %d\n", nodes)
	fmt.Printf("Time: %v\n", elapsed.Round(time.Millisecond))
	if elapsed > 0 {
		fmt.Printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
	return nil
}

// perftSuite runs every reference position up to maxDepth and fails on
// the first mismatch.
func perftSuite(maxDepth int) error {
	for n, tc := range board.PerftSuite {
		pos, err := board.ReferencePosition(n + 1)
		if err != nil {
			return err
		}
		for d, want := range tc.Nodes {
			if d+1 > maxDepth {
				break
			}
			start := time.Now()
			got := pos.Perft(d + 1)
			status := "ok"
			if got != want {
				status = fmt.Sprintf("FAIL (want %d)", want)
			}
			fmt.Printf("%-10s depth %d: %12d  %8v  %s\n", tc.Name, d+1, got, time.Since(start).Round(time.Millisecond), status)
			if got != want {
				return fmt.Errorf("%s depth %d: got %d nodes, want %d", tc.Name, d+1, got, want)
			}
		}
	}
	return nil
}

func runBench(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	a, err := openApp(fs, args)
	if err != nil {
		return err
	}
	defer a.Close()

	// -depth bounds ordinary searches; the benchmark only honours it when
	// given explicitly.
	depth := benchDepth
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "depth" {
			depth = a.Config.Get().MaxDepth
		}
	})

	var totalNodes uint64
	var totalTime time.Duration
	for _, tc := range board.PerftSuite {
		pos, err := board.ParseFEN(tc.FEN)
		if err != nil {
			return err
		}
		a.Engine.Clear()

		start := time.Now()
		res := a.Engine.Search(ctx, pos, engine.SearchLimits{Depth: depth, Infinite: true})
		elapsed := time.Since(start)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		totalNodes += res.Nodes
		totalTime += elapsed
		fmt.Printf("%-10s bestmove %-6s score %-10s nodes %10d  %v\n",
			tc.Name, res.BestMove, engine.ScoreToString(res.Score), res.Nodes, elapsed.Round(time.Millisecond))
	}

	fmt.Printf("\nNodes: %d\nTime: %v\n", totalNodes, totalTime.Round(time.Millisecond))
	if totalTime > 0 {
		fmt.Printf("NPS: %.0f\n", float64(totalNodes)/totalTime.Seconds())
	}
	return nil
}

func runMatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	games := fs.Int("games", 10, "number of games")
	maxPlies := fs.Int("max-plies", 400, "adjudicate a game as drawn after this many plies (0 = never)")
	seed := fs.Int64("seed", time.Now().UnixNano(), "random player seed")
	difficulty := fs.String("difficulty", "", "engine strength: easy, medium or hard (default: -movetime and -depth)")
	a, err := openApp(fs, args)
	if err != nil {
		return err
	}
	defer a.Close()

	limits, err := playLimits(a.Config.Get(), *difficulty)
	if err != nil {
		return err
	}
	eng := player.NewEnginePlayer(engineName, a.Engine, limits)
	m := player.Match{
		A:        eng,
		B:        player.NewRandomPlayer(*seed),
		Games:    *games,
		MaxPlies: *maxPlies,
		Logger:   a.Log,
		OnGame: func(n int, g player.Game) {
			fmt.Printf("game %d: %s vs %s  %s %s (%d plies)\n", n+1, g.White, g.Black, g.Outcome, g.Reason, len(g.Moves))
			if err := a.RecordMatch(matchRecord(g)); err != nil {
				a.Log.Warn().Err(err).Msg("record match")
			}
		},
	}

	tally, err := m.Run(ctx)
	fmt.Printf("\nwon: %d draw: %d lost: %d  (score %.1f/%d)\n", tally.Wins, tally.Draws, tally.Losses, tally.Score(), tally.Games())
	return err
}

func runPlay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fen := fs.String("fen", "startpos", "starting position")
	maxPlies := fs.Int("max-plies", 300, "stop after this many plies (0 = never)")
	difficulty := fs.String("difficulty", "", "engine strength: easy, medium or hard (default: -movetime and -depth)")
	a, err := openApp(fs, args)
	if err != nil {
		return err
	}
	defer a.Close()

	pos, err := parsePosition(*fen)
	if err != nil {
		return err
	}
	limits, err := playLimits(a.Config.Get(), *difficulty)
	if err != nil {
		return err
	}
	self := player.NewEnginePlayer(engineName, a.Engine, limits)

	fmt.Println(pos)
	g, err := player.Play(ctx, pos, self, self, *maxPlies)
	if err != nil {
		return err
	}

	fmt.Println(formatMoves(pos, g.SAN()))
	fmt.Println()
	fmt.Println(g.Final)
	if g.Adjudicated {
		fmt.Printf("stopped after %d plies\n", len(g.Moves))
	} else {
		fmt.Printf("%s (%s)\n", g.Outcome, g.Reason)
	}
	return a.RecordMatch(matchRecord(g))
}

func runStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	name := fs.String("name", engineName, "player name to summarise")
	a, err := openApp(fs, args)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Store == nil {
		return errors.New("no database available")
	}

	stats, err := a.Store.Stats(*name)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d games, %d won, %d drawn, %d lost (%.1f%% wins)\n",
		*name, stats.GamesPlayed, stats.Wins, stats.Draws, stats.Losses, stats.WinRate())
	return nil
}

// playLimits searches each move for the configured time, never deeper
// than the configured depth. A named difficulty replaces both.
func playLimits(cfg config.Config, difficulty string) (engine.SearchLimits, error) {
	if difficulty != "" {
		d, err := engine.ParseDifficulty(difficulty)
		if err != nil {
			return engine.SearchLimits{}, err
		}
		return d.Limits(), nil
	}
	limits := engine.SearchLimits{MoveTime: cfg.MoveTime(), Depth: cfg.MaxDepth}
	if limits.MoveTime == 0 {
		limits.MoveTime = engine.DefaultMoveTime
	}
	return limits, nil
}

// formatMoves numbers SAN moves the way game scores are written.
func formatMoves(start *board.Position, san []string) string {
	var sb strings.Builder
	num := start.FullMoveNumber
	for i, m := range san {
		white := (start.SideToMove == board.White) == (i%2 == 0)
		switch {
		case white:
			fmt.Fprintf(&sb, "%d. ", num)
		case i == 0:
			fmt.Fprintf(&sb, "%d... ", num)
		}
		sb.WriteString(m)
		sb.WriteByte(' ')
		if !white {
			num++
		}
	}
	return strings.TrimSpace(sb.String())
}

func matchRecord(g player.Game) storage.MatchRecord {
	moves := make([]string, len(g.Moves))
	for i, m := range g.Moves {
		moves[i] = m.String()
	}
	return storage.MatchRecord{
		White:    g.White,
		Black:    g.Black,
		Result:   g.Outcome.String(),
		Reason:   g.Reason.String(),
		Moves:    moves,
		StartFEN: g.Start.ToFEN(),
		Duration: g.Duration,
	}
}
