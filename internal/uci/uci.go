// Package uci implements the Universal Chess Interface text protocol on
// top of the search engine.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hailam/rizzi/internal/board"
	"github.com/hailam/rizzi/internal/config"
	"github.com/hailam/rizzi/internal/engine"
)

const (
	engineName   = "Rizzi"
	engineAuthor = "the Rizzi authors"

	maxHashMB   = 4096
	maxMoveTime = 600000
)

// UCI implements the Universal Chess Interface protocol.
type UCI struct {
	engine   *engine.Engine
	position *board.Position
	cfg      *config.Store
	log      zerolog.Logger

	// SavePreferences, when set, is called after setoption changes a
	// persisted setting.
	SavePreferences func(config.Preferences) error

	outMu sync.Mutex
	out   io.Writer

	// Search state
	searching    bool
	cancelSearch context.CancelFunc
	searchDone   chan struct{}
}

// New creates a new UCI protocol handler.
func New(eng *engine.Engine, cfg *config.Store, log zerolog.Logger) *UCI {
	return &UCI{
		engine:   eng,
		position: board.NewPosition(),
		cfg:      cfg,
		log:      log,
	}
}

// Run reads commands from r and writes responses to w until quit, the
// end of input or cancellation of ctx. At the end of input a running
// search is allowed to finish; quit and cancellation stop it.
func (u *UCI) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	u.out = w
	defer u.handleStop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				u.waitSearch()
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if !u.handle(line) {
				return nil
			}
		}
	}
}

// handle executes one command line and reports whether to keep reading.
func (u *UCI) handle(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := parts[0], parts[1:]
	u.log.Debug().Str("cmd", cmd).Strs("args", args).Msg("command")

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.send("readyok")
	case "ucinewgame":
		u.handleNewGame()
	case "position":
		u.handlePosition(args)
	case "go":
		u.handleGo(args)
	case "stop":
		u.handleStop()
	case "quit":
		u.handleStop()
		return false
	case "setoption":
		u.handleSetOption(args)
	// Debug commands
	case "d":
		u.handleDisplay()
	case "perft":
		u.handlePerft(args)
	case "eval":
		u.handleEval()
	default:
		u.errorf("unknown command %q", cmd)
	}
	return true
}

// send writes one protocol line. Search goroutines and the command loop
// both write, so output is serialized.
func (u *UCI) send(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format+"\n", args...)
}

// errorf reports a rejected command to the GUI and the log.
func (u *UCI) errorf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	u.log.Warn().Msg(msg)
	u.send("info string error %s", msg)
}

// handleUCI responds to the "uci" command.
func (u *UCI) handleUCI() {
	cfg := u.cfg.Get()
	u.send("id name %s", engineName)
	u.send("id author %s", engineAuthor)
	u.send("")
	u.send("option name Hash type spin default %d min 1 max %d", cfg.HashMB, maxHashMB)
	u.send("option name MoveTime type spin default %d min 0 max %d", cfg.MoveTimeMs, maxMoveTime)
	u.send("option name Clear Hash type button")
	u.send("uciok")
}

// handleNewGame resets the engine for a new game.
func (u *UCI) handleNewGame() {
	u.handleStop()
	u.engine.Clear()
	u.position = board.NewPosition()
}

// handlePosition parses and sets up a position.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
//
// The current position is kept when any part fails to parse.
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		u.errorf("position: missing startpos or fen")
		return
	}

	movesAt := slices.Index(args, "moves")
	setup := args
	var moves []string
	if movesAt >= 0 {
		setup, moves = args[:movesAt], args[movesAt+1:]
	}

	var pos *board.Position
	switch setup[0] {
	case "startpos":
		pos = board.NewPosition()
	case "fen":
		var err error
		pos, err = board.ParseFEN(strings.Join(setup[1:], " "))
		if err != nil {
			u.errorf("position: %v", err)
			return
		}
	default:
		u.errorf("position: expected startpos or fen, got %q", setup[0])
		return
	}

	for _, text := range moves {
		move, err := pos.ParseLegalMove(text)
		if err != nil {
			u.errorf("position: %v", err)
			return
		}
		pos.MakeMove(move)
	}

	u.handleStop()
	u.position = pos
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth     int
	Nodes     uint64
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

// handleGo starts a search with the given parameters. The search runs in
// the background so that stop and isready are answered meanwhile.
func (u *UCI) handleGo(args []string) {
	u.handleStop()

	opts := parseGoOptions(args)
	limits := u.calculateLimits(opts)
	pos := u.position.Clone()

	u.engine.OnInfo = func(info engine.SearchInfo) {
		u.log.Debug().Int("depth", info.Depth).Int("score", info.Score).Uint64("nodes", info.Nodes).Msg("iteration")
		u.sendInfo(info)
	}

	// The context exists before the goroutine starts, so a stop that
	// arrives first still ends the search.
	ctx, cancel := context.WithCancel(context.Background())
	u.searching = true
	u.cancelSearch = cancel
	u.searchDone = make(chan struct{})

	go func() {
		defer close(u.searchDone)
		defer cancel()

		res := u.engine.Search(ctx, pos, limits)
		u.log.Info().
			Str("bestmove", res.BestMove.String()).
			Int("score", res.Score).
			Int("depth", res.Depth).
			Uint64("nodes", res.Nodes).
			Msg("search finished")

		if res.BestMove == board.NoMove {
			// Only checkmate or stalemate have no move to send.
			u.send("bestmove 0000")
			return
		}
		u.send("bestmove %s", res.BestMove)
	}()
}

// parseGoOptions parses "go" command arguments. Unknown tokens and
// malformed numbers are skipped.
func parseGoOptions(args []string) GoOptions {
	opts := GoOptions{}

	next := func(i *int) string {
		if *i+1 < len(args) {
			*i++
			return args[*i]
		}
		return ""
	}
	millis := func(s string) time.Duration {
		ms, _ := strconv.Atoi(s)
		return time.Duration(max(ms, 0)) * time.Millisecond
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			opts.Depth, _ = strconv.Atoi(next(&i))
		case "nodes":
			opts.Nodes, _ = strconv.ParseUint(next(&i), 10, 64)
		case "movetime":
			opts.MoveTime = millis(next(&i))
		case "infinite":
			opts.Infinite = true
		case "wtime":
			opts.WTime = millis(next(&i))
		case "btime":
			opts.BTime = millis(next(&i))
		case "winc":
			opts.WInc = millis(next(&i))
		case "binc":
			opts.BInc = millis(next(&i))
		case "movestogo":
			opts.MovesToGo, _ = strconv.Atoi(next(&i))
		}
	}

	return opts
}

// calculateLimits converts GoOptions to engine.SearchLimits. A bare "go"
// uses the configured move time, and finite searches never go deeper
// than the configured maximum depth.
func (u *UCI) calculateLimits(opts GoOptions) engine.SearchLimits {
	cfg := u.cfg.Get()
	limits := engine.SearchLimits{
		Depth:     max(opts.Depth, 0),
		Nodes:     opts.Nodes,
		MoveTime:  opts.MoveTime,
		Infinite:  opts.Infinite,
		MovesToGo: opts.MovesToGo,
	}
	limits.Time[board.White], limits.Time[board.Black] = opts.WTime, opts.BTime
	limits.Inc[board.White], limits.Inc[board.Black] = opts.WInc, opts.BInc

	if limits.Infinite {
		return limits
	}

	clock := opts.WTime > 0 || opts.BTime > 0
	if limits.Depth == 0 && limits.Nodes == 0 && limits.MoveTime == 0 && !clock {
		limits.MoveTime = cfg.MoveTime()
		if limits.MoveTime == 0 {
			limits.MoveTime = engine.DefaultMoveTime
		}
	}
	if limits.Depth == 0 || limits.Depth > cfg.MaxDepth {
		limits.Depth = cfg.MaxDepth
	}
	return limits
}

// FormatInfo renders a search iteration as a UCI info line.
func FormatInfo(info engine.SearchInfo) string {
	parts := []string{"info", "depth", strconv.Itoa(info.Depth)}

	if info.Mate != 0 {
		parts = append(parts, "score", "mate", strconv.Itoa(info.Mate))
	} else {
		parts = append(parts, "score", "cp", strconv.Itoa(info.Score))
	}

	parts = append(parts,
		"time", strconv.FormatInt(info.Time.Milliseconds(), 10),
		"nodes", strconv.FormatUint(info.Nodes, 10),
		"nps", strconv.FormatUint(info.NPS, 10),
		"hashfull", strconv.Itoa(info.HashFull),
	)

	if len(info.PV) > 0 {
		parts = append(parts, "pv")
		for _, m := range info.PV {
			parts = append(parts, m.String())
		}
	}
	return strings.Join(parts, " ")
}

// sendInfo outputs search info in UCI format.
func (u *UCI) sendInfo(info engine.SearchInfo) {
	u.send("%s", FormatInfo(info))
}

// handleStop stops the current search and waits for its bestmove.
func (u *UCI) handleStop() {
	if u.searching {
		u.cancelSearch()
		u.waitSearch()
	}
}

func (u *UCI) waitSearch() {
	if u.searching {
		<-u.searchDone
		u.searching = false
	}
}

// handleSetOption processes "setoption" commands.
func (u *UCI) handleSetOption(args []string) {
	// Format: setoption name <name> [value <value>]
	var name, value []string
	target := &name
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, arg)
		}
	}
	optName := strings.ToLower(strings.Join(name, " "))
	optValue := strings.Join(value, " ")

	switch optName {
	case "hash":
		n, err := strconv.Atoi(optValue)
		if err != nil || n < 1 || n > maxHashMB {
			u.errorf("setoption Hash: value must be 1-%d, got %q", maxHashMB, optValue)
			return
		}
		if !u.updateConfig(func(c *config.Config) { c.HashMB = n }) {
			return
		}
		u.handleStop()
		u.engine.Resize(n)
	case "movetime":
		n, err := strconv.Atoi(optValue)
		if err != nil || n < 0 || n > maxMoveTime {
			u.errorf("setoption MoveTime: value must be 0-%d, got %q", maxMoveTime, optValue)
			return
		}
		u.updateConfig(func(c *config.Config) { c.MoveTimeMs = n })
	case "clear hash":
		u.handleStop()
		u.engine.Clear()
	default:
		u.errorf("setoption: unknown option %q", optName)
	}
}

// updateConfig applies fn to the live configuration and persists the
// resulting preferences. It reports whether the update was accepted.
func (u *UCI) updateConfig(fn func(*config.Config)) bool {
	if err := u.cfg.Update(fn); err != nil {
		u.errorf("setoption: %v", err)
		return false
	}
	if u.SavePreferences != nil {
		if err := u.SavePreferences(u.cfg.Get().Preferences()); err != nil {
			u.log.Error().Err(err).Msg("save preferences")
		}
	}
	return true
}

// handleDisplay prints the board, its FEN and hash key.
func (u *UCI) handleDisplay() {
	u.send("%s", u.position.String())
	u.send("Fen: %s", u.position.ToFEN())
	u.send("Key: %016X", u.position.Hash)
	if u.position.InCheck() {
		u.send("Checkers: %d", u.position.Attackers(u.position.SideToMove.Other(), u.position.KingSquare(u.position.SideToMove)))
	}
}

// handlePerft runs a perft test and prints the per-move breakdown.
func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 1 {
			u.errorf("perft: invalid depth %q", args[0])
			return
		}
		depth = d
	}

	start := time.Now()
	divide := u.position.Clone().PerftDivide(depth)
	elapsed := time.Since(start)

	moves := make([]board.Move, 0, len(divide))
	for m := range divide {
		moves = append(moves, m)
	}
	slices.SortFunc(moves, func(a, b board.Move) int {
		return strings.Compare(a.String(), b.String())
	})
	for _, m := range moves {
		u.send("%s: %d", m, divide[m])
	}

	nodes := board.Sum(divide)
	u.send("")
	u.send("Nodes: %d", nodes)
	u.send("Time: %dms", elapsed.Milliseconds())
	if elapsed > 0 {
		u.send("NPS: %.0f", float64(nodes)/elapsed.Seconds())
	}
}

// handleEval prints the static evaluation from the side to move.
func (u *UCI) handleEval() {
	score := u.engine.Evaluate(u.position)
	u.send("Evaluation: %d cp (%s, side to move)", score, engine.ScoreToString(score))
}
