package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hailam/rizzi/internal/board"
)

// SearchInfo contains information about the current search.
type SearchInfo struct {
	Depth    int
	Score    int
	Mate     int // Moves to mate, negative when being mated, 0 otherwise
	Nodes    uint64
	Time     time.Duration
	NPS      uint64
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// SearchLimits specifies constraints on the search. With no limit set
// the search runs for DefaultMoveTime.
type SearchLimits struct {
	Depth     int              // Maximum depth (0 = no limit)
	Nodes     uint64           // Maximum nodes (0 = no limit)
	MoveTime  time.Duration    // Time for this move (0 = no limit)
	Infinite  bool             // Search until stopped
	Time      [2]time.Duration // Remaining clock time per color
	Inc       [2]time.Duration // Increment per move per color
	MovesToGo int              // Moves until next time control (0 = sudden death)
}

func (l SearchLimits) hasClock() bool {
	return l.Time[board.White] > 0 || l.Time[board.Black] > 0
}

// SearchResult is the outcome of a search.
type SearchResult struct {
	BestMove board.Move
	Score    int
	Depth    int
	Nodes    uint64
	PV       []board.Move
}

// DefaultMoveTime is used when a search is started without any limit.
const DefaultMoveTime = time.Second

// refineTableMB sizes the scratch table used to shorten found mates.
const refineTableMB = 4

// Difficulty names a preset search budget.
type Difficulty int

const (
	Easy   Difficulty = iota // ~2-3 ply, 500ms
	Medium                   // ~4-5 ply, 2s
	Hard                     // ~6+ ply, 5s
)

var difficultyNames = [...]string{Easy: "easy", Medium: "medium", Hard: "hard"}

func (d Difficulty) String() string {
	if d < Easy || d > Hard {
		return fmt.Sprintf("Difficulty(%d)", int(d))
	}
	return difficultyNames[d]
}

// ParseDifficulty accepts the names printed by Difficulty.String.
func ParseDifficulty(s string) (Difficulty, error) {
	for d, name := range difficultyNames {
		if strings.EqualFold(s, name) {
			return Difficulty(d), nil
		}
	}
	return 0, fmt.Errorf("unknown difficulty %q (want easy, medium or hard)", s)
}

// Limits returns the search limits of the preset.
func (d Difficulty) Limits() SearchLimits {
	switch d {
	case Easy:
		return SearchLimits{Depth: 3, MoveTime: 500 * time.Millisecond}
	case Medium:
		return SearchLimits{Depth: 5, MoveTime: 2 * time.Second}
	default:
		return SearchLimits{Depth: 7, MoveTime: 5 * time.Second}
	}
}

// Engine is the chess AI engine. It owns a transposition table and the
// cancellation flag; one search runs at a time.
type Engine struct {
	tt       *TranspositionTable
	refineTT *TranspositionTable
	eval     Evaluator
	cache    *EvalCache
	stop     atomic.Bool

	// Callbacks
	OnInfo func(SearchInfo)
}

// NewEngine creates a new chess engine with the given transposition table size in MB.
func NewEngine(ttSizeMB int) *Engine {
	e := &Engine{
		tt:    NewTranspositionTable(ttSizeMB),
		cache: NewEvalCache(1),
	}
	e.SetEvaluator(NewClassicEvaluator())
	return e
}

// SetEvaluator replaces the static evaluation.
func (e *Engine) SetEvaluator(ev Evaluator) {
	e.cache.Clear()
	e.eval = cachedEvaluator{eval: ev, cache: e.cache}
}

// Resize replaces the transposition table with one of sizeMB.
func (e *Engine) Resize(sizeMB int) {
	e.tt = NewTranspositionTable(sizeMB)
}

// TT returns the engine's transposition table.
func (e *Engine) TT() *TranspositionTable {
	return e.tt
}

// SearchDepth searches pos to maxDepth, calling onIteration after every
// completed depth, and returns the best move with its score.
func (e *Engine) SearchDepth(pos *board.Position, maxDepth int, onIteration func(SearchInfo)) (board.Move, int) {
	saved := e.OnInfo
	e.OnInfo = onIteration
	defer func() { e.OnInfo = saved }()

	res := e.Search(context.Background(), pos, SearchLimits{Depth: maxDepth, Infinite: true})
	return res.BestMove, res.Score
}

// Search finds the best move for pos within limits. pos is searched in
// place and is restored before Search returns. Cancelling ctx or
// calling Stop ends the search early with the best move found so far.
func (e *Engine) Search(ctx context.Context, pos *board.Position, limits SearchLimits) SearchResult {
	e.stop.Store(false)
	startTime := time.Now()

	if limits.Depth == 0 && limits.Nodes == 0 && limits.MoveTime == 0 && !limits.Infinite && !limits.hasClock() {
		limits.MoveTime = DefaultMoveTime
	}

	tm := NewTimeManager()
	tm.Init(limits, pos.SideToMove, pos.FullMoveNumber*2)
	timed := limits.MoveTime > 0 || (limits.hasClock() && !limits.Infinite)
	if timed {
		timer := time.AfterFunc(tm.MaximumTime(), func() { e.stop.Store(true) })
		defer timer.Stop()
	}
	stopOnCancel := context.AfterFunc(ctx, func() { e.stop.Store(true) })
	defer stopOnCancel()
	if ctx.Err() != nil {
		e.stop.Store(true)
	}

	maxDepth := MaxPly - 1
	if limits.Depth > 0 {
		maxDepth = min(limits.Depth, maxDepth)
	}

	s := newSearcher(pos, e.tt, e.eval, &e.stop)
	s.nodeLimit = limits.Nodes

	var result SearchResult
	for depth := 1; depth <= maxDepth; depth++ {
		move, score := s.searchRoot(depth)
		stopped := e.stop.Load()

		if move != board.NoMove {
			result.BestMove = move
			result.Score = score
			result.Depth = depth
		} else if result.BestMove == board.NoMove && !stopped {
			// No legal moves: report the terminal score.
			result.Score = score
			break
		}
		if stopped {
			break
		}

		if e.OnInfo != nil {
			e.OnInfo(e.info(pos, depth, score, s.nodes, time.Since(startTime)))
		}

		if IsMateScore(score) {
			break
		}
		if timed && (tm.PastOptimum() || tm.Elapsed()*2 > tm.MaximumTime()) {
			break
		}
	}
	result.Nodes = s.nodes

	if mateBeyondHorizon(result) && !e.stop.Load() {
		result = e.refineMate(pos, result)
	}

	if result.BestMove == board.NoMove {
		// Stopped before depth 1 completed: any legal move beats none.
		if moves := pos.GenerateLegalMoves(); moves.Len() > 0 {
			result.BestMove = moves.Get(0)
		}
	}

	if result.BestMove != board.NoMove {
		result.PV = principalVariation(pos, e.tt, max(result.Depth, 1))
		if len(result.PV) == 0 || result.PV[0] != result.BestMove {
			result.PV = []board.Move{result.BestMove}
		}
	}
	return result
}

// mateBeyondHorizon reports a winning mate longer than the depth that
// found it. Such a score can only come from a table entry stored by an
// earlier, deeper search, and a shorter mate may exist.
func mateBeyondHorizon(res SearchResult) bool {
	return res.Score > MateScore-MaxPly && MateScore-res.Score > res.Depth
}

// refineMate re-searches a found mate one ply shallower at a time with a
// fresh table, keeping a shallower result only while it is still a mate.
func (e *Engine) refineMate(pos *board.Position, found SearchResult) SearchResult {
	if e.refineTT == nil {
		e.refineTT = NewTranspositionTable(refineTableMB)
	}

	best := found
	for depth := found.Depth - 1; depth >= 1; depth-- {
		e.refineTT.Clear()
		s := newSearcher(pos, e.refineTT, e.eval, &e.stop)
		move, score := s.searchRoot(depth)
		best.Nodes += s.nodes
		if e.stop.Load() || move == board.NoMove || score <= MateScore-MaxPly {
			break
		}
		best.BestMove, best.Score, best.Depth = move, score, depth
	}
	return best
}

func (e *Engine) info(pos *board.Position, depth, score int, nodes uint64, elapsed time.Duration) SearchInfo {
	var nps uint64
	if ms := elapsed.Milliseconds(); ms > 0 {
		nps = nodes * 1000 / uint64(ms)
	}
	return SearchInfo{
		Depth:    depth,
		Score:    score,
		Mate:     MateIn(score),
		Nodes:    nodes,
		Time:     elapsed,
		NPS:      nps,
		PV:       principalVariation(pos, e.tt, depth),
		HashFull: e.tt.HashFull(),
	}
}

// Stop stops a search that is already running. It has no effect on a
// search started afterwards; cancel the context passed to Search instead
// when the start may race with the stop.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// Clear clears the transposition table and other caches.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.cache.Clear()
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	return e.eval.Evaluate(pos)
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if mate := MateIn(score); mate > 0 {
		return "Mate in " + strconv.Itoa(mate)
	} else if mate < 0 {
		return "Mated in " + strconv.Itoa(-mate)
	}

	// Convert centipawns to pawns
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	cp := strconv.Itoa(score % 100)
	if len(cp) < 2 {
		cp = "0" + cp
	}
	return sign + strconv.Itoa(score/100) + "." + cp
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
