package engine

import (
	"sync/atomic"
	"testing"

	"github.com/hailam/rizzi/internal/board"
)

func TestTTStoreProbe(t *testing.T) {
	tt := NewTranspositionTable(1)
	pos := board.NewPosition()
	move := board.NewDoublePush(board.E2, board.E4)

	if _, ok := tt.Probe(pos.Hash); ok {
		t.Fatal("empty table reported a hit")
	}

	tt.Store(pos.Hash, 6, 123, TTExact, move)
	entry, ok := tt.Probe(pos.Hash)
	if !ok {
		t.Fatal("stored entry not found")
	}
	if entry.Score != 123 || entry.Depth != 6 || entry.Flag != TTExact || entry.BestMove != move {
		t.Errorf("probe returned %+v", entry)
	}

	stats := tt.Stats()
	if stats.Probes != 2 || stats.Hits != 1 || stats.Stores != 1 || stats.Occupied != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

// TestTTExactHitSkipsSearch checks that a node with a deep enough exact
// entry returns the stored score without expanding any child.
func TestTTExactHitSkipsSearch(t *testing.T) {
	pos := board.NewPosition()
	tt := NewTranspositionTable(1)
	tt.Store(pos.Hash, 6, 123, TTExact, board.NewDoublePush(board.E2, board.E4))

	var stop atomic.Bool
	s := newSearcher(pos, tt, NewClassicEvaluator(), &stop)
	if got := s.negamax(4, 1, -Infinity, Infinity); got != 123 {
		t.Errorf("negamax = %d, want stored 123", got)
	}
	if s.nodes != 1 {
		t.Errorf("searched %d nodes, want 1", s.nodes)
	}

	// A shallower entry does not cut the search short.
	tt.Store(pos.Hash, 1, 123, TTExact, board.NoMove)
	s = newSearcher(pos, tt, NewClassicEvaluator(), &stop)
	s.negamax(2, 1, -Infinity, Infinity)
	if s.nodes <= 1 {
		t.Error("shallow entry should not be trusted at depth 2")
	}
}

func TestTTBoundCutoffs(t *testing.T) {
	pos := board.NewPosition()
	tt := NewTranspositionTable(1)
	var stop atomic.Bool

	tt.Store(pos.Hash, 5, 300, TTLowerBound, board.NoMove)
	s := newSearcher(pos, tt, NewClassicEvaluator(), &stop)
	if got := s.negamax(3, 1, -100, 200); got != 300 || s.nodes != 1 {
		t.Errorf("lower bound above beta: score %d after %d nodes", got, s.nodes)
	}

	tt.Store(pos.Hash, 5, -300, TTUpperBound, board.NoMove)
	s = newSearcher(pos, tt, NewClassicEvaluator(), &stop)
	if got := s.negamax(3, 1, -100, 200); got != -300 || s.nodes != 1 {
		t.Errorf("upper bound below alpha: score %d after %d nodes", got, s.nodes)
	}
}

func TestTTOverwrite(t *testing.T) {
	tt := NewTranspositionTable(1)
	const hash = 12345
	collide := hash + tt.Size()

	tt.Store(hash, 8, 50, TTExact, board.NoMove)
	tt.Store(collide, 1, -20, TTUpperBound, board.NoMove)

	if _, ok := tt.Probe(hash); ok {
		t.Error("evicted entry still found")
	}
	entry, ok := tt.Probe(collide)
	if !ok || entry.Score != -20 || entry.Depth != 1 {
		t.Errorf("colliding entry = %+v, %v", entry, ok)
	}
	if stats := tt.Stats(); stats.Overwrites != 1 || stats.Occupied != 1 {
		t.Errorf("stats = %+v", stats)
	}

	tt.Clear()
	if _, ok := tt.Probe(collide); ok {
		t.Error("entry survived Clear")
	}
	if tt.HashFull() != 0 {
		t.Errorf("HashFull after Clear = %d", tt.HashFull())
	}
}

func TestTTEntriesLoad(t *testing.T) {
	src := NewTranspositionTable(1)
	src.Store(1, 3, 10, TTExact, board.NewMove(board.G1, board.F3))
	src.Store(2, 4, -10, TTLowerBound, board.NoMove)

	entries := src.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() returned %d entries", len(entries))
	}

	dst := NewTranspositionTable(1)
	dst.Load(entries)
	for _, e := range entries {
		got, ok := dst.Probe(e.Key)
		if !ok || got != e {
			t.Errorf("loaded %+v, want %+v", got, e)
		}
	}
}

func TestAdjustMateScores(t *testing.T) {
	for _, score := range []int{MateScore - 3, -MateScore + 4, 250, -250, 0} {
		stored := AdjustScoreToTT(score, 7)
		if got := AdjustScoreFromTT(stored, 7); got != score {
			t.Errorf("round trip of %d through ply 7 gave %d", score, got)
		}
	}
	// A mate found 3 plies below a node stored at ply 5 is 3 plies from
	// that node wherever it is read back.
	stored := AdjustScoreToTT(MateScore-8, 5)
	if got := AdjustScoreFromTT(stored, 2); got != MateScore-5 {
		t.Errorf("mate distance read at ply 2 = %d, want %d", got, MateScore-5)
	}
}
