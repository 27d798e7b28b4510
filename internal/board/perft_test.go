package board

import (
	"context"
	"testing"
)

// maxPerftNodes bounds the reference depths run by default; the full
// counts run without -short only up to this many leaves.
const maxPerftNodes = 5_000_000

// TestPerftSuite checks leaf counts against the published reference values.
func TestPerftSuite(t *testing.T) {
	for _, tc := range PerftSuite {
		t.Run(tc.Name, func(t *testing.T) {
			pos, err := ParseFEN(tc.FEN)
			if err != nil {
				t.Fatalf("Failed to parse FEN: %v", err)
			}

			for i, want := range tc.Nodes {
				depth := i + 1
				if want > maxPerftNodes || (testing.Short() && want > 100_000) {
					break
				}
				if got := pos.Perft(depth); got != want {
					t.Errorf("perft(%d) = %d, want %d", depth, got, want)
				}
			}
			if err := pos.Validate(); err != nil {
				t.Errorf("position corrupted after perft: %v", err)
			}
		})
	}
}

// TestPerftEnPassantPin tests the horizontal en passant pin.
// The black pawn on e4 may not capture on d3: with both pawns gone from
// the fourth rank the rook on h4 would attack the king on a4.
func TestPerftEnPassantPin(t *testing.T) {
	pos := MustParseFEN("8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")

	for _, m := range pos.GenerateLegalMoves().Slice() {
		if m.IsEnPassant() {
			t.Errorf("En passant move %v should be illegal (horizontal pin)", m)
		}
	}

	// Depth 1: Ka3, Ka5, Kb3, Kb4, Kb5, e3
	tests := []struct {
		depth    int
		expected uint64
	}{
		{1, 6},
		{2, 94},
	}
	for _, tc := range tests {
		if got := pos.Perft(tc.depth); got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

// TestEnPassantPinVariants covers the rank pin from both sides and with
// a blocker that makes the capture legal again.
func TestEnPassantPinVariants(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		legal bool
	}{
		{"rook beyond the captured pawn", "8/8/8/KPp4r/8/8/8/7k w - c6 0 1", false},
		{"queen beyond the capturing pawn", "8/8/8/q1PpK3/8/8/8/7k w - d6 0 1", false},
		{"blocked by a knight", "8/8/8/KPp1n2r/8/8/8/7k w - c6 0 1", true},
		{"king off the rank", "8/8/K7/1Pp4r/8/8/8/7k w - c6 0 1", true},
		{"own rook beyond", "8/8/8/KPp4R/8/8/8/6k1 w - c6 0 1", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := MustParseFEN(tc.fen)
			found := false
			for _, m := range pos.GenerateLegalMoves().Slice() {
				if m.IsEnPassant() {
					found = true
				}
			}
			if found != tc.legal {
				t.Errorf("en passant legal = %v, want %v", found, tc.legal)
			}
		})
	}
}

func TestPerftDivide(t *testing.T) {
	pos := NewPosition()
	divide := pos.PerftDivide(3)
	if len(divide) != 20 {
		t.Fatalf("divide has %d root moves, want 20", len(divide))
	}
	if got := Sum(divide); got != 8902 {
		t.Errorf("sum of divide = %d, want 8902", got)
	}
	if n := divide[NewDoublePush(E2, E4)]; n != 600 {
		t.Errorf("e2e4 subtree = %d, want 600", n)
	}

	parallel, err := pos.PerftDivideParallel(context.Background(), 3, 4)
	if err != nil {
		t.Fatalf("PerftDivideParallel: %v", err)
	}
	for m, n := range divide {
		if parallel[m] != n {
			t.Errorf("%s: parallel %d, serial %d", m, parallel[m], n)
		}
	}
}

func TestPerftDivideParallelCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewPosition().PerftDivideParallel(ctx, 4, 2); err == nil {
		t.Error("expected an error from a cancelled context")
	}
}

func BenchmarkPerftStart4(b *testing.B) {
	pos := NewPosition()
	for i := 0; i < b.N; i++ {
		pos.Perft(4)
	}
}

func TestReferencePosition(t *testing.T) {
	for n := 1; n <= len(PerftSuite); n++ {
		pos, err := ReferencePosition(n)
		if err != nil {
			t.Fatalf("ReferencePosition(%d): %v", n, err)
		}
		if got := pos.Perft(1); got != PerftSuite[n-1].Nodes[0] {
			t.Errorf("position %d: perft(1) = %d, want %d", n, got, PerftSuite[n-1].Nodes[0])
		}
	}
	for _, n := range []int{0, len(PerftSuite) + 1} {
		if _, err := ReferencePosition(n); err == nil {
			t.Errorf("ReferencePosition(%d) succeeded", n)
		}
	}
}
