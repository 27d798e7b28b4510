package board

import (
	"math/rand"
	"reflect"
	"slices"
	"testing"
)

// snapshot captures every field of a position. Piece lists are sorted
// because their order is not part of the position.
type snapshot struct {
	Board        [64]Piece
	Kings        [2]Square
	Lists        [2][King][]Square
	Attacks      [2][64]int8
	PieceAttacks [2][6][64]int8
	Side         Color
	Castling     CastlingRights
	EnPassant    Square
	HalfMove     int
	FullMove     int
	Hash         uint64
	History      []undoState
}

func takeSnapshot(p *Position) snapshot {
	s := snapshot{
		Board:     p.board,
		Side:      p.SideToMove,
		Castling:  p.CastlingRights,
		EnPassant: p.EnPassant,
		HalfMove:  p.HalfMoveClock,
		FullMove:  p.FullMoveNumber,
		Hash:      p.Hash,
		History:   slices.Clone(p.history),
	}
	for c := White; c <= Black; c++ {
		s.Kings[c] = p.sides[c].King
		s.Attacks[c] = p.sides[c].Attacks
		s.PieceAttacks[c] = p.sides[c].PieceAttacks
		for pt := Pawn; pt < King; pt++ {
			sq := slices.Clone(p.sides[c].Pieces[pt].Squares())
			slices.Sort(sq)
			s.Lists[c][pt] = sq
		}
	}
	return s
}

// naiveAttacks recomputes attack counts square by square without the
// incremental helpers.
func naiveAttacks(p *Position) (attacks [2][64]int8) {
	for sq := A1; sq <= H8; sq++ {
		pc := p.board[sq]
		if pc == NoPiece {
			continue
		}
		c := pc.Color()
		switch pc.Type() {
		case Pawn:
			for _, to := range PawnCaptureTargets(c, sq) {
				attacks[c][to]++
			}
		case Knight:
			for _, to := range KnightTargets(sq) {
				attacks[c][to]++
			}
		case King:
			for _, to := range KingTargets(sq) {
				attacks[c][to]++
			}
		default:
			for _, d := range slidingDirections(pc.Type()) {
				for n := 1; n <= sq.SquaresToEdge(d); n++ {
					to := sq.Offset(d, n)
					attacks[c][to]++
					if q := p.board[to]; q != NoPiece && q != NewPiece(King, c.Other()) {
						break
					}
				}
			}
		}
	}
	return attacks
}

func checkConsistent(t *testing.T, p *Position, context string) {
	t.Helper()
	if err := p.Validate(); err != nil {
		t.Fatalf("%s: %v\n%s", context, err, p)
	}
	want := naiveAttacks(p)
	for c := White; c <= Black; c++ {
		if p.sides[c].Attacks != want[c] {
			t.Fatalf("%s: %s attack counts differ from a naive recount\n%s", context, c, p)
		}
	}
}

// TestMakeUnmakeRoundTrip makes and unmakes every legal move two plies
// deep in each reference position and compares every field.
func TestMakeUnmakeRoundTrip(t *testing.T) {
	for _, tc := range PerftSuite {
		t.Run(tc.Name, func(t *testing.T) {
			pos := MustParseFEN(tc.FEN)
			checkConsistent(t, pos, "parsed")
			roundTrip(t, pos, 2)
		})
	}
}

func roundTrip(t *testing.T, pos *Position, depth int) {
	t.Helper()
	if depth == 0 {
		return
	}
	before := takeSnapshot(pos)
	for _, m := range pos.GenerateLegalMoves().Slice() {
		pos.MakeMove(m)
		checkConsistent(t, pos, "after "+m.String())
		roundTrip(t, pos, depth-1)
		pos.UnmakeMove(m)

		if after := takeSnapshot(pos); !reflect.DeepEqual(before, after) {
			t.Fatalf("unmake %s did not restore the position\n%s", m, pos)
		}
	}
}

// TestHashIncremental plays random games and compares the maintained
// hash with a from-scratch rebuild of the FEN at every ply.
func TestHashIncremental(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for game := 0; game < 40; game++ {
		pos := NewPosition()
		var played []Move
		for ply := 0; ply < 120; ply++ {
			moves := pos.GenerateLegalMoves().Slice()
			if len(moves) == 0 {
				break
			}
			m := moves[rng.Intn(len(moves))]
			pos.MakeMove(m)
			played = append(played, m)

			rebuilt := MustParseFEN(pos.ToFEN())
			if rebuilt.Hash != pos.Hash {
				t.Fatalf("game %d ply %d: hash %016x, rebuilt %016x (%s)", game, ply, pos.Hash, rebuilt.Hash, pos.ToFEN())
			}
			checkConsistent(t, pos, "random playout")
		}

		for i := len(played) - 1; i >= 0; i-- {
			pos.UnmakeMove(played[i])
			if pos.Hash != pos.ComputeHash() {
				t.Fatalf("game %d: hash drift while unwinding %s", game, played[i])
			}
		}
		if pos.ToFEN() != StartFEN {
			t.Fatalf("game %d: unwound to %s", game, pos.ToFEN())
		}
	}
}

func TestMakeMoveState(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want string
	}{
		{"double push sets en passant", StartFEN, "e2e4",
			"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"},
		{"black move bumps full move", "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", "g8f6",
			"rnbqkb1r/pppppppp/5n2/8/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 1 2"},
		{"castle kingside", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 3 10", "e1g1",
			"r3k2r/8/8/8/8/8/8/R4RK1 b kq - 4 10"},
		{"castle queenside", "r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 3 10", "e8c8",
			"2kr3r/8/8/8/8/8/8/R3K2R w KQ - 4 11"},
		{"rook capture clears both rights", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 3 10", "a1a8",
			"R3k2r/8/8/8/8/8/8/4K2R b Kk - 0 10"},
		{"en passant", "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1", "e5d6",
			"4k3/8/3P4/8/8/8/8/4K3 b - - 0 1"},
		{"promotion with capture", "1r2k3/P7/8/8/8/8/8/4K3 w - - 0 1", "a7b8n",
			"1N2k3/8/8/8/8/8/8/4K3 b - - 0 1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := MustParseFEN(tc.fen)
			m, err := pos.ParseLegalMove(tc.move)
			if err != nil {
				t.Fatalf("ParseLegalMove(%q): %v", tc.move, err)
			}
			before := takeSnapshot(pos)
			pos.MakeMove(m)
			if got := pos.ToFEN(); got != tc.want {
				t.Errorf("after %s:\n got %s\nwant %s", tc.move, got, tc.want)
			}
			checkConsistent(t, pos, tc.move)
			pos.UnmakeMove(m)
			if !reflect.DeepEqual(before, takeSnapshot(pos)) {
				t.Errorf("unmake %s did not restore the position", tc.move)
			}
		})
	}
}

// TestSliderRaysThroughKing checks that a checked king cannot retreat
// along the checking ray: the square behind it counts as attacked.
func TestSliderRaysThroughKing(t *testing.T) {
	pos := MustParseFEN("4k3/8/8/8/4r3/8/4K3/8 w - - 0 1")
	if !pos.InCheck() {
		t.Fatal("expected check")
	}
	if pos.Attackers(Black, E1) != 1 {
		t.Errorf("e1 behind the king should be attacked once, got %d", pos.Attackers(Black, E1))
	}
	for _, m := range pos.GenerateLegalMoves().Slice() {
		if m.To() == E1 {
			t.Errorf("king may not retreat along the checking file: %s", m)
		}
	}
}

func TestMakeMovePanicsOnEmptySquare(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewPosition().MakeMove(NewMove(E4, E5))
}

func TestUnmakeEmptyHistoryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewPosition().UnmakeMove(NewMove(E2, E4))
}
