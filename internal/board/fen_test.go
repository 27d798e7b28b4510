package board

import (
	"errors"
	"testing"
)

func TestParseFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1",
		"8/8/8/2k5/3Pp3/8/8/4K3 b - d3 0 1",
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Errorf("ParseFEN(%q): %v", fen, err)
			continue
		}
		if got := pos.ToFEN(); got != fen {
			t.Errorf("ToFEN = %q, want %q", got, fen)
		}
	}
}

func TestParseFENRejects(t *testing.T) {
	tests := []struct {
		name string
		fen  string
	}{
		{"too few fields", "8/8/8/8/8/8/8/8 w"},
		{"missing king", "8/8/8/8/8/8/8/4K3 w - - 0 1"},
		{"two kings", "4k3/8/8/8/8/8/8/3KK3 w - - 0 1"},
		{"pawn on last rank", "P3k3/8/8/8/8/8/8/4K3 w - - 0 1"},
		{"short rank", "4k3/8/8/8/8/8/8/4K2 w - - 0 1"},
		{"bad side", "4k3/8/8/8/8/8/8/4K3 x - - 0 1"},
		{"bad castling", "4k3/8/8/8/8/8/8/4K3 w X - 0 1"},
		{"negative clock", "4k3/8/8/8/8/8/8/4K3 w - - -1 1"},
		{"king en prise", "4k3/8/8/8/8/8/8/4RK2 w - - 0 1"},
		{"en passant on wrong rank", "4k3/8/8/3pP3/8/8/8/4K3 w - d3 0 1"},
		{"en passant for the mover", "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e3 0 1"},
		{"en passant without pawn", "4k3/8/8/4P3/8/8/8/4K3 w - d6 0 1"},
		{"en passant over a piece", "4k3/3n4/8/3pP3/8/8/8/4K3 w - d6 0 1"},
		{"en passant after moving in check", "8/8/1k6/8/3Pp3/8/5B2/4K3 b - d3 0 1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := ParseFEN(tc.fen)
			if !errors.Is(err, ErrInvalidFEN) {
				t.Errorf("ParseFEN(%q) = %v, %v; want ErrInvalidFEN", tc.fen, pos, err)
			}
		})
	}
}
