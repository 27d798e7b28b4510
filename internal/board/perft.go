package board

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (p *Position) Perft(depth int) uint64 {
	if depth <= 0 {
		return 1
	}

	var ml MoveList
	p.GenerateLegalMovesInto(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}

	var nodes uint64
	for _, m := range ml.Slice() {
		p.MakeMove(m)
		nodes += p.Perft(depth - 1)
		p.UnmakeMove(m)
	}
	return nodes
}

// PerftDivide returns the leaf count below each root move.
func (p *Position) PerftDivide(depth int) map[Move]uint64 {
	divide := make(map[Move]uint64)
	if depth <= 0 {
		return divide
	}
	var ml MoveList
	p.GenerateLegalMovesInto(&ml)
	for _, m := range ml.Slice() {
		p.MakeMove(m)
		divide[m] = p.Perft(depth - 1)
		p.UnmakeMove(m)
	}
	return divide
}

// PerftDivideParallel is PerftDivide with one goroutine per root move,
// each working on its own clone. Cancelling ctx abandons the count.
func (p *Position) PerftDivideParallel(ctx context.Context, depth, workers int) (map[Move]uint64, error) {
	divide := make(map[Move]uint64)
	if depth <= 0 {
		return divide, nil
	}

	var ml MoveList
	p.GenerateLegalMovesInto(&ml)

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, m := range ml.Slice() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			child := p.Clone()
			child.MakeMove(m)
			n := child.Perft(depth - 1)

			mu.Lock()
			divide[m] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return divide, nil
}

// Sum adds up a divide result.
func Sum(divide map[Move]uint64) uint64 {
	var total uint64
	for _, n := range divide {
		total += n
	}
	return total
}

// PerftCase is a reference position with its published leaf counts;
// Nodes[i] is the count at depth i+1.
type PerftCase struct {
	Name  string
	FEN   string
	Nodes []uint64
}

// PerftSuite is the standard set of move generator reference positions.
var PerftSuite = []PerftCase{
	{"start", StartFEN, []uint64{20, 400, 8902, 197281, 4865609, 119060324}},
	{"kiwipete", "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1", []uint64{48, 2039, 97862, 4085603}},
	{"endgame", "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1", []uint64{14, 191, 2812, 43238, 674624, 11030083}},
	{"promotions", "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1", []uint64{6, 264, 9467, 422333, 15833292}},
	{"talkchess", "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8", []uint64{44, 1486, 62379, 2103487}},
	{"middlegame", "r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10", []uint64{46, 2079, 89890, 3894594}},
}

// ReferencePosition returns a fresh copy of the nth (1-based) PerftSuite position.
func ReferencePosition(n int) (*Position, error) {
	if n < 1 || n > len(PerftSuite) {
		return nil, fmt.Errorf("reference position %d out of range 1-%d", n, len(PerftSuite))
	}
	return ParseFEN(PerftSuite[n-1].FEN)
}
