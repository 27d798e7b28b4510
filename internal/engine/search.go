package engine

import (
	"sync/atomic"

	"github.com/hailam/rizzi/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// maxQuiescencePly bounds the capture sequence explored below the horizon.
const maxQuiescencePly = 32

// IsMateScore reports whether score announces a forced mate for either side.
func IsMateScore(score int) bool {
	return score > MateScore-MaxPly || score < -MateScore+MaxPly
}

// MateIn converts a mate score into full moves: positive when the side
// to move mates, negative when it is mated, 0 for ordinary scores.
func MateIn(score int) int {
	switch {
	case score > MateScore-MaxPly:
		return (MateScore - score + 1) / 2
	case score < -MateScore+MaxPly:
		return -(MateScore + score + 1) / 2
	default:
		return 0
	}
}

// searcher runs one negamax search over a position it owns for the
// duration of the call. Every MakeMove is undone before returning,
// including when the search is cancelled.
type searcher struct {
	pos  *board.Position
	tt   *TranspositionTable
	eval Evaluator
	stop *atomic.Bool

	nodes     uint64
	nodeLimit uint64
}

func newSearcher(pos *board.Position, tt *TranspositionTable, eval Evaluator, stop *atomic.Bool) *searcher {
	return &searcher{pos: pos, tt: tt, eval: eval, stop: stop}
}

// stopped polls the shared cancellation flag and enforces the node limit.
func (s *searcher) stopped() bool {
	if s.stop.Load() {
		return true
	}
	if s.nodeLimit > 0 && s.nodes >= s.nodeLimit {
		s.stop.Store(true)
		return true
	}
	return false
}

// searchRoot searches every root move to depth and returns the best one.
// The result is only meaningful when the search was not stopped.
func (s *searcher) searchRoot(depth int) (board.Move, int) {
	s.nodes++

	var ttMove board.Move
	if entry, ok := s.tt.Probe(s.pos.Hash); ok {
		ttMove = entry.BestMove
	}

	var moves board.MoveList
	s.pos.GenerateLegalMovesInto(&moves)
	if moves.Len() == 0 {
		if s.pos.InCheck() {
			return board.NoMove, -MateScore
		}
		return board.NoMove, 0
	}

	var scores [256]int
	scoreMoves(s.pos, &moves, ttMove, scores[:])

	alpha, beta := -Infinity, Infinity
	bestMove := board.NoMove
	bestScore := -Infinity

	for i := 0; i < moves.Len(); i++ {
		PickMove(&moves, scores[:], i)
		move := moves.Get(i)

		s.pos.MakeMove(move)
		score := -s.negamax(depth-1, 1, -beta, -alpha)
		s.pos.UnmakeMove(move)

		if s.stop.Load() {
			break
		}
		if score > bestScore {
			bestScore = score
			bestMove = move
			if score > alpha {
				alpha = score
			}
		}
	}

	if !s.stop.Load() {
		s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(bestScore, 0), TTExact, bestMove)
	}
	return bestMove, bestScore
}

// negamax is the alpha-beta search below the root.
func (s *searcher) negamax(depth, ply int, alpha, beta int) int {
	if s.stopped() {
		return 0
	}
	s.nodes++

	if s.pos.IsPracticallyDrawn() {
		return 0
	}
	if ply >= MaxPly {
		return s.eval.Evaluate(s.pos)
	}

	var ttMove board.Move
	if entry, ok := s.tt.Probe(s.pos.Hash); ok {
		ttMove = entry.BestMove
		if int(entry.Depth) >= depth {
			score := AdjustScoreFromTT(int(entry.Score), ply)
			switch entry.Flag {
			case TTExact:
				return score
			case TTLowerBound:
				if score >= beta {
					return score
				}
			case TTUpperBound:
				if score <= alpha {
					return score
				}
			}
		}
	}

	if depth <= 0 {
		return s.quiescence(ply, 0, alpha, beta)
	}

	var moves board.MoveList
	s.pos.GenerateLegalMovesInto(&moves)
	if moves.Len() == 0 {
		if s.pos.InCheck() {
			return -MateScore + ply
		}
		return 0
	}

	var scores [256]int
	scoreMoves(s.pos, &moves, ttMove, scores[:])

	origAlpha := alpha
	bestMove := board.NoMove
	bestScore := -Infinity

	for i := 0; i < moves.Len(); i++ {
		PickMove(&moves, scores[:], i)
		move := moves.Get(i)

		s.pos.MakeMove(move)
		score := -s.negamax(depth-1, ply+1, -beta, -alpha)
		s.pos.UnmakeMove(move)

		if s.stop.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move
		}
		if score > alpha {
			alpha = score
		}
		if alpha >= beta {
			break
		}
	}

	flag := TTUpperBound
	switch {
	case bestScore >= beta:
		flag = TTLowerBound
	case bestScore > origAlpha:
		flag = TTExact
	}
	s.tt.Store(s.pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)

	return bestScore
}

// quiescence searches captures until the position is quiet. Checkmate
// and stalemate are scored before standing pat.
func (s *searcher) quiescence(ply, qPly int, alpha, beta int) int {
	if s.stopped() {
		return 0
	}
	s.nodes++

	inCheck := s.pos.InCheck()
	var moves board.MoveList
	s.pos.GenerateCapturesInto(&moves)
	if (inCheck || moves.Len() == 0) && !s.pos.HasLegalMoves() {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	standPat := s.eval.Evaluate(s.pos)
	if ply >= MaxPly || qPly > maxQuiescencePly {
		return standPat
	}
	if standPat >= beta {
		return standPat
	}
	if standPat > alpha {
		alpha = standPat
	}

	var scores [256]int
	scoreMoves(s.pos, &moves, board.NoMove, scores[:])

	best := standPat
	for i := 0; i < moves.Len(); i++ {
		PickMove(&moves, scores[:], i)
		move := moves.Get(i)

		s.pos.MakeMove(move)
		score := -s.quiescence(ply+1, qPly+1, -beta, -alpha)
		s.pos.UnmakeMove(move)

		if s.stop.Load() {
			return 0
		}

		if score > best {
			best = score
		}
		if score >= beta {
			return score
		}
		if score > alpha {
			alpha = score
		}
	}
	return best
}

// principalVariation follows best moves stored in the table from the
// current position. It stops at the first missing or illegal move and
// never revisits a position.
func principalVariation(pos *board.Position, tt *TranspositionTable, maxLen int) []board.Move {
	p := pos.Clone()
	seen := make(map[uint64]bool)
	var pv []board.Move

	for len(pv) < maxLen && !seen[p.Hash] {
		seen[p.Hash] = true
		entry, ok := tt.Probe(p.Hash)
		if !ok || entry.BestMove == board.NoMove {
			break
		}
		if !p.GenerateLegalMoves().Contains(entry.BestMove) {
			break
		}
		pv = append(pv, entry.BestMove)
		p.MakeMove(entry.BestMove)
	}
	return pv
}
