package engine

import (
	"github.com/hailam/rizzi/internal/board"
)

// Move ordering priorities
const (
	TTMoveScore     = 10000000 // TT move gets highest priority
	CaptureBase     = 1000000  // Base score for captures
	PromotionBase   = 500000   // Base score for quiet promotions
	PawnThreatMalus = 200      // Landing on a square an enemy pawn attacks
)

// mvvLva scores a capture as 10*victim - attacker (Most Valuable Victim,
// Least Valuable Attacker). King victims never occur in legal play.
func mvvLva(victim, attacker board.PieceType) int {
	return 10*board.PieceValue[victim] - board.PieceValue[attacker]
}

// scoreMove assigns an ordering score to m. Higher scores search first.
func scoreMove(pos *board.Position, m board.Move, ttMove board.Move) int {
	if m == ttMove {
		return TTMoveScore
	}

	mover := pos.PieceAt(m.From())
	us := mover.Color()
	score := 0

	switch {
	case m.IsEnPassant():
		score = CaptureBase + mvvLva(board.Pawn, board.Pawn)
	case pos.PieceAt(m.To()) != board.NoPiece:
		score = CaptureBase + mvvLva(pos.PieceAt(m.To()).Type(), mover.Type())
	}

	if m.IsPromotion() {
		if score == 0 {
			score = PromotionBase
		}
		score += board.PieceValue[m.Promotion()]
	}

	if mover.Type() != board.Pawn && pos.AttackersOfType(us.Other(), board.Pawn, m.To()) > 0 {
		score -= PawnThreatMalus + board.PieceValue[mover.Type()]/10
	}
	return score
}

// scoreMoves fills scores for every move in moves.
func scoreMoves(pos *board.Position, moves *board.MoveList, ttMove board.Move, scores []int) {
	for i := 0; i < moves.Len(); i++ {
		scores[i] = scoreMove(pos, moves.Get(i), ttMove)
	}
}

// PickMove selects the best remaining move and moves it to position index.
// This is more efficient than full sorting when we expect early cutoffs.
func PickMove(moves *board.MoveList, scores []int, index int) {
	bestIdx := index
	bestScore := scores[index]

	for i := index + 1; i < moves.Len(); i++ {
		if scores[i] > bestScore {
			bestScore = scores[i]
			bestIdx = i
		}
	}

	if bestIdx != index {
		moves.Swap(index, bestIdx)
		scores[index], scores[bestIdx] = scores[bestIdx], scores[index]
	}
}
