// Package engine implements the chess AI search engine.
package engine

import (
	"github.com/hailam/rizzi/internal/board"
)

// Evaluator scores a position in centipawns from the side to move's
// point of view. The search treats it as a black box.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(pos *board.Position) int

// Evaluate calls f(pos).
func (f EvaluatorFunc) Evaluate(pos *board.Position) int {
	return f(pos)
}

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

// maxPhase is the game phase with all minor and major pieces on the board.
const maxPhase = 24

var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

// ClassicEvaluator is the built-in hand-written evaluation: material,
// piece-square tables, pawn structure, king safety and an endgame term
// that drives a lone king to the corner. Middlegame and endgame scores
// are blended by the remaining material.
type ClassicEvaluator struct {
	PieceValues [6]int

	DoubledPawn  int
	IsolatedPawn int
	// PassedPawn is indexed by the pawn's rank from its own side.
	PassedPawn [8]int

	// KingZoneAttack is charged per enemy attack on the king and the
	// squares around it (middlegame only).
	KingZoneAttack int

	// MopUp weights the endgame term used when one side has only its king.
	MopUpCorner   int
	MopUpDistance int

	Tempo int
}

// NewClassicEvaluator returns an evaluator with the default weights.
func NewClassicEvaluator() *ClassicEvaluator {
	return &ClassicEvaluator{
		PieceValues:    [6]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0},
		DoubledPawn:    -15,
		IsolatedPawn:   -20,
		PassedPawn:     [8]int{0, 10, 15, 25, 45, 75, 120, 0},
		KingZoneAttack: -8,
		MopUpCorner:    10,
		MopUpDistance:  4,
		Tempo:          10,
	}
}

// Piece-square tables, written with the 8th rank on top from White's
// point of view. Use pstIndex to look a square up.

var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

var psts = [5]*[64]int{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST}

// pstIndex maps a square to its table slot for color c.
func pstIndex(c board.Color, sq board.Square) int {
	if c == board.White {
		return int(sq.Mirror())
	}
	return int(sq)
}

// Evaluate implements Evaluator.
func (e *ClassicEvaluator) Evaluate(pos *board.Position) int {
	var mgScore, egScore int
	var phase int

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}

		for pt := board.Pawn; pt < board.King; pt++ {
			for _, sq := range pos.Pieces(c, pt) {
				v := e.PieceValues[pt] + psts[pt][pstIndex(c, sq)]
				mgScore += sign * v
				egScore += sign * v
				phase += phaseWeight[pt]
			}
		}

		ksq := pstIndex(c, pos.KingSquare(c))
		mgScore += sign * kingMidgamePST[ksq]
		egScore += sign * kingEndgamePST[ksq]

		psMg, psEg := e.pawnStructure(pos, c)
		mgScore += sign * psMg
		egScore += sign * psEg

		mgScore += sign * e.kingSafety(pos, c)
	}

	egScore += e.mopUp(pos)

	phase = min(phase, maxPhase)
	score := (mgScore*phase + egScore*(maxPhase-phase)) / maxPhase
	if pos.SideToMove == board.Black {
		score = -score
	}
	return score + e.Tempo
}

// pawnStructure scores c's doubled, isolated and passed pawns.
func (e *ClassicEvaluator) pawnStructure(pos *board.Position, c board.Color) (mg, eg int) {
	var own, enemy [8]int
	for _, sq := range pos.Pieces(c, board.Pawn) {
		own[sq.File()]++
	}
	for _, sq := range pos.Pieces(c.Other(), board.Pawn) {
		enemy[sq.File()]++
	}

	for f := 0; f < 8; f++ {
		if own[f] > 1 {
			mg += e.DoubledPawn * (own[f] - 1)
			eg += e.DoubledPawn * (own[f] - 1)
		}
		if own[f] > 0 && (f == 0 || own[f-1] == 0) && (f == 7 || own[f+1] == 0) {
			mg += e.IsolatedPawn * own[f]
			eg += e.IsolatedPawn * own[f]
		}
	}

	for _, sq := range pos.Pieces(c, board.Pawn) {
		if isPassed(pos, sq, c) {
			bonus := e.PassedPawn[sq.RelativeRank(c)]
			mg += bonus / 2
			eg += bonus
		}
	}
	return mg, eg
}

// isPassed reports whether no enemy pawn stands ahead of sq on its own
// or an adjacent file.
func isPassed(pos *board.Position, sq board.Square, c board.Color) bool {
	rank := sq.RelativeRank(c)
	for _, esq := range pos.Pieces(c.Other(), board.Pawn) {
		df := esq.File() - sq.File()
		if df >= -1 && df <= 1 && esq.RelativeRank(c) > rank {
			return false
		}
	}
	return true
}

// kingSafety charges c for every enemy attack on its king zone. The
// attack counts are maintained by the position, so this is a lookup.
func (e *ClassicEvaluator) kingSafety(pos *board.Position, c board.Color) int {
	ksq := pos.KingSquare(c)
	them := c.Other()
	attacks := pos.Attackers(them, ksq)
	for _, sq := range board.KingTargets(ksq) {
		attacks += pos.Attackers(them, sq)
	}
	return e.KingZoneAttack * attacks
}

// mopUp returns a White-relative endgame bonus for the side that is
// ahead when the defender has nothing but its king: the defending king
// is pushed to the edge and the attacking king walks towards it.
func (e *ClassicEvaluator) mopUp(pos *board.Position) int {
	for strong := board.White; strong <= board.Black; strong++ {
		weak := strong.Other()
		if pos.NonPawnMaterial(weak) != 0 || pos.PieceCount(weak, board.Pawn) != 0 {
			continue
		}
		if pos.NonPawnMaterial(strong) < RookValue {
			continue
		}

		wk := pos.KingSquare(weak)
		sk := pos.KingSquare(strong)
		bonus := e.MopUpCorner*centerDistance(wk) + e.MopUpDistance*(14-manhattan(wk, sk))
		if strong == board.Black {
			return -bonus
		}
		return bonus
	}
	return 0
}

func centerDistance(sq board.Square) int {
	f, r := sq.File(), sq.Rank()
	return max(3-f, f-4) + max(3-r, r-4)
}

func manhattan(a, b board.Square) int {
	return abs(a.File()-b.File()) + abs(a.Rank()-b.Rank())
}

// EvaluateMaterial returns the bare material balance from the side to
// move's point of view.
func EvaluateMaterial(pos *board.Position) int {
	score := pos.Material()
	if pos.SideToMove == board.Black {
		return -score
	}
	return score
}
