package board

// Outcome is the result of a game as decided by the rules.
type Outcome uint8

const (
	Ongoing Outcome = iota
	WhiteWins
	BlackWins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case WhiteWins:
		return "1-0"
	case BlackWins:
		return "0-1"
	case Draw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

// Reason explains a finished game's outcome.
type Reason uint8

const (
	NoReason Reason = iota
	Checkmate
	Stalemate
	ThreefoldRepetition
	FiftyMoveRule
	InsufficientMaterial
)

func (r Reason) String() string {
	switch r {
	case Checkmate:
		return "checkmate"
	case Stalemate:
		return "stalemate"
	case ThreefoldRepetition:
		return "threefold repetition"
	case FiftyMoveRule:
		return "fifty-move rule"
	case InsufficientMaterial:
		return "insufficient material"
	default:
		return ""
	}
}

// Repetitions counts earlier occurrences of the current position. Only
// positions with the same side to move since the last irreversible move
// are considered; a change of castling rights ends the scan.
func (p *Position) Repetitions() int {
	n := len(p.history)
	limit := n - p.HalfMoveClock
	if limit < 0 {
		limit = 0
	}

	count := 0
	for i := n - 4; i >= limit; i -= 2 {
		st := &p.history[i]
		if st.castling != p.CastlingRights {
			break
		}
		if st.hash == p.Hash {
			count++
		}
	}
	return count
}

// IsPracticallyDrawn is the draw test used inside search: a single
// repetition or the fifty-move limit is enough to score the node as 0.
func (p *Position) IsPracticallyDrawn() bool {
	return p.HalfMoveClock >= 100 || p.Repetitions() >= 1
}

// IsThreefoldRepetition reports whether the position has now occurred
// three times. Repetitions counts earlier occurrences only, so three
// occurrences means two repetitions, the same unit in which
// IsPracticallyDrawn treats one repetition as a draw.
func (p *Position) IsThreefoldRepetition() bool {
	return p.Repetitions() >= 2
}

// IsCheckmate returns true if the side to move is checkmated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate returns true if the side to move is stalemated.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsInsufficientMaterial returns true when neither side can mate: bare
// kings, a single minor piece, or bishops that all stand on one colour.
func (p *Position) IsInsufficientMaterial() bool {
	for c := White; c <= Black; c++ {
		s := &p.sides[c]
		if s.Pieces[Pawn].Len() > 0 || s.Pieces[Rook].Len() > 0 || s.Pieces[Queen].Len() > 0 {
			return false
		}
	}

	knights := p.sides[White].Pieces[Knight].Len() + p.sides[Black].Pieces[Knight].Len()
	bishops := p.sides[White].Pieces[Bishop].Len() + p.sides[Black].Pieces[Bishop].Len()
	if knights+bishops <= 1 {
		return true
	}
	if knights > 0 {
		return false
	}

	var colours [2]int
	for c := White; c <= Black; c++ {
		for _, sq := range p.sides[c].Pieces[Bishop].Squares() {
			colours[(sq.File()+sq.Rank())&1]++
		}
	}
	return colours[0] == 0 || colours[1] == 0
}

// Result applies the rules to decide whether the game is over.
func (p *Position) Result() (Outcome, Reason) {
	if !p.HasLegalMoves() {
		if !p.InCheck() {
			return Draw, Stalemate
		}
		if p.SideToMove == White {
			return BlackWins, Checkmate
		}
		return WhiteWins, Checkmate
	}
	if p.HalfMoveClock >= 100 {
		return Draw, FiftyMoveRule
	}
	if p.IsThreefoldRepetition() {
		return Draw, ThreefoldRepetition
	}
	if p.IsInsufficientMaterial() {
		return Draw, InsufficientMaterial
	}
	return Ongoing, NoReason
}
