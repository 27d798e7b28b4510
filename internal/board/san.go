package board

import "strings"

// ToSAN converts a legal move to Standard Algebraic Notation.
// pos is left unchanged.
func (m Move) ToSAN(pos *Position) string {
	if m == NoMove {
		return "-"
	}

	from, to := m.From(), m.To()
	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return m.String()
	}

	var sb strings.Builder
	if m.IsCastling() {
		if m.IsKingsideCastle() {
			sb.WriteString("O-O")
		} else {
			sb.WriteString("O-O-O")
		}
	} else {
		pt := piece.Type()
		if pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(disambiguation(pos, m, piece))
		}
		if m.IsCapture(pos) {
			if pt == Pawn {
				sb.WriteByte('a' + byte(from.File()))
			}
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion()])
		}
	}

	pos.MakeMove(m)
	if pos.InCheck() {
		if pos.HasLegalMoves() {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('#')
		}
	}
	pos.UnmakeMove(m)

	return sb.String()
}

// disambiguation returns the origin file, rank or square needed when
// another piece of the same kind can reach the same destination.
func disambiguation(pos *Position, m Move, piece Piece) string {
	from, to := m.From(), m.To()

	var ml MoveList
	pos.GenerateLegalMovesInto(&ml)

	ambiguous, sameFile, sameRank := false, false, false
	for _, other := range ml.Slice() {
		if other.To() != to || other.From() == from || pos.PieceAt(other.From()) != piece {
			continue
		}
		ambiguous = true
		if other.From().File() == from.File() {
			sameFile = true
		}
		if other.From().Rank() == from.Rank() {
			sameRank = true
		}
	}

	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return string(rune('a' + from.File()))
	case !sameRank:
		return string(rune('1' + from.Rank()))
	default:
		return from.String()
	}
}

// MovesToSAN converts a line of moves played from pos to SAN.
func MovesToSAN(pos *Position, moves []Move) []string {
	result := make([]string, len(moves))
	p := pos.Clone()
	for i, m := range moves {
		result[i] = m.ToSAN(p)
		p.MakeMove(m)
	}
	return result
}
