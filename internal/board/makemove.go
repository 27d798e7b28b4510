package board

import "fmt"

// castleRookSquares maps a castling king destination to the rook's
// origin and destination.
func castleRookSquares(kingTo Square) (from, to Square) {
	switch kingTo {
	case G1:
		return H1, F1
	case C1:
		return A1, D1
	case G8:
		return H8, F8
	case C8:
		return A8, D8
	}
	panic(fmt.Sprintf("board: no castling lands on %s", kingTo))
}

// pawnPush is the board offset of a single pawn step for c.
func pawnPush(c Color) int {
	if c == White {
		return 8
	}
	return -8
}

// MakeMove applies a legal move and pushes the state needed to undo it.
// Passing a move that is not legal in the position corrupts it.
func (p *Position) MakeMove(m Move) {
	us := p.SideToMove
	from, to := m.From(), m.To()
	mover := p.board[from]
	if mover == NoPiece || mover.Color() != us {
		panic(fmt.Sprintf("board: make %s: no %s piece on %s", m, us, from))
	}

	captured := p.board[to].Type()
	if m.IsEnPassant() {
		captured = Pawn
	}

	p.history = append(p.history, undoState{
		captured:      captured,
		enPassant:     p.EnPassant,
		castling:      p.CastlingRights,
		halfMoveClock: p.HalfMoveClock,
		hash:          p.Hash,
	})

	p.setEnPassant(NoSquare)

	switch m.Flag() {
	case FlagCastling:
		p.removePiece(from)
		p.addPiece(to, mover)
		rookFrom, rookTo := castleRookSquares(to)
		rook := p.removePiece(rookFrom)
		p.addPiece(rookTo, rook)

	case FlagEnPassant:
		p.removePiece(from)
		p.removePiece(Square(int(to) - pawnPush(us)))
		p.addPiece(to, mover)

	case FlagDoublePush:
		p.removePiece(from)
		p.addPiece(to, mover)
		p.setEnPassant(Square(int(from) + pawnPush(us)))

	default:
		placed := mover
		if m.IsPromotion() {
			placed = NewPiece(m.Promotion(), us)
		}
		p.removePiece(from)
		if captured != NoPieceType {
			p.replacePiece(to, placed)
		} else {
			p.addPiece(to, placed)
		}
	}

	if loss := castlingLoss[from] | castlingLoss[to]; p.CastlingRights&loss != 0 {
		p.setCastlingRights(p.CastlingRights &^ loss)
	}

	if mover.Type() == Pawn || captured != NoPieceType {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}
	p.SideToMove = us.Other()
	p.Hash ^= zobristSideToMove
}

// UnmakeMove reverts the last move made. m must be that move.
func (p *Position) UnmakeMove(m Move) {
	n := len(p.history)
	if n == 0 {
		panic(fmt.Sprintf("board: unmake %s with empty history", m))
	}
	st := p.history[n-1]
	p.history = p.history[:n-1]

	us := p.SideToMove.Other()
	them := p.SideToMove
	p.SideToMove = us
	if us == Black {
		p.FullMoveNumber--
	}

	from, to := m.From(), m.To()
	switch m.Flag() {
	case FlagCastling:
		rookFrom, rookTo := castleRookSquares(to)
		rook := p.removePiece(rookTo)
		p.addPiece(rookFrom, rook)
		king := p.removePiece(to)
		p.addPiece(from, king)

	case FlagEnPassant:
		pawn := p.removePiece(to)
		p.addPiece(Square(int(to)-pawnPush(us)), NewPiece(Pawn, them))
		p.addPiece(from, pawn)

	default:
		moved := p.board[to]
		if m.IsPromotion() {
			moved = NewPiece(Pawn, us)
		}
		if st.captured != NoPieceType {
			p.replacePiece(to, NewPiece(st.captured, them))
		} else {
			p.removePiece(to)
		}
		p.addPiece(from, moved)
	}

	p.EnPassant = st.enPassant
	p.CastlingRights = st.castling
	p.HalfMoveClock = st.halfMoveClock
	p.Hash = st.hash
}
