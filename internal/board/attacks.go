package board

// Placement helpers. Every change to the board goes through addPiece,
// removePiece or replacePiece, which keep the piece lists, the hash and
// both sides' attack counts in step with the board array.
//
// Attack rays stop at the first occupied square, except that a ray
// passes through the enemy king. Counting the squares behind a checked
// king as attacked is what keeps the king from stepping back along the
// checking line.

// addPiece places pc on the empty square sq.
func (p *Position) addPiece(sq Square, pc Piece) {
	c, pt := pc.Color(), pc.Type()
	p.board[sq] = pc
	if pt == King {
		p.sides[c].King = sq
	} else {
		p.listIndex[sq] = p.sides[c].Pieces[pt].add(sq)
	}
	p.Hash ^= zobristPiece[c][pt][sq]

	p.spreadAttacks(sq, pc, 1)
	p.updateSliders(sq, pc, -1)
}

// removePiece clears sq and returns the piece that was there.
func (p *Position) removePiece(sq Square) Piece {
	pc := p.board[sq]
	c, pt := pc.Color(), pc.Type()

	p.spreadAttacks(sq, pc, -1)
	p.board[sq] = NoPiece
	p.updateSliders(sq, pc, 1)

	if pt != King {
		p.unlist(c, pt, sq)
	}
	p.Hash ^= zobristPiece[c][pt][sq]
	return pc
}

// replacePiece swaps the piece on an occupied square for pc. Occupancy
// does not change, so no slider ray needs updating.
func (p *Position) replacePiece(sq Square, pc Piece) Piece {
	old := p.board[sq]
	oc, opt := old.Color(), old.Type()
	p.spreadAttacks(sq, old, -1)
	if opt != King {
		p.unlist(oc, opt, sq)
	}
	p.Hash ^= zobristPiece[oc][opt][sq]

	c, pt := pc.Color(), pc.Type()
	p.board[sq] = pc
	if pt == King {
		p.sides[c].King = sq
	} else {
		p.listIndex[sq] = p.sides[c].Pieces[pt].add(sq)
	}
	p.Hash ^= zobristPiece[c][pt][sq]
	p.spreadAttacks(sq, pc, 1)
	return old
}

func (p *Position) unlist(c Color, pt PieceType, sq Square) {
	if moved, ok := p.sides[c].Pieces[pt].remove(p.listIndex[sq]); ok {
		p.listIndex[moved] = p.listIndex[sq]
	}
}

// spreadAttacks adds delta to every square pc attacks from sq.
func (p *Position) spreadAttacks(sq Square, pc Piece, delta int8) {
	c, pt := pc.Color(), pc.Type()
	side := &p.sides[c]

	var targets *jumpList
	switch pt {
	case Pawn:
		targets = &pawnCaptureTargets[c][sq]
	case Knight:
		targets = &knightTargets[sq]
	case King:
		targets = &kingTargets[sq]
	default:
		for _, d := range slidingDirections(pt) {
			p.extendRay(sq, d, pc, delta)
		}
		return
	}

	for _, to := range targets.Squares() {
		side.Attacks[to] += delta
		side.PieceAttacks[pt][to] += delta
	}
}

// extendRay adds delta for slider pc along direction d, starting on the
// square after sq.
func (p *Position) extendRay(sq Square, d Direction, pc Piece, delta int8) {
	c, pt := pc.Color(), pc.Type()
	side := &p.sides[c]
	enemyKing := NewPiece(King, c.Other())
	step := directionOffsets[d]

	to := int(sq)
	for n := numSquaresToEdge[sq][d]; n > 0; n-- {
		to += step
		side.Attacks[to] += delta
		side.PieceAttacks[pt][to] += delta
		if q := p.board[to]; q != NoPiece && q != enemyKing {
			return
		}
	}
}

// updateSliders adjusts the rays of sliders that reach sq after the
// occupancy of sq changed. delta is -1 when sq became occupied by pc and
// +1 when pc left it.
func (p *Position) updateSliders(sq Square, pc Piece, delta int8) {
	if p.sides[White].Attacks[sq] == 0 && p.sides[Black].Attacks[sq] == 0 {
		return
	}

	for d := North; d <= SouthWest; d++ {
		s := p.firstOccupied(sq, d)
		if s == NoSquare {
			continue
		}
		x := p.board[s]
		back := d.Opposite()

		if x.Type() == King {
			// A slider behind a king sees through it when the king is its enemy.
			s2 := p.firstOccupied(s, d)
			if s2 == NoSquare {
				continue
			}
			if y := p.board[s2]; y.Color() != x.Color() && y.SlidesAlong(d) {
				p.extendRay(sq, back, y, delta)
			}
			continue
		}

		if !x.SlidesAlong(d) {
			continue
		}
		if pc.Type() == King && pc.Color() != x.Color() {
			continue
		}
		p.extendRay(sq, back, x, delta)
	}
}

// firstOccupied returns the first occupied square after sq in
// direction d, or NoSquare.
func (p *Position) firstOccupied(sq Square, d Direction) Square {
	step := directionOffsets[d]
	to := int(sq)
	for n := numSquaresToEdge[sq][d]; n > 0; n-- {
		to += step
		if p.board[to] != NoPiece {
			return Square(to)
		}
	}
	return NoSquare
}

// IsSquareAttacked returns true if byColor attacks sq.
func (p *Position) IsSquareAttacked(sq Square, byColor Color) bool {
	return p.sides[byColor].Attacks[sq] > 0
}
