package board

// Legal move generation.
//
// Moves are generated legal by construction. The number of enemy
// attackers on our king comes straight from the attack counts; one scan
// outward from the king finds pinned pieces and the checking ray. Every
// non-king move is then filtered through a destination mask: the check
// evasion set, intersected with the pin ray of the moving piece.

// pinSet records pinned pieces and the ray each may still move along.
type pinSet struct {
	squares [8]Square
	rays    [8]Bitboard
	n       int
}

func (ps *pinSet) add(sq Square, ray Bitboard) {
	ps.squares[ps.n] = sq
	ps.rays[ps.n] = ray
	ps.n++
}

// ray returns the squares the piece on sq may move to without exposing
// its king, Universe if it is not pinned.
func (ps *pinSet) ray(sq Square) Bitboard {
	for i := 0; i < ps.n; i++ {
		if ps.squares[i] == sq {
			return ps.rays[i]
		}
	}
	return Universe
}

// GenerateLegalMoves returns all legal moves for the side to move.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := &MoveList{}
	p.generate(ml, false)
	return ml
}

// GenerateLegalMovesInto fills ml with the legal moves, reusing its storage.
func (p *Position) GenerateLegalMovesInto(ml *MoveList) {
	ml.Clear()
	p.generate(ml, false)
}

// GenerateCapturesInto fills ml with the legal captures, en passant included.
func (p *Position) GenerateCapturesInto(ml *MoveList) {
	ml.Clear()
	p.generate(ml, true)
}

// HasLegalMoves returns true if the side to move has at least one legal move.
func (p *Position) HasLegalMoves() bool {
	var ml MoveList
	p.generate(&ml, false)
	return ml.Len() > 0
}

func (p *Position) generate(ml *MoveList, capturesOnly bool) {
	us := p.SideToMove
	them := us.Other()
	king := p.sides[us].King
	checkers := p.sides[them].Attacks[king]

	p.generateKingMoves(ml, us, capturesOnly)
	if checkers >= 2 {
		return
	}

	var pins pinSet
	defend := p.scanFromKing(us, &pins)
	if checkers == 1 && defend == Universe {
		defend = p.leaperChecker(us)
	}
	if checkers == 0 && !capturesOnly {
		p.generateCastlingMoves(ml, us)
	}

	targets := defend
	if capturesOnly {
		targets &= p.occupancy(them)
	}

	own := &p.sides[us]
	for _, from := range own.Pieces[Knight].Squares() {
		mask := targets & pins.ray(from)
		if mask == Empty {
			continue
		}
		for _, to := range knightTargets[from].Squares() {
			if mask.IsSet(to) && p.board[to].Color() != us {
				ml.Add(NewMove(from, to))
			}
		}
	}

	for pt := Bishop; pt <= Queen; pt++ {
		for _, from := range own.Pieces[pt].Squares() {
			mask := targets & pins.ray(from)
			if mask == Empty {
				continue
			}
			p.generateSliderMoves(ml, from, pt, mask)
		}
	}

	p.generatePawnMoves(ml, us, defend, &pins, capturesOnly)
}

// scanFromKing walks every ray out of our king. An own piece followed by
// an enemy slider moving along that ray is pinned; an enemy slider seen
// first is giving check and its ray, itself included, is returned as the
// set of squares that resolve the check. Universe means no slider check.
func (p *Position) scanFromKing(us Color, pins *pinSet) Bitboard {
	king := p.sides[us].King
	check := Universe

	for d := North; d <= SouthWest; d++ {
		var ray Bitboard
		blocker := NoSquare
		step := directionOffsets[d]
		sq := int(king)

		for n := numSquaresToEdge[king][d]; n > 0; n-- {
			sq += step
			ray |= SquareBB(Square(sq))
			pc := p.board[sq]
			if pc == NoPiece {
				continue
			}
			if pc.Color() == us {
				if blocker != NoSquare {
					break
				}
				blocker = Square(sq)
				continue
			}
			if pc.SlidesAlong(d) {
				if blocker == NoSquare {
					check = ray
				} else {
					pins.add(blocker, ray)
				}
			}
			break
		}
	}
	return check
}

// leaperChecker returns the square of the knight or pawn giving check.
func (p *Position) leaperChecker(us Color) Bitboard {
	them := us.Other()
	king := p.sides[us].King
	for _, sq := range knightTargets[king].Squares() {
		if p.board[sq] == NewPiece(Knight, them) {
			return SquareBB(sq)
		}
	}
	// An enemy pawn attacks our king from the squares our own pawn on
	// the king square would attack.
	for _, sq := range pawnCaptureTargets[us][king].Squares() {
		if p.board[sq] == NewPiece(Pawn, them) {
			return SquareBB(sq)
		}
	}
	return Empty
}

func (p *Position) occupancy(c Color) Bitboard {
	side := &p.sides[c]
	bb := SquareBB(side.King)
	for pt := Pawn; pt < King; pt++ {
		for _, sq := range side.Pieces[pt].Squares() {
			bb |= SquareBB(sq)
		}
	}
	return bb
}

func (p *Position) generateKingMoves(ml *MoveList, us Color, capturesOnly bool) {
	enemy := &p.sides[us.Other()]
	from := p.sides[us].King
	for _, to := range kingTargets[from].Squares() {
		pc := p.board[to]
		if pc != NoPiece && pc.Color() == us {
			continue
		}
		if capturesOnly && pc == NoPiece {
			continue
		}
		if enemy.Attacks[to] == 0 {
			ml.Add(NewMove(from, to))
		}
	}
}

type castleRule struct {
	right    CastlingRights
	king     Square
	to       Square
	rook     Square
	empty    []Square
	unsafe   []Square
	rookType Piece
}

var castleRules = [2][2]castleRule{
	White: {
		{WhiteKingSideCastle, E1, G1, H1, []Square{F1, G1}, []Square{E1, F1, G1}, WhiteRook},
		{WhiteQueenSideCastle, E1, C1, A1, []Square{B1, C1, D1}, []Square{C1, D1, E1}, WhiteRook},
	},
	Black: {
		{BlackKingSideCastle, E8, G8, H8, []Square{F8, G8}, []Square{E8, F8, G8}, BlackRook},
		{BlackQueenSideCastle, E8, C8, A8, []Square{B8, C8, D8}, []Square{C8, D8, E8}, BlackRook},
	},
}

func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	for i := range castleRules[us] {
		rule := &castleRules[us][i]
		if p.CastlingRights&rule.right == 0 || p.sides[us].King != rule.king || p.board[rule.rook] != rule.rookType {
			continue
		}
		if p.castlePathClear(rule, us.Other()) {
			ml.Add(NewCastling(rule.king, rule.to))
		}
	}
}

// castlePathClear checks that the squares between king and rook are empty
// and that the king neither starts, passes nor lands on an attacked square.
func (p *Position) castlePathClear(rule *castleRule, them Color) bool {
	for _, sq := range rule.empty {
		if p.board[sq] != NoPiece {
			return false
		}
	}
	for _, sq := range rule.unsafe {
		if p.sides[them].Attacks[sq] != 0 {
			return false
		}
	}
	return true
}

func (p *Position) generateSliderMoves(ml *MoveList, from Square, pt PieceType, mask Bitboard) {
	us := p.board[from].Color()
	for _, d := range slidingDirections(pt) {
		step := directionOffsets[d]
		to := int(from)
		for n := numSquaresToEdge[from][d]; n > 0; n-- {
			to += step
			pc := p.board[to]
			if pc != NoPiece && pc.Color() == us {
				break
			}
			if mask.IsSet(Square(to)) {
				ml.Add(NewMove(from, Square(to)))
			}
			if pc != NoPiece {
				break
			}
		}
	}
}

func (p *Position) generatePawnMoves(ml *MoveList, us Color, defend Bitboard, pins *pinSet, capturesOnly bool) {
	them := us.Other()
	push := pawnPush(us)
	startRank, lastRank := 1, 7
	if us == Black {
		startRank, lastRank = 6, 0
	}

	for _, from := range p.sides[us].Pieces[Pawn].Squares() {
		mask := defend & pins.ray(from)
		if mask == Empty {
			continue
		}

		if !capturesOnly {
			one := Square(int(from) + push)
			if p.board[one] == NoPiece {
				if mask.IsSet(one) {
					addPawnMove(ml, from, one, lastRank)
				}
				if from.Rank() == startRank {
					two := Square(int(one) + push)
					if p.board[two] == NoPiece && mask.IsSet(two) {
						ml.Add(NewDoublePush(from, two))
					}
				}
			}
		}

		for _, to := range pawnCaptureTargets[us][from].Squares() {
			if p.board[to].Color() == them && mask.IsSet(to) {
				addPawnMove(ml, from, to, lastRank)
			}
		}
	}

	ep := p.EnPassant
	if ep == NoSquare {
		return
	}
	captured := Square(int(ep) - push)
	if p.board[captured] != NewPiece(Pawn, them) {
		return
	}
	// Our pawns that attack ep stand where an enemy pawn on ep would attack.
	for _, from := range pawnCaptureTargets[them][ep].Squares() {
		if p.board[from] != NewPiece(Pawn, us) {
			continue
		}
		if !pins.ray(from).IsSet(ep) {
			continue
		}
		if !defend.IsSet(ep) && !defend.IsSet(captured) {
			continue
		}
		if p.enPassantPinned(us, from, captured) {
			continue
		}
		ml.Add(NewEnPassant(from, ep))
	}
}

func addPawnMove(ml *MoveList, from, to Square, lastRank int) {
	if to.Rank() != lastRank {
		ml.Add(NewMove(from, to))
		return
	}
	for pt := Queen; pt >= Knight; pt-- {
		ml.Add(NewPromotion(from, to, pt))
	}
}

// enPassantPinned reports whether capturing en passant would expose our
// king along the rank. Both pawns leave the rank at once, so neither
// counts as a pinned piece in the king scan.
func (p *Position) enPassantPinned(us Color, from, captured Square) bool {
	king := p.sides[us].King
	if king.Rank() != from.Rank() {
		return false
	}
	d := East
	if from.File() < king.File() {
		d = West
	}

	step := directionOffsets[d]
	sq := int(king)
	for n := numSquaresToEdge[king][d]; n > 0; n-- {
		sq += step
		if Square(sq) == from || Square(sq) == captured {
			continue
		}
		pc := p.board[sq]
		if pc == NoPiece {
			continue
		}
		return pc.Color() != us && (pc.Type() == Rook || pc.Type() == Queen)
	}
	return false
}
