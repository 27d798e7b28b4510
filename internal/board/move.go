package board

import (
	"errors"
	"fmt"
)

// ErrInvalidMove is returned for move text that does not parse.
var ErrInvalidMove = errors.New("invalid move")

// ErrIllegalMove is returned for a well-formed move that is not legal in the position.
var ErrIllegalMove = errors.New("illegal move")

// Move encodes a chess move in 16 bits:
// bits 0-5:   from square (0-63)
// bits 6-11:  to square (0-63)
// bits 12-15: flag
type Move uint16

// Move flags. The four promotion flags are contiguous and ordered like
// the piece types so the promoted type can be read off the flag.
const (
	FlagNormal          uint16 = 0
	FlagDoublePush      uint16 = 1
	FlagEnPassant       uint16 = 2
	FlagCastling        uint16 = 3
	FlagPromoteKnight   uint16 = 4
	FlagPromoteBishop   uint16 = 5
	FlagPromoteRook     uint16 = 6
	FlagPromoteQueen    uint16 = 7
	flagPromotionOffset        = FlagPromoteKnight - uint16(Knight)
)

// NoMove represents an invalid or null move.
const NoMove Move = 0

func newMove(from, to Square, flag uint16) Move {
	return Move(from) | Move(to)<<6 | Move(flag)<<12
}

// NewMove creates a normal move (quiet move or capture).
func NewMove(from, to Square) Move {
	return newMove(from, to, FlagNormal)
}

// NewDoublePush creates a two-square pawn advance.
func NewDoublePush(from, to Square) Move {
	return newMove(from, to, FlagDoublePush)
}

// NewPromotion creates a promotion move.
func NewPromotion(from, to Square, promo PieceType) Move {
	return newMove(from, to, uint16(promo)+flagPromotionOffset)
}

// NewEnPassant creates an en passant capture move.
func NewEnPassant(from, to Square) Move {
	return newMove(from, to, FlagEnPassant)
}

// NewCastling creates a castling move (king's movement).
func NewCastling(from, to Square) Move {
	return newMove(from, to, FlagCastling)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Flag returns the move flag.
func (m Move) Flag() uint16 {
	return uint16(m) >> 12
}

// Promotion returns the promotion piece type, or NoPieceType.
func (m Move) Promotion() PieceType {
	if !m.IsPromotion() {
		return NoPieceType
	}
	return PieceType(m.Flag() - flagPromotionOffset)
}

// IsPromotion returns true if this is a promotion move.
func (m Move) IsPromotion() bool {
	return m.Flag() >= FlagPromoteKnight
}

// IsCastling returns true if this is a castling move.
func (m Move) IsCastling() bool {
	return m.Flag() == FlagCastling
}

// IsKingsideCastle reports whether a castling move lands on the g-file.
func (m Move) IsKingsideCastle() bool {
	return m.IsCastling() && m.To().File() == 6
}

// IsEnPassant returns true if this is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Flag() == FlagEnPassant
}

// IsDoublePush returns true for a two-square pawn advance.
func (m Move) IsDoublePush() bool {
	return m.Flag() == FlagDoublePush
}

// IsCapture returns true if this move captures a piece.
func (m Move) IsCapture(pos *Position) bool {
	if m.IsEnPassant() {
		return true
	}
	return !m.IsCastling() && !pos.IsEmpty(m.To())
}

// String returns the coordinate form of the move (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}

	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// ParseMove parses coordinate move text against pos. The flag for double
// pushes, en passant and castling is recovered from the moving piece and
// the current en passant target since the text alone is ambiguous.
// The move is not checked for legality; see Position.ParseLegalMove.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %q: %v", ErrInvalidMove, s, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %q: %v", ErrInvalidMove, s, err)
	}

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("%w: invalid promotion piece %q", ErrInvalidMove, s[4])
		}
		return NewPromotion(from, to, promo), nil
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("%w: no piece at %s", ErrInvalidMove, from)
	}

	switch piece.Type() {
	case King:
		if abs(to.File()-from.File()) == 2 {
			return NewCastling(from, to), nil
		}
	case Pawn:
		if abs(to.Rank()-from.Rank()) == 2 {
			return NewDoublePush(from, to), nil
		}
		if to == pos.EnPassant && to.File() != from.File() {
			return NewEnPassant(from, to), nil
		}
	}

	return NewMove(from, to), nil
}

// ParseLegalMove parses move text and checks it against the legal moves.
func (p *Position) ParseLegalMove(s string) (Move, error) {
	m, err := ParseMove(s, p)
	if err != nil {
		return NoMove, err
	}
	var ml MoveList
	p.GenerateLegalMovesInto(&ml)
	if !ml.Contains(m) {
		return NoMove, fmt.Errorf("%w: %s in %s", ErrIllegalMove, s, p.ToFEN())
	}
	return m, nil
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// MoveList is a fixed-size list of moves to avoid allocations.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add adds a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Swap swaps two moves in the list.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear clears the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains returns true if the list contains the move.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the moves as a slice.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}
