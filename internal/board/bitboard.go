package board

// Bitboard is a 64-bit square set. Bit 0 = A1, Bit 63 = H8.
// The board itself is a mailbox; bitboards only describe square sets such
// as the destinations a pinned piece or a check evasion may use.
type Bitboard uint64

const (
	Empty    Bitboard = 0
	Universe Bitboard = 0xFFFFFFFFFFFFFFFF
)

// SquareBB returns a bitboard with only the given square set.
func SquareBB(sq Square) Bitboard {
	return 1 << sq
}

// IsSet returns true if the bit at the given square is set.
func (b Bitboard) IsSet(sq Square) bool {
	return b&(1<<sq) != 0
}
