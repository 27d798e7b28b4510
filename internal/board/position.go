package board

import (
	"fmt"
	"strings"
)

// CastlingRights represents the available castling options.
type CastlingRights uint8

const (
	WhiteKingSideCastle  CastlingRights = 1 << iota // K
	WhiteQueenSideCastle                            // Q
	BlackKingSideCastle                             // k
	BlackQueenSideCastle                            // q
	NoCastling           CastlingRights = 0
	AllCastling          CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle | BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling rights string.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	s := ""
	if cr&WhiteKingSideCastle != 0 {
		s += "K"
	}
	if cr&WhiteQueenSideCastle != 0 {
		s += "Q"
	}
	if cr&BlackKingSideCastle != 0 {
		s += "k"
	}
	if cr&BlackQueenSideCastle != 0 {
		s += "q"
	}
	return s
}

// CanCastle returns true if the given side can castle in the given direction.
func (cr CastlingRights) CanCastle(c Color, kingSide bool) bool {
	if c == White {
		if kingSide {
			return cr&WhiteKingSideCastle != 0
		}
		return cr&WhiteQueenSideCastle != 0
	}
	if kingSide {
		return cr&BlackKingSideCastle != 0
	}
	return cr&BlackQueenSideCastle != 0
}

// castlingLoss[sq] is the set of rights lost when a move touches sq.
var castlingLoss = func() (loss [64]CastlingRights) {
	loss[A1] = WhiteQueenSideCastle
	loss[H1] = WhiteKingSideCastle
	loss[E1] = WhiteKingSideCastle | WhiteQueenSideCastle
	loss[A8] = BlackQueenSideCastle
	loss[H8] = BlackKingSideCastle
	loss[E8] = BlackKingSideCastle | BlackQueenSideCastle
	return loss
}()

// PieceList is an unordered set of squares holding pieces of one type.
// Ten entries covers two originals plus eight promotions.
type PieceList struct {
	squares [10]Square
	count   uint8
}

// Len returns the number of pieces in the list.
func (l *PieceList) Len() int {
	return int(l.count)
}

// Squares returns the occupied squares. The slice aliases the list.
func (l *PieceList) Squares() []Square {
	return l.squares[:l.count]
}

func (l *PieceList) add(sq Square) uint8 {
	i := l.count
	l.squares[i] = sq
	l.count++
	return i
}

// remove deletes entry i by moving the last entry into its slot and
// returns the square that moved, if any.
func (l *PieceList) remove(i uint8) (moved Square, ok bool) {
	l.count--
	if i == l.count {
		return NoSquare, false
	}
	l.squares[i] = l.squares[l.count]
	return l.squares[i], true
}

// Side is the per-color part of a position.
type Side struct {
	King   Square
	Pieces [King]PieceList // Pawn..Queen

	// Attacks[sq] counts this side's pieces attacking sq.
	Attacks [64]int8
	// PieceAttacks[pt][sq] splits Attacks by attacker type.
	PieceAttacks [6][64]int8
}

// undoState is the irreversible part of a position saved by MakeMove.
type undoState struct {
	captured      PieceType
	enPassant     Square
	castling      CastlingRights
	halfMoveClock int
	hash          uint64
}

// Position represents a complete chess position.
//
// The board array, the piece lists and the attack counts are kept in
// agreement by the placement helpers in attacks.go; callers only ever
// change a position through MakeMove and UnmakeMove.
type Position struct {
	board [64]Piece
	sides [2]Side

	// listIndex[sq] is the index of sq within its piece list.
	listIndex [64]uint8

	// Game state
	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // Target square for en passant, NoSquare if none
	HalfMoveClock  int    // Moves since last pawn move or capture (for 50-move rule)
	FullMoveNumber int    // Full move counter, starts at 1

	// Zobrist hash for transposition table
	Hash uint64

	history []undoState
}

// NewPosition creates the starting position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

func newEmptyPosition() *Position {
	p := &Position{
		EnPassant:      NoSquare,
		FullMoveNumber: 1,
		history:        make([]undoState, 0, 64),
	}
	for sq := range p.board {
		p.board[sq] = NoPiece
	}
	p.sides[White].King = NoSquare
	p.sides[Black].King = NoSquare
	return p
}

// Clone returns a deep copy, including the move history used for
// repetition detection.
func (p *Position) Clone() *Position {
	c := *p
	c.history = make([]undoState, len(p.history), max(cap(p.history), 64))
	copy(c.history, p.history)
	return &c
}

// PieceAt returns the piece at the given square, or NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	return p.board[sq]
}

// IsEmpty returns true if the square is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.board[sq] == NoPiece
}

// KingSquare returns the square of c's king.
func (p *Position) KingSquare(c Color) Square {
	return p.sides[c].King
}

// Pieces returns the squares of c's pieces of type pt. The king is
// returned as a single-element slice.
func (p *Position) Pieces(c Color, pt PieceType) []Square {
	if pt == King {
		return []Square{p.sides[c].King}
	}
	return p.sides[c].Pieces[pt].Squares()
}

// PieceCount returns how many pieces of type pt color c has.
func (p *Position) PieceCount(c Color, pt PieceType) int {
	if pt == King {
		return 1
	}
	return p.sides[c].Pieces[pt].Len()
}

// Attackers returns how many of c's pieces attack sq.
func (p *Position) Attackers(c Color, sq Square) int {
	return int(p.sides[c].Attacks[sq])
}

// AttackersOfType returns how many of c's pieces of type pt attack sq.
func (p *Position) AttackersOfType(c Color, pt PieceType, sq Square) int {
	return int(p.sides[c].PieceAttacks[pt][sq])
}

// InCheck returns true if the side to move is in check.
func (p *Position) InCheck() bool {
	us := p.SideToMove
	return p.sides[us.Other()].Attacks[p.sides[us].King] > 0
}

// Ply returns the number of moves made since the position was built.
func (p *Position) Ply() int {
	return len(p.history)
}

// Material returns the material balance (positive favors white).
func (p *Position) Material() int {
	score := 0
	for pt := Pawn; pt < King; pt++ {
		score += PieceValue[pt] * (p.sides[White].Pieces[pt].Len() - p.sides[Black].Pieces[pt].Len())
	}
	return score
}

// NonPawnMaterial returns the value of c's knights, bishops, rooks and queens.
func (p *Position) NonPawnMaterial(c Color) int {
	total := 0
	for pt := Knight; pt < King; pt++ {
		total += PieceValue[pt] * p.sides[c].Pieces[pt].Len()
	}
	return total
}

// String returns a visual representation of the position.
func (p *Position) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d  ", rank+1)
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(piece.String() + " ")
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n   a b c d e f g h\n\n")
	fmt.Fprintf(&sb, "Fen: %s\n", p.ToFEN())
	fmt.Fprintf(&sb, "Side to move: %s\n", p.SideToMove)
	fmt.Fprintf(&sb, "Hash: %016x\n", p.Hash)
	return sb.String()
}

// Validate checks the position invariants: one king per side, piece
// lists that agree with the board, a hash equal to ComputeHash, and
// attack counts equal to a fresh replay of the piece placement.
func (p *Position) Validate() error {
	var kings [2]int
	for sq := A1; sq <= H8; sq++ {
		pc := p.board[sq]
		if pc == NoPiece {
			continue
		}
		c, pt := pc.Color(), pc.Type()
		if pt == King {
			kings[c]++
			if p.sides[c].King != sq {
				return fmt.Errorf("%s king on %s but recorded on %s", c, sq, p.sides[c].King)
			}
			continue
		}
		list := &p.sides[c].Pieces[pt]
		i := p.listIndex[sq]
		if int(i) >= list.Len() || list.squares[i] != sq {
			return fmt.Errorf("%s on %s missing from piece list", pc, sq)
		}
	}
	for c := White; c <= Black; c++ {
		if kings[c] != 1 {
			return fmt.Errorf("%s must have exactly one king, has %d", c, kings[c])
		}
		for pt := Pawn; pt < King; pt++ {
			for _, sq := range p.sides[c].Pieces[pt].Squares() {
				if p.board[sq] != NewPiece(pt, c) {
					return fmt.Errorf("piece list has %s %s on %s, board has %q", c, pt, sq, p.board[sq])
				}
			}
		}
	}
	if h := p.ComputeHash(); h != p.Hash {
		return fmt.Errorf("hash %016x, recomputed %016x", p.Hash, h)
	}

	fresh := newEmptyPosition()
	for sq := A1; sq <= H8; sq++ {
		if pc := p.board[sq]; pc != NoPiece {
			fresh.addPiece(sq, pc)
		}
	}
	for c := White; c <= Black; c++ {
		if fresh.sides[c].Attacks != p.sides[c].Attacks {
			return fmt.Errorf("%s attack counts out of sync", c)
		}
		if fresh.sides[c].PieceAttacks != p.sides[c].PieceAttacks {
			return fmt.Errorf("%s per-piece attack counts out of sync", c)
		}
	}
	return nil
}
