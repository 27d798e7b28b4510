package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrInvalidFEN wraps every FEN parse failure.
var ErrInvalidFEN = errors.New("invalid FEN")

// ParseFEN parses a FEN string and returns a Position. The half-move clock
// and full-move number are optional and default to 0 and 1.
//
// Attack counts are built by placing the pieces one at a time through the
// same routine MakeMove uses.
func ParseFEN(fen string) (*Position, error) {
	pos, err := parseFEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFEN, err)
	}
	return pos, nil
}

// MustParseFEN is ParseFEN for known-good constants; it panics on error.
func MustParseFEN(fen string) *Position {
	pos, err := ParseFEN(fen)
	if err != nil {
		panic(err)
	}
	return pos
}

func parseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 || len(parts) > 6 {
		return nil, fmt.Errorf("need 4 to 6 fields, got %d", len(parts))
	}

	pos := newEmptyPosition()

	// Parse piece placement (field 0)
	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}
	for c := White; c <= Black; c++ {
		if pos.sides[c].King == NoSquare {
			return nil, fmt.Errorf("no %s king", c)
		}
	}

	// Parse side to move (field 1)
	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("invalid side to move: %s", parts[1])
	}

	// Parse castling rights (field 2)
	if err := parseCastlingRights(pos, parts[2]); err != nil {
		return nil, err
	}

	us, them := pos.SideToMove, pos.SideToMove.Other()
	if pos.sides[us].Attacks[pos.sides[them].King] > 0 {
		return nil, fmt.Errorf("%s king is in check with %s to move", them, us)
	}

	// Parse en passant square (field 3)
	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square: %s", parts[3])
		}
		if err := checkEnPassant(pos, sq); err != nil {
			return nil, err
		}
		pos.EnPassant = sq
	}

	// Parse half-move clock (field 4, optional)
	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil || hmc < 0 {
			return nil, fmt.Errorf("invalid half-move clock: %s", parts[4])
		}
		pos.HalfMoveClock = hmc
	}

	// Parse full-move number (field 5, optional)
	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil || fmn < 1 {
			return nil, fmt.Errorf("invalid full-move number: %s", parts[5])
		}
		pos.FullMoveNumber = fmn
	}

	pos.Hash = pos.ComputeHash()
	return pos, nil
}

// checkEnPassant rejects an en passant square that no double push by the
// opponent could have produced: wrong rank, no pushed pawn, occupied
// squares behind it, or a side to move that would have been in check
// before the push.
func checkEnPassant(pos *Position, ep Square) error {
	us, them := pos.SideToMove, pos.SideToMove.Other()
	rank, dir := 5, 1
	if us == Black {
		rank, dir = 2, -1
	}
	if ep.Rank() != rank {
		return fmt.Errorf("invalid en passant square %s with %s to move", ep, us)
	}

	pawn := NewPiece(Pawn, them)
	pushed := NewSquare(ep.File(), rank-dir)
	origin := NewSquare(ep.File(), rank+dir)
	if pos.board[pushed] != pawn || pos.board[ep] != NoPiece || pos.board[origin] != NoPiece {
		return fmt.Errorf("en passant square %s without a double-pushed pawn", ep)
	}

	before := pos.Clone()
	before.removePiece(pushed)
	before.addPiece(origin, pawn)
	if before.sides[them].Attacks[before.sides[us].King] > 0 {
		return fmt.Errorf("en passant square %s: %s was in check before the push", ep, us)
	}
	return nil
}

// parsePiecePlacement parses the piece placement section of a FEN string.
func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid piece placement: need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i // FEN starts from rank 8
		file := 0

		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("too many squares in rank %d", rank+1)
			}

			if c >= '1' && c <= '8' {
				// Skip empty squares
				file += int(c - '0')
				if file > 8 {
					return fmt.Errorf("too many squares in rank %d", rank+1)
				}
			} else {
				// Place a piece
				piece := PieceFromChar(byte(c))
				if piece == NoPiece {
					return fmt.Errorf("invalid piece character: %c", c)
				}
				if piece.Type() == Pawn && (rank == 0 || rank == 7) {
					return fmt.Errorf("pawn on rank %d", rank+1)
				}
				if piece.Type() == King && pos.sides[piece.Color()].King != NoSquare {
					return fmt.Errorf("more than one %s king", piece.Color())
				}
				if piece.Type() != King && pos.sides[piece.Color()].Pieces[piece.Type()].Len() == 10 {
					return fmt.Errorf("too many %s %ss", piece.Color(), piece.Type())
				}
				pos.addPiece(NewSquare(file, rank), piece)
				file++
			}
		}

		if file != 8 {
			return fmt.Errorf("invalid number of squares in rank %d: got %d", rank+1, file)
		}
	}

	return nil
}

// parseCastlingRights parses the castling rights section of a FEN string.
func parseCastlingRights(pos *Position, castling string) error {
	if castling == "-" {
		pos.CastlingRights = NoCastling
		return nil
	}

	for _, c := range castling {
		switch c {
		case 'K':
			pos.CastlingRights |= WhiteKingSideCastle
		case 'Q':
			pos.CastlingRights |= WhiteQueenSideCastle
		case 'k':
			pos.CastlingRights |= BlackKingSideCastle
		case 'q':
			pos.CastlingRights |= BlackQueenSideCastle
		default:
			return fmt.Errorf("invalid castling character: %c", c)
		}
	}

	return nil
}

// ToFEN returns the FEN representation of the position.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	// Piece placement
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			sq := NewSquare(file, rank)
			piece := p.PieceAt(sq)
			if piece == NoPiece {
				empty++
			} else {
				if empty > 0 {
					sb.WriteString(strconv.Itoa(empty))
					empty = 0
				}
				sb.WriteString(piece.String())
			}
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	// Side to move
	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	// Castling rights
	sb.WriteByte(' ')
	sb.WriteString(p.CastlingRights.String())

	// En passant
	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())

	// Half-move clock and full-move number
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))

	return sb.String()
}
