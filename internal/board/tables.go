package board

import "sync"

// Direction indexes one of the eight ray directions.
// Orthogonal directions come first so rooks use 0-3 and bishops 4-7.
type Direction uint8

const (
	North Direction = iota
	South
	East
	West
	NorthWest
	SouthEast
	NorthEast
	SouthWest
)

// IsOrthogonal reports whether d runs along a rank or file.
func (d Direction) IsOrthogonal() bool {
	return d < NorthWest
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	return oppositeDirection[d]
}

var (
	directionOffsets  = [8]int{8, -8, 1, -1, 7, -7, 9, -9}
	oppositeDirection = [8]Direction{South, North, West, East, SouthEast, NorthWest, SouthWest, NorthEast}

	rookDirections   = []Direction{North, South, East, West}
	bishopDirections = []Direction{NorthWest, SouthEast, NorthEast, SouthWest}
	queenDirections  = []Direction{North, South, East, West, NorthWest, SouthEast, NorthEast, SouthWest}
)

// jumpList holds the fixed destinations of a leaper from one square.
type jumpList struct {
	squares [8]Square
	n       uint8
}

func (j *jumpList) add(sq Square) {
	j.squares[j.n] = sq
	j.n++
}

// Squares returns the destinations.
func (j *jumpList) Squares() []Square {
	return j.squares[:j.n]
}

var (
	numSquaresToEdge [64][8]uint8
	knightTargets    [64]jumpList
	kingTargets      [64]jumpList

	// pawnCaptureTargets[c][sq] lists the squares a pawn of color c on sq attacks.
	pawnCaptureTargets [2][64]jumpList

	tablesOnce sync.Once
)

func init() {
	InitTables()
}

// InitTables computes the geometry tables. Repeated calls are no-ops.
func InitTables() {
	tablesOnce.Do(computeTables)
}

func computeTables() {
	knightJumps := [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}

	for sq := A1; sq <= H8; sq++ {
		file, rank := sq.File(), sq.Rank()
		north, south := 7-rank, rank
		east, west := 7-file, file

		numSquaresToEdge[sq] = [8]uint8{
			uint8(north),
			uint8(south),
			uint8(east),
			uint8(west),
			uint8(min(north, west)),
			uint8(min(south, east)),
			uint8(min(north, east)),
			uint8(min(south, west)),
		}

		for _, j := range knightJumps {
			f, r := file+j[0], rank+j[1]
			if f >= 0 && f < 8 && r >= 0 && r < 8 {
				knightTargets[sq].add(NewSquare(f, r))
			}
		}

		for d := North; d <= SouthWest; d++ {
			if numSquaresToEdge[sq][d] > 0 {
				kingTargets[sq].add(sq.Offset(d, 1))
			}
		}

		for _, d := range [2]Direction{NorthWest, NorthEast} {
			if numSquaresToEdge[sq][d] > 0 {
				pawnCaptureTargets[White][sq].add(sq.Offset(d, 1))
			}
		}
		for _, d := range [2]Direction{SouthEast, SouthWest} {
			if numSquaresToEdge[sq][d] > 0 {
				pawnCaptureTargets[Black][sq].add(sq.Offset(d, 1))
			}
		}
	}
}

// KnightTargets returns the squares a knight on sq attacks.
func KnightTargets(sq Square) []Square {
	return knightTargets[sq].Squares()
}

// KingTargets returns the squares a king on sq attacks.
func KingTargets(sq Square) []Square {
	return kingTargets[sq].Squares()
}

// PawnCaptureTargets returns the squares a pawn of color c on sq attacks.
func PawnCaptureTargets(c Color, sq Square) []Square {
	return pawnCaptureTargets[c][sq].Squares()
}

func slidingDirections(pt PieceType) []Direction {
	switch pt {
	case Bishop:
		return bishopDirections
	case Rook:
		return rookDirections
	case Queen:
		return queenDirections
	default:
		return nil
	}
}
