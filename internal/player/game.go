package player

import (
	"context"
	"fmt"
	"time"

	"github.com/hailam/rizzi/internal/board"
)

// Game is a finished (or abandoned) game.
type Game struct {
	White, Black string
	Start        *board.Position
	Final        *board.Position
	Moves        []board.Move
	Outcome      board.Outcome
	Reason       board.Reason
	Duration     time.Duration

	// Adjudicated is set when the ply limit ended the game before the
	// rules did. Outcome is then Ongoing.
	Adjudicated bool
}

// SAN returns the moves in standard algebraic notation.
func (g Game) SAN() []string {
	return board.MovesToSAN(g.Start, g.Moves)
}

// newGamer is implemented by players that keep per-game state.
type newGamer interface {
	NewGame()
}

// Play runs a game from pos until the rules end it or maxPlies moves have
// been played (0 means no limit). pos itself is not modified.
func Play(ctx context.Context, pos *board.Position, white, black Player, maxPlies int) (Game, error) {
	start := time.Now()
	p := pos.Clone()
	g := Game{
		White: white.Name(),
		Black: black.Name(),
		Start: pos.Clone(),
	}
	for _, pl := range []Player{white, black} {
		if ng, ok := pl.(newGamer); ok {
			ng.NewGame()
		}
	}

	for {
		if g.Outcome, g.Reason = p.Result(); g.Outcome != board.Ongoing {
			break
		}
		if maxPlies > 0 && len(g.Moves) >= maxPlies {
			g.Adjudicated = true
			break
		}

		mover := white
		if p.SideToMove == board.Black {
			mover = black
		}
		m, err := mover.BestMove(ctx, p)
		if err != nil {
			return g, fmt.Errorf("%s at ply %d: %w", mover.Name(), len(g.Moves), err)
		}
		if !p.GenerateLegalMoves().Contains(m) {
			return g, fmt.Errorf("%s played %s at ply %d: %w", mover.Name(), m, len(g.Moves), board.ErrIllegalMove)
		}
		p.MakeMove(m)
		g.Moves = append(g.Moves, m)

		if err := ctx.Err(); err != nil {
			return g, err
		}
	}

	g.Final = p
	g.Duration = time.Since(start)
	return g, nil
}
