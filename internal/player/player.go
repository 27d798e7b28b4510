// Package player defines move-choosing players and runs games and
// matches between them.
package player

import (
	"context"
	"errors"
	"math/rand"

	"github.com/hailam/rizzi/internal/board"
	"github.com/hailam/rizzi/internal/engine"
)

// ErrNoMoves is returned by a player asked to move in a finished position.
var ErrNoMoves = errors.New("no legal moves")

// Player chooses moves. BestMove must leave pos unchanged.
type Player interface {
	Name() string
	BestMove(ctx context.Context, pos *board.Position) (board.Move, error)
}

// EnginePlayer plays the engine's best move under fixed search limits.
type EnginePlayer struct {
	name   string
	engine *engine.Engine
	limits engine.SearchLimits
}

// NewEnginePlayer returns a player searching with eng under limits.
func NewEnginePlayer(name string, eng *engine.Engine, limits engine.SearchLimits) *EnginePlayer {
	return &EnginePlayer{name: name, engine: eng, limits: limits}
}

func (p *EnginePlayer) Name() string { return p.name }

// BestMove searches a copy of pos. A cancelled context still yields the
// best move found before cancellation.
func (p *EnginePlayer) BestMove(ctx context.Context, pos *board.Position) (board.Move, error) {
	res := p.engine.Search(ctx, pos.Clone(), p.limits)
	if res.BestMove == board.NoMove {
		return board.NoMove, ErrNoMoves
	}
	return res.BestMove, nil
}

// NewGame clears the engine's tables between games.
func (p *EnginePlayer) NewGame() {
	p.engine.Clear()
}

// RandomPlayer picks a uniformly random legal move.
type RandomPlayer struct {
	rng *rand.Rand
}

// NewRandomPlayer returns a random player; equal seeds replay equal games.
func NewRandomPlayer(seed int64) *RandomPlayer {
	return &RandomPlayer{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomPlayer) Name() string { return "Random Player" }

func (p *RandomPlayer) BestMove(ctx context.Context, pos *board.Position) (board.Move, error) {
	if err := ctx.Err(); err != nil {
		return board.NoMove, err
	}
	moves := pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		return board.NoMove, ErrNoMoves
	}
	return moves.Get(p.rng.Intn(moves.Len())), nil
}
