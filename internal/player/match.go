package player

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hailam/rizzi/internal/board"
)

// Tally counts match results from the first player's point of view.
type Tally struct {
	Wins   int
	Draws  int
	Losses int
}

// Games returns the number of games counted.
func (t Tally) Games() int {
	return t.Wins + t.Draws + t.Losses
}

// Score returns the first player's points, a draw counting half.
func (t Tally) Score() float64 {
	return float64(t.Wins) + float64(t.Draws)/2
}

// Match plays a series of games between A and B, alternating colours.
// A has White in even-numbered games.
type Match struct {
	A, B     Player
	Games    int
	MaxPlies int             // per game; 0 means no limit
	Start    *board.Position // nil means the standard start position

	// OnGame, when set, is called after every finished game.
	OnGame func(n int, g Game)

	Logger zerolog.Logger
}

// Run plays the match and returns the tally. Adjudicated games count as
// draws. On error the tally covers the games finished so far.
func (m *Match) Run(ctx context.Context) (Tally, error) {
	start := m.Start
	if start == nil {
		start = board.NewPosition()
	}

	var t Tally
	for n := 0; n < m.Games; n++ {
		white, black := m.A, m.B
		if n%2 == 1 {
			white, black = m.B, m.A
		}

		g, err := Play(ctx, start, white, black, m.MaxPlies)
		if err != nil {
			return t, err
		}

		switch g.Outcome {
		case board.WhiteWins:
			if white == m.A {
				t.Wins++
			} else {
				t.Losses++
			}
		case board.BlackWins:
			if black == m.A {
				t.Wins++
			} else {
				t.Losses++
			}
		default:
			t.Draws++
		}

		m.Logger.Info().
			Int("game", n+1).
			Str("white", g.White).
			Str("black", g.Black).
			Str("result", g.Outcome.String()).
			Str("reason", g.Reason.String()).
			Int("plies", len(g.Moves)).
			Bool("adjudicated", g.Adjudicated).
			Msg("game finished")

		if m.OnGame != nil {
			m.OnGame(n, g)
		}
	}
	return t, nil
}

// Compete plays games between a and b from the standard position,
// alternating colours, and returns a's results.
func Compete(ctx context.Context, a, b Player, games int) (Tally, error) {
	m := Match{A: a, B: b, Games: games, Logger: zerolog.Nop()}
	return m.Run(ctx)
}
