package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// MatchRecord is one finished game between two players.
type MatchRecord struct {
	White    string        `json:"white"`
	Black    string        `json:"black"`
	Result   string        `json:"result"` // "1-0", "0-1" or "1/2-1/2"
	Reason   string        `json:"reason"`
	Moves    []string      `json:"moves"`
	StartFEN string        `json:"start_fen"`
	Duration time.Duration `json:"duration"`
	PlayedAt time.Time     `json:"played_at"`
}

// RecordMatch appends a finished game to the match log. PlayedAt is set
// to now when zero.
func (s *Storage) RecordMatch(rec MatchRecord) error {
	if rec.PlayedAt.IsZero() {
		rec.PlayedAt = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		// Keys sort by time; the sequence suffix separates games finished
		// within the same nanosecond.
		key := matchKey(rec.PlayedAt, 0)
		for seq := 1; ; seq++ {
			if _, err := txn.Get(key); err != nil {
				break
			}
			key = matchKey(rec.PlayedAt, seq)
		}
		return txn.Set(key, data)
	})
}

// Matches returns every recorded game, oldest first.
func (s *Storage) Matches() ([]MatchRecord, error) {
	var out []MatchRecord

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixMatch)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec MatchRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})

	return out, err
}

func matchKey(t time.Time, seq int) []byte {
	return []byte(fmt.Sprintf("%s%020d-%04d", prefixMatch, t.UnixNano(), seq))
}

// PlayerStats aggregates recorded results for one player name.
type PlayerStats struct {
	GamesPlayed int
	Wins        int
	Losses      int
	Draws       int
}

// WinRate returns the win rate as a percentage.
func (s PlayerStats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed) * 100
}

// Stats summarises every recorded game that name took part in.
func (s *Storage) Stats(name string) (PlayerStats, error) {
	records, err := s.Matches()
	if err != nil {
		return PlayerStats{}, err
	}

	var stats PlayerStats
	for _, rec := range records {
		var won, lost bool
		switch name {
		case rec.White:
			won, lost = rec.Result == "1-0", rec.Result == "0-1"
		case rec.Black:
			won, lost = rec.Result == "0-1", rec.Result == "1-0"
		default:
			continue
		}
		stats.GamesPlayed++
		switch {
		case won:
			stats.Wins++
		case lost:
			stats.Losses++
		default:
			stats.Draws++
		}
	}
	return stats, nil
}
