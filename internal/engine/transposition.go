package engine

import (
	"github.com/hailam/rizzi/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTNone       TTFlag = iota // Empty slot
	TTExact                    // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// String returns the bound name.
func (f TTFlag) String() string {
	switch f {
	case TTExact:
		return "exact"
	case TTLowerBound:
		return "lower"
	case TTUpperBound:
		return "upper"
	default:
		return "none"
	}
}

// TTEntry represents an entry in the transposition table.
type TTEntry struct {
	Key      uint64     // Full 64-bit Zobrist hash for verification
	BestMove board.Move // Best move found
	Score    int16      // Score (bounded by flag)
	Depth    int8       // Search depth
	Flag     TTFlag     // Type of bound
}

// ttEntrySize is the in-memory size of a TTEntry in bytes.
const ttEntrySize = 16

// TTStats counts table activity since the last Clear.
type TTStats struct {
	Probes     uint64
	Hits       uint64
	Stores     uint64
	Overwrites uint64 // stores that evicted a different position
	Occupied   uint64 // slots holding an entry
}

// TranspositionTable is a fixed-size table of search results indexed by
// hash modulo capacity. A store always replaces the slot's previous
// entry. It is owned by a single search at a time.
type TranspositionTable struct {
	entries []TTEntry
	size    uint64
	stats   TTStats
}

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	numEntries := max(uint64(sizeMB)*1024*1024/ttEntrySize, 1)
	return &TranspositionTable{
		entries: make([]TTEntry, numEntries),
		size:    numEntries,
	}
}

// Probe looks up a position in the transposition table.
// Returns the entry and true if found, otherwise returns empty entry and false.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	tt.stats.Probes++

	entry := tt.entries[hash%tt.size]
	if entry.Flag != TTNone && entry.Key == hash {
		tt.stats.Hits++
		return entry, true
	}
	return TTEntry{}, false
}

// Store saves a search result, overwriting the slot unconditionally.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int, flag TTFlag, bestMove board.Move) {
	entry := &tt.entries[hash%tt.size]

	tt.stats.Stores++
	switch {
	case entry.Flag == TTNone:
		tt.stats.Occupied++
	case entry.Key != hash:
		tt.stats.Overwrites++
	}

	*entry = TTEntry{
		Key:      hash,
		BestMove: bestMove,
		Score:    int16(score),
		Depth:    int8(depth),
		Flag:     flag,
	}
}

// Clear clears the transposition table.
func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
	tt.stats = TTStats{}
}

// HashFull returns the permille (parts per thousand) of the table that is used.
func (tt *TranspositionTable) HashFull() int {
	// Sample first 1000 entries
	sampleSize := min(uint64(1000), tt.size)
	used := 0
	for i := uint64(0); i < sampleSize; i++ {
		if tt.entries[i].Flag != TTNone {
			used++
		}
	}
	return used * 1000 / int(sampleSize)
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.stats.Probes == 0 {
		return 0
	}
	return float64(tt.stats.Hits) / float64(tt.stats.Probes) * 100
}

// Stats returns the activity counters.
func (tt *TranspositionTable) Stats() TTStats {
	return tt.stats
}

// Size returns the number of entries in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.size
}

// Entries returns a copy of every occupied slot, for persistence.
func (tt *TranspositionTable) Entries() []TTEntry {
	out := make([]TTEntry, 0, tt.stats.Occupied)
	for _, e := range tt.entries {
		if e.Flag != TTNone {
			out = append(out, e)
		}
	}
	return out
}

// Load stores previously saved entries. Entries whose slots collide
// overwrite each other as with Store.
func (tt *TranspositionTable) Load(entries []TTEntry) {
	for _, e := range entries {
		if e.Flag == TTNone {
			continue
		}
		tt.Store(e.Key, int(e.Depth), int(e.Score), e.Flag, e.BestMove)
	}
}

// AdjustScoreFromTT converts a stored mate score, which counts plies
// from the stored node, into one counted from the root.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT adjusts a score for storage in the transposition table.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
