package engine

import "github.com/hailam/rizzi/internal/board"

// EvalEntry stores a cached static evaluation.
type EvalEntry struct {
	Key   uint64
	Score int16
	valid bool
}

// EvalCache is a direct-mapped cache of static evaluations keyed by the
// position hash. Quiescence revisits the same leaves often enough that a
// small table pays for itself.
type EvalCache struct {
	entries []EvalEntry
	mask    uint64
}

// NewEvalCache creates a new evaluation cache with the given size in MB.
func NewEvalCache(sizeMB int) *EvalCache {
	entrySize := 16
	numEntries := (sizeMB * 1024 * 1024) / entrySize

	// Round down to power of 2
	size := 1
	for size*2 <= numEntries {
		size *= 2
	}

	return &EvalCache{
		entries: make([]EvalEntry, size),
		mask:    uint64(size - 1),
	}
}

// Probe returns the cached score for key.
func (ec *EvalCache) Probe(key uint64) (int, bool) {
	entry := &ec.entries[key&ec.mask]
	if entry.valid && entry.Key == key {
		return int(entry.Score), true
	}
	return 0, false
}

// Store saves a score for key, replacing whatever shared its slot.
func (ec *EvalCache) Store(key uint64, score int) {
	ec.entries[key&ec.mask] = EvalEntry{Key: key, Score: int16(score), valid: true}
}

// Clear clears the evaluation cache.
func (ec *EvalCache) Clear() {
	clear(ec.entries)
}

// cachedEvaluator wraps an Evaluator with an EvalCache.
type cachedEvaluator struct {
	eval  Evaluator
	cache *EvalCache
}

func (c cachedEvaluator) Evaluate(pos *board.Position) int {
	if score, ok := c.cache.Probe(pos.Hash); ok {
		return score
	}
	score := c.eval.Evaluate(pos)
	c.cache.Store(pos.Hash, score)
	return score
}
