package storage

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/rizzi/internal/engine"
)

// ttChunkSize is the number of table entries gob-encoded per key.
const ttChunkSize = 4096

// SaveTT replaces the stored transposition table snapshot with entries.
func (s *Storage) SaveTT(entries []engine.TTEntry) error {
	if err := s.db.DropPrefix([]byte(prefixTT)); err != nil {
		return fmt.Errorf("drop old snapshot: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for n, start := 0, 0; start < len(entries); n, start = n+1, start+ttChunkSize {
		end := min(start+ttChunkSize, len(entries))

		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(entries[start:end]); err != nil {
			return fmt.Errorf("encode chunk %d: %w", n, err)
		}
		if err := wb.Set(ttChunkKey(n), buf.Bytes()); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// LoadTT returns the stored transposition table snapshot, or
// ErrNotFound if none was saved.
func (s *Storage) LoadTT() ([]engine.TTEntry, error) {
	var entries []engine.TTEntry
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixTT)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			found = true
			err := it.Item().Value(func(val []byte) error {
				var chunk []engine.TTEntry
				if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&chunk); err != nil {
					return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
				}
				entries = append(entries, chunk...)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return entries, nil
}

func ttChunkKey(n int) []byte {
	return []byte(fmt.Sprintf("%s%06d", prefixTT, n))
}
