package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hailam/rizzi/internal/board"
	"github.com/hailam/rizzi/internal/config"
	"github.com/hailam/rizzi/internal/engine"
)

func openTemp(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPreferences(t *testing.T) {
	s := openTemp(t)

	if _, err := s.LoadPreferences(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadPreferences on empty db: err = %v, want ErrNotFound", err)
	}

	want := config.Preferences{HashMB: 128, MoveTimeMs: 2500, MaxDepth: 12}
	if err := s.SavePreferences(want); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}
	got, err := s.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if got != want {
		t.Errorf("LoadPreferences = %+v, want %+v", got, want)
	}
}

func TestPreferencesSurviveReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")

	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SavePreferences(config.Preferences{HashMB: 32}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	prefs, err := s.LoadPreferences()
	if err != nil {
		t.Fatal(err)
	}
	if prefs.HashMB != 32 {
		t.Errorf("HashMB = %d after reopen, want 32", prefs.HashMB)
	}
}

func TestTTSnapshot(t *testing.T) {
	s := openTemp(t)

	if _, err := s.LoadTT(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadTT on empty db: err = %v, want ErrNotFound", err)
	}

	// Fill a table past one chunk so the snapshot spans several keys.
	tt := engine.NewTranspositionTable(1)
	move := board.NewMove(board.G1, board.F3)
	for i := uint64(1); i <= ttChunkSize+100; i++ {
		tt.Store(i*7919, int(i%20), int(i%300)-150, engine.TTExact, move)
	}
	entries := tt.Entries()
	if err := s.SaveTT(entries); err != nil {
		t.Fatalf("SaveTT: %v", err)
	}

	loaded, err := s.LoadTT()
	if err != nil {
		t.Fatalf("LoadTT: %v", err)
	}
	if len(loaded) != len(entries) {
		t.Fatalf("loaded %d entries, saved %d", len(loaded), len(entries))
	}
	for i := range entries {
		if loaded[i] != entries[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, loaded[i], entries[i])
		}
	}

	restored := engine.NewTranspositionTable(1)
	restored.Load(loaded)
	if e, ok := restored.Probe(7919); !ok || e.BestMove != move {
		t.Errorf("restored table probe = %+v, %v", e, ok)
	}

	// A smaller snapshot replaces the old one entirely.
	if err := s.SaveTT(entries[:10]); err != nil {
		t.Fatal(err)
	}
	loaded, err = s.LoadTT()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 10 {
		t.Errorf("after overwrite loaded %d entries, want 10", len(loaded))
	}
}

func TestMatches(t *testing.T) {
	s := openTemp(t)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	games := []MatchRecord{
		{White: "rizzi", Black: "random", Result: "1-0", Reason: "checkmate", PlayedAt: at},
		{White: "random", Black: "rizzi", Result: "1/2-1/2", Reason: "stalemate", PlayedAt: at},
		{White: "random", Black: "rizzi", Result: "0-1", Reason: "checkmate", PlayedAt: at.Add(time.Second)},
	}
	for _, g := range games {
		if err := s.RecordMatch(g); err != nil {
			t.Fatalf("RecordMatch: %v", err)
		}
	}

	got, err := s.Matches()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(games) {
		t.Fatalf("Matches returned %d records, want %d", len(got), len(games))
	}
	for i := range games {
		if got[i].Reason != games[i].Reason || got[i].White != games[i].White {
			t.Errorf("record %d = %+v, want %+v", i, got[i], games[i])
		}
	}

	stats, err := s.Stats("rizzi")
	if err != nil {
		t.Fatal(err)
	}
	want := PlayerStats{GamesPlayed: 3, Wins: 2, Draws: 1}
	if stats != want {
		t.Errorf("Stats = %+v, want %+v", stats, want)
	}
	if rate := stats.WinRate(); rate < 66 || rate > 67 {
		t.Errorf("WinRate = %.2f", rate)
	}
}

func TestDataPaths(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("APPDATA", t.TempDir())

	dataDir, err := DefaultDataDir()
	if err != nil {
		t.Fatalf("DefaultDataDir failed: %v", err)
	}
	if filepath.Base(dataDir) != appName {
		t.Errorf("DefaultDataDir = %s, want a %s directory", dataDir, appName)
	}

	dbDir, err := DatabaseDir("/srv/rizzi")
	if err != nil {
		t.Fatal(err)
	}
	if dbDir != filepath.Join("/srv/rizzi", "db") {
		t.Errorf("DatabaseDir = %s", dbDir)
	}
}
