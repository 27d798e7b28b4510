package app

import (
	"flag"
	"io"
	"testing"

	"github.com/hailam/rizzi/internal/board"
	"github.com/hailam/rizzi/internal/config"
	"github.com/hailam/rizzi/internal/engine"
)

func open(t *testing.T, args ...string) *App {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	a, err := Open(flags, io.Discard)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return a
}

func TestPreferencesLayering(t *testing.T) {
	dir := t.TempDir()

	a := open(t, "-data", dir)
	if a.Store == nil {
		t.Fatal("database not opened")
	}
	if err := a.SavePreferences(config.Preferences{HashMB: 8, MoveTimeMs: 300}); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	a = open(t, "-data", dir, "-movetime", "700")
	defer a.Close()
	cfg := a.Config.Get()
	if cfg.HashMB != 8 {
		t.Errorf("HashMB = %d, want stored 8", cfg.HashMB)
	}
	if cfg.MoveTimeMs != 700 {
		t.Errorf("MoveTimeMs = %d, want explicit flag 700", cfg.MoveTimeMs)
	}
	if got := a.Engine.TT().Size(); got != 8*1024*1024/16 {
		t.Errorf("engine table has %d entries, want an 8MB table", got)
	}
}

func TestTranspositionTablePersists(t *testing.T) {
	dir := t.TempDir()

	a := open(t, "-data", dir, "-persist-tt", "-hash", "1")
	pos := board.NewPosition()
	a.Engine.Search(t.Context(), pos, engine.SearchLimits{Depth: 3})
	saved := a.Engine.TT().Stats().Occupied
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	a = open(t, "-data", dir, "-persist-tt", "-hash", "1")
	defer a.Close()
	if got := a.Engine.TT().Stats().Occupied; got != saved || got == 0 {
		t.Errorf("restored %d entries, saved %d", got, saved)
	}
	if _, ok := a.Engine.TT().Probe(pos.Hash); !ok {
		t.Error("root position missing from restored table")
	}
}
