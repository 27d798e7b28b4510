package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
	if Default().MoveTime().Milliseconds() != 1000 {
		t.Errorf("default move time = %v", Default().MoveTime())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero hash", func(c *Config) { c.HashMB = 0 }},
		{"negative move time", func(c *Config) { c.MoveTimeMs = -1 }},
		{"zero depth", func(c *Config) { c.MaxDepth = 0 }},
		{"depth too large", func(c *Config) { c.MaxDepth = 500 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mod(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rizzi.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveLayers(t *testing.T) {
	path := writeFile(t, `{"hash_mb": 128, "max_depth": 20, "listen_addr": ":9000"}`)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", path, "-depth", "12"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := flags.Resolve()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.HashMB != 128 {
		t.Errorf("HashMB = %d, want 128 from file", cfg.HashMB)
	}
	if cfg.MaxDepth != 12 {
		t.Errorf("MaxDepth = %d, want 12 from flag", cfg.MaxDepth)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q, want file value", cfg.ListenAddr)
	}
	if cfg.MoveTimeMs != 1000 {
		t.Errorf("MoveTimeMs = %d, want default", cfg.MoveTimeMs)
	}

	// Stored preferences sit between the file and explicit flags.
	cfg.ApplyPreferences(Preferences{HashMB: 256, MoveTimeMs: 250, MaxDepth: 30}, fs)
	if cfg.HashMB != 256 || cfg.MoveTimeMs != 250 {
		t.Errorf("preferences not applied: %+v", cfg)
	}
	if cfg.MaxDepth != 12 {
		t.Errorf("preference overrode explicit -depth: %d", cfg.MaxDepth)
	}
}

func TestResolveRejectsBadFile(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-config", writeFile(t, `{"hash_mb": `)}); err != nil {
		t.Fatal(err)
	}
	if _, err := flags.Resolve(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Resolve() = %v, want ErrInvalid", err)
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	flags = RegisterFlags(fs)
	if err := fs.Parse([]string{"-hash", "0"}); err != nil {
		t.Fatal(err)
	}
	if _, err := flags.Resolve(); !errors.Is(err, ErrInvalid) {
		t.Errorf("Resolve() with -hash 0 = %v, want ErrInvalid", err)
	}
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore(Default())
	if err := s.Update(func(c *Config) { c.HashMB = 32 }); err != nil {
		t.Fatal(err)
	}
	if s.Get().HashMB != 32 {
		t.Errorf("HashMB = %d", s.Get().HashMB)
	}
	if err := s.Update(func(c *Config) { c.MaxDepth = 0 }); !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid update accepted: %v", err)
	}
	if s.Get().MaxDepth != Default().MaxDepth {
		t.Error("rejected update was applied")
	}
}
