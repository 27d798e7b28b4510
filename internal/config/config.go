// Package config holds the runtime settings shared by the rizzi binaries.
//
// Settings are layered: built-in defaults, then an optional JSON file,
// then preferences persisted by a previous session, then command-line
// flags given explicitly.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrInvalid is returned when a configuration value is out of range.
var ErrInvalid = errors.New("invalid configuration")

// maxDepth mirrors the deepest iteration the search supports.
const maxDepth = 127

// Config is the full set of runtime settings.
type Config struct {
	HashMB     int    `json:"hash_mb"`
	MoveTimeMs int    `json:"move_time_ms"`
	MaxDepth   int    `json:"max_depth"`
	DataDir    string `json:"data_dir"`
	LogLevel   string `json:"log_level"`
	LogPretty  bool   `json:"log_pretty"`
	ListenAddr string `json:"listen_addr"`
	PersistTT  bool   `json:"persist_tt"`
}

// Preferences is the subset of Config that survives between sessions.
type Preferences struct {
	HashMB     int `json:"hash_mb"`
	MoveTimeMs int `json:"move_time_ms"`
	MaxDepth   int `json:"max_depth"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HashMB:     64,
		MoveTimeMs: 1000,
		MaxDepth:   64,
		LogLevel:   "info",
		ListenAddr: ":8080",
	}
}

// MoveTime returns the default per-move search time.
func (c Config) MoveTime() time.Duration {
	return time.Duration(c.MoveTimeMs) * time.Millisecond
}

// Validate reports the first out-of-range value.
func (c Config) Validate() error {
	switch {
	case c.HashMB <= 0:
		return fmt.Errorf("%w: hash_mb must be positive, got %d", ErrInvalid, c.HashMB)
	case c.MoveTimeMs < 0:
		return fmt.Errorf("%w: move_time_ms must not be negative, got %d", ErrInvalid, c.MoveTimeMs)
	case c.MaxDepth < 1 || c.MaxDepth > maxDepth:
		return fmt.Errorf("%w: max_depth must be in [1, %d], got %d", ErrInvalid, maxDepth, c.MaxDepth)
	}
	return nil
}

// Preferences extracts the persisted subset.
func (c Config) Preferences() Preferences {
	return Preferences{HashMB: c.HashMB, MoveTimeMs: c.MoveTimeMs, MaxDepth: c.MaxDepth}
}

// prefFlags maps preference fields to the flags that override them.
var prefFlags = map[string]func(*Config, Preferences){
	"hash":     func(c *Config, p Preferences) { c.HashMB = p.HashMB },
	"movetime": func(c *Config, p Preferences) { c.MoveTimeMs = p.MoveTimeMs },
	"depth":    func(c *Config, p Preferences) { c.MaxDepth = p.MaxDepth },
}

// ApplyPreferences overlays stored preferences, except for values given
// explicitly on the command line parsed by fs. Zero fields are ignored.
func (c *Config) ApplyPreferences(p Preferences, fs *flag.FlagSet) {
	explicit := map[string]bool{}
	if fs != nil {
		fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	}
	set := map[string]bool{
		"hash":     p.HashMB > 0,
		"movetime": p.MoveTimeMs > 0,
		"depth":    p.MaxDepth > 0,
	}
	for name, apply := range prefFlags {
		if set[name] && !explicit[name] {
			apply(c, p)
		}
	}
}

// Flags binds the configuration to a flag set.
type Flags struct {
	fs   *flag.FlagSet
	path string
	cfg  Config
}

// RegisterFlags declares the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs, cfg: Default()}
	fs.StringVar(&f.path, "config", "", "path to a JSON configuration file")
	fs.IntVar(&f.cfg.HashMB, "hash", f.cfg.HashMB, "transposition table size in MB")
	fs.IntVar(&f.cfg.MoveTimeMs, "movetime", f.cfg.MoveTimeMs, "default search time per move in milliseconds")
	fs.IntVar(&f.cfg.MaxDepth, "depth", f.cfg.MaxDepth, "maximum search depth")
	fs.StringVar(&f.cfg.DataDir, "data", f.cfg.DataDir, "data directory (default: platform data dir)")
	fs.StringVar(&f.cfg.LogLevel, "log-level", f.cfg.LogLevel, "log level: debug, info, warn, error")
	fs.BoolVar(&f.cfg.LogPretty, "log-pretty", f.cfg.LogPretty, "human readable console logs")
	fs.StringVar(&f.cfg.ListenAddr, "listen", f.cfg.ListenAddr, "HTTP listen address")
	fs.BoolVar(&f.cfg.PersistTT, "persist-tt", f.cfg.PersistTT, "save and restore the transposition table")
	return f
}

// FlagSet returns the underlying flag set.
func (f *Flags) FlagSet() *flag.FlagSet {
	return f.fs
}

// Resolve builds the configuration from defaults, the JSON file named by
// -config and the flags set explicitly. The flag set must be parsed.
func (f *Flags) Resolve() (Config, error) {
	cfg := Default()
	if f.path != "" {
		fileCfg, err := LoadFile(f.path, cfg)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}

	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "hash":
			cfg.HashMB = f.cfg.HashMB
		case "movetime":
			cfg.MoveTimeMs = f.cfg.MoveTimeMs
		case "depth":
			cfg.MaxDepth = f.cfg.MaxDepth
		case "data":
			cfg.DataDir = f.cfg.DataDir
		case "log-level":
			cfg.LogLevel = f.cfg.LogLevel
		case "log-pretty":
			cfg.LogPretty = f.cfg.LogPretty
		case "listen":
			cfg.ListenAddr = f.cfg.ListenAddr
		case "persist-tt":
			cfg.PersistTT = f.cfg.PersistTT
		}
	})
	return cfg, cfg.Validate()
}

// LoadFile decodes a JSON file over base. Fields missing from the file
// keep their value from base.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := base
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	return cfg, nil
}

// Store guards a Config shared between goroutines, such as the protocol
// loop and a running search.
type Store struct {
	mu     sync.RWMutex
	config Config
}

// NewStore returns a store holding cfg.
func NewStore(cfg Config) *Store {
	return &Store{config: cfg}
}

// Get returns a copy of the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Update applies fn to the configuration if the result validates.
func (s *Store) Update(fn func(*Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.config
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	s.config = next
	return nil
}
