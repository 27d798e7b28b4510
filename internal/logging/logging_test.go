package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", false)
	log.Debug().Str("move", "e2e4").Msg("searching")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("not JSON: %q", buf.String())
	}
	if rec["level"] != "debug" || rec["move"] != "e2e4" || rec["message"] != "searching" {
		t.Errorf("record = %v", rec)
	}
	if _, ok := rec["time"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestNewLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", false)
	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}

func TestNewUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "chatty", false)
	if !strings.Contains(buf.String(), "unknown log level") {
		t.Errorf("no warning for bad level: %q", buf.String())
	}
	buf.Reset()
	log.Info().Msg("visible")
	if buf.Len() == 0 {
		t.Error("fallback level should be info")
	}
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", true)
	log.Info().Msg("ready")
	if !strings.Contains(buf.String(), "ready") || strings.HasPrefix(buf.String(), "{") {
		t.Errorf("pretty output = %q", buf.String())
	}
}
