package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hailam/rizzi/internal/config"
	"github.com/hailam/rizzi/internal/engine"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(engine.NewEngine(4), config.NewStore(config.Default()), zerolog.Nop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestPing(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/ping")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("ping: %d %v", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestLegal(t *testing.T) {
	_, ts := newTestServer(t)

	var start legalResponse
	if code := postJSON(t, ts.URL+"/api/legal", map[string]any{}, &start); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(start.Moves) != 20 || start.InCheck || start.Outcome != "*" {
		t.Errorf("start position: %+v", start)
	}

	var mated legalResponse
	req := map[string]any{"fen": "startpos", "moves": []string{"f2f3", "e7e5", "g2g4", "d8h4"}}
	if code := postJSON(t, ts.URL+"/api/legal", req, &mated); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(mated.Moves) != 0 || !mated.InCheck || mated.Outcome != "0-1" || mated.Reason != "checkmate" {
		t.Errorf("fool's mate: %+v", mated)
	}
}

func TestBadRequests(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"bad fen", "/api/legal", map[string]any{"fen": "8/8/8 w - - 0 1"}},
		{"illegal move", "/api/legal", map[string]any{"moves": []string{"e2e5"}}},
		{"perft too deep", "/api/perft", map[string]any{"depth": 7}},
		{"perft zero", "/api/perft", map[string]any{"depth": 0}},
		{"negative movetime", "/api/search", map[string]any{"movetime_ms": -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if code := postJSON(t, ts.URL+tc.path, tc.body, nil); code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", code)
			}
		})
	}

	resp, err := http.Post(ts.URL+"/api/legal", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body: status %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/api/legal", "text/plain", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("text/plain body: status %d", resp.StatusCode)
	}
}

func TestPerft(t *testing.T) {
	_, ts := newTestServer(t)

	var resp perftResponse
	if code := postJSON(t, ts.URL+"/api/perft", map[string]any{"depth": 3}, &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if resp.Nodes != 8902 || len(resp.Divide) != 20 || resp.Divide["e2e4"] != 600 {
		t.Errorf("perft 3: nodes %d, %d root moves, e2e4 %d", resp.Nodes, len(resp.Divide), resp.Divide["e2e4"])
	}
}

func TestSearch(t *testing.T) {
	s, ts := newTestServer(t)

	var resp searchResponse
	req := map[string]any{"fen": "k7/pp6/r7/8/8/8/PP6/K6R w - - 0 1", "depth": 3}
	if code := postJSON(t, ts.URL+"/api/search", req, &resp); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if resp.BestMove != "h1h8" || resp.Mate != 1 || resp.SAN != "Rh8#" {
		t.Errorf("mate in one: %+v", resp)
	}
	if len(resp.PV) == 0 || resp.PV[0] != "h1h8" {
		t.Errorf("PV = %v", resp.PV)
	}

	var stats ttStatsResponse
	r, err := http.Get(ts.URL + "/api/tt")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Stores == 0 || stats.Entries != s.engine.TT().Size() {
		t.Errorf("tt stats after search: %+v", stats)
	}
}

func TestSearchLimits(t *testing.T) {
	cfg := config.Default()

	limits, err := searchRequest{}.limits(cfg)
	if err != nil || limits.MoveTime != cfg.MoveTime() || limits.Depth != cfg.MaxDepth {
		t.Errorf("default limits %+v, %v", limits, err)
	}
	limits, _ = searchRequest{Depth: 1000}.limits(cfg)
	if limits.Depth != cfg.MaxDepth || limits.MoveTime != 0 {
		t.Errorf("deep limits %+v", limits)
	}
	limits, _ = searchRequest{MoveTimeMs: 10 * 60 * 1000}.limits(cfg)
	if limits.MoveTime != maxMoveTime {
		t.Errorf("long movetime limits %+v", limits)
	}
}

func dialAnalysis(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/analysis"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendAnalysis(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	raw, _ := json.Marshal(payload)
	if err := conn.WriteJSON(wsMessage{Type: typ, Payload: raw}); err != nil {
		t.Fatal(err)
	}
}

func readAnalysis(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestAnalysisStream(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialAnalysis(t, ts)

	sendAnalysis(t, conn, "analyze", map[string]any{"moves": []string{"e2e4"}, "depth": 3})

	var depths []int
	for {
		msg := readAnalysis(t, conn)
		if msg.Type == "bestmove" {
			var res searchResponse
			if err := json.Unmarshal(msg.Payload, &res); err != nil {
				t.Fatal(err)
			}
			if res.BestMove == "" || res.BestMove == "0000" || res.Depth != 3 {
				t.Errorf("bestmove payload %+v", res)
			}
			break
		}
		if msg.Type != "info" {
			t.Fatalf("unexpected %s message: %s", msg.Type, msg.Payload)
		}
		var info infoPayload
		if err := json.Unmarshal(msg.Payload, &info); err != nil {
			t.Fatal(err)
		}
		depths = append(depths, info.Depth)
	}
	if len(depths) != 3 || depths[0] != 1 || depths[2] != 3 {
		t.Errorf("info depths %v, want [1 2 3]", depths)
	}
}

func TestAnalysisStop(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialAnalysis(t, ts)

	sendAnalysis(t, conn, "analyze", map[string]any{"movetime_ms": 30000})
	time.Sleep(100 * time.Millisecond)
	if err := conn.WriteJSON(wsMessage{Type: "stop"}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	for {
		if msg := readAnalysis(t, conn); msg.Type == "bestmove" {
			break
		}
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("stop took %v", elapsed)
	}
}

func TestAnalysisErrors(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialAnalysis(t, ts)

	sendAnalysis(t, conn, "analyze", map[string]any{"fen": "garbage"})
	if msg := readAnalysis(t, conn); msg.Type != "error" {
		t.Errorf("bad fen answered with %s", msg.Type)
	}

	if err := conn.WriteJSON(wsMessage{Type: "bogus"}); err != nil {
		t.Fatal(err)
	}
	if msg := readAnalysis(t, conn); msg.Type != "error" {
		t.Errorf("unknown type answered with %s", msg.Type)
	}
}
