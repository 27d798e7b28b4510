// Package server exposes the engine over HTTP: move generation, perft
// and search endpoints plus a websocket stream of live analysis.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hailam/rizzi/internal/board"
	"github.com/hailam/rizzi/internal/config"
	"github.com/hailam/rizzi/internal/engine"
)

const (
	maxPerftDepth = 6
	maxMoveTime   = time.Minute
)

// Server owns the engine and serializes searches on it.
type Server struct {
	cfg *config.Store
	log zerolog.Logger

	mu     sync.Mutex // one search at a time
	engine *engine.Engine
}

// New returns a server searching with eng.
func New(eng *engine.Engine, cfg *config.Store, log zerolog.Logger) *Server {
	return &Server{engine: eng, cfg: cfg, log: log}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/tt", s.handleTTStats)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			r.Post("/legal", s.handleLegal)
			r.Post("/perft", s.handlePerft)
			r.Post("/search", s.handleSearch)
		})
	})

	r.Get("/ws/analysis", s.serveAnalysisWS)
	return r
}

// positionRequest names a position as a FEN plus moves played from it.
// An empty FEN or "startpos" is the standard starting position.
type positionRequest struct {
	FEN   string   `json:"fen"`
	Moves []string `json:"moves"`
}

func (p positionRequest) build() (*board.Position, error) {
	var pos *board.Position
	if fen := strings.TrimSpace(p.FEN); fen == "" || fen == "startpos" {
		pos = board.NewPosition()
	} else {
		var err error
		if pos, err = board.ParseFEN(fen); err != nil {
			return nil, err
		}
	}
	for _, text := range p.Moves {
		m, err := pos.ParseLegalMove(text)
		if err != nil {
			return nil, err
		}
		pos.MakeMove(m)
	}
	return pos, nil
}

type legalResponse struct {
	FEN     string   `json:"fen"`
	Moves   []string `json:"moves"`
	SAN     []string `json:"san"`
	InCheck bool     `json:"in_check"`
	Outcome string   `json:"outcome"`
	Reason  string   `json:"reason,omitempty"`
}

func (s *Server) handleLegal(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if !decode(w, r, &req) {
		return
	}
	pos, err := req.build()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	moves := pos.GenerateLegalMoves().Slice()
	resp := legalResponse{
		FEN:     pos.ToFEN(),
		Moves:   make([]string, len(moves)),
		SAN:     make([]string, len(moves)),
		InCheck: pos.InCheck(),
	}
	for i, m := range moves {
		resp.Moves[i] = m.String()
		resp.SAN[i] = m.ToSAN(pos)
	}
	outcome, reason := pos.Result()
	resp.Outcome, resp.Reason = outcome.String(), reason.String()

	writeJSON(w, http.StatusOK, resp)
}

type perftRequest struct {
	positionRequest
	Depth int `json:"depth"`
}

type perftResponse struct {
	Nodes  uint64            `json:"nodes"`
	Divide map[string]uint64 `json:"divide"`
	TimeMs int64             `json:"time_ms"`
}

func (s *Server) handlePerft(w http.ResponseWriter, r *http.Request) {
	var req perftRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Depth < 1 || req.Depth > maxPerftDepth {
		writeError(w, http.StatusBadRequest, fmt.Errorf("depth must be 1-%d, got %d", maxPerftDepth, req.Depth))
		return
	}
	pos, err := req.build()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	divide, err := pos.PerftDivideParallel(r.Context(), req.Depth, runtime.GOMAXPROCS(0))
	if err != nil {
		// Only cancellation fails, and the client is gone by then.
		s.log.Debug().Err(err).Msg("perft cancelled")
		return
	}

	resp := perftResponse{
		Nodes:  board.Sum(divide),
		Divide: make(map[string]uint64, len(divide)),
		TimeMs: time.Since(start).Milliseconds(),
	}
	for m, n := range divide {
		resp.Divide[m.String()] = n
	}
	writeJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	positionRequest
	Depth      int `json:"depth"`
	MoveTimeMs int `json:"movetime_ms"`
}

// limits converts the request into search limits bounded by the live
// configuration. With neither depth nor time the configured move time
// applies.
func (req searchRequest) limits(cfg config.Config) (engine.SearchLimits, error) {
	if req.Depth < 0 || req.MoveTimeMs < 0 {
		return engine.SearchLimits{}, fmt.Errorf("depth and movetime_ms must not be negative")
	}
	limits := engine.SearchLimits{
		Depth:    min(req.Depth, cfg.MaxDepth),
		MoveTime: min(time.Duration(req.MoveTimeMs)*time.Millisecond, maxMoveTime),
	}
	if limits.Depth == 0 && limits.MoveTime == 0 {
		limits.MoveTime = cfg.MoveTime()
		limits.Depth = cfg.MaxDepth
	}
	return limits, nil
}

type searchResponse struct {
	BestMove string   `json:"best_move"`
	SAN      string   `json:"san,omitempty"`
	Score    int      `json:"score"`
	Mate     int      `json:"mate,omitempty"`
	Depth    int      `json:"depth"`
	Nodes    uint64   `json:"nodes"`
	PV       []string `json:"pv"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}
	pos, err := req.build()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limits, err := req.limits(s.cfg.Get())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	res := s.engine.Search(r.Context(), pos.Clone(), limits)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, newSearchResponse(pos, res))
}

func newSearchResponse(pos *board.Position, res engine.SearchResult) searchResponse {
	resp := searchResponse{
		BestMove: res.BestMove.String(),
		Score:    res.Score,
		Mate:     engine.MateIn(res.Score),
		Depth:    res.Depth,
		Nodes:    res.Nodes,
		PV:       make([]string, len(res.PV)),
	}
	if res.BestMove != board.NoMove {
		resp.SAN = res.BestMove.ToSAN(pos)
	}
	for i, m := range res.PV {
		resp.PV[i] = m.String()
	}
	return resp
}

type ttStatsResponse struct {
	Entries    uint64  `json:"entries"`
	Occupied   uint64  `json:"occupied"`
	HashFull   int     `json:"hashfull"`
	Probes     uint64  `json:"probes"`
	Hits       uint64  `json:"hits"`
	HitRate    float64 `json:"hit_rate"`
	Stores     uint64  `json:"stores"`
	Overwrites uint64  `json:"overwrites"`
}

func (s *Server) handleTTStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tt := s.engine.TT()
	stats := tt.Stats()
	resp := ttStatsResponse{
		Entries:    tt.Size(),
		Occupied:   stats.Occupied,
		HashFull:   tt.HashFull(),
		Probes:     stats.Probes,
		Hits:       stats.Hits,
		HitRate:    tt.HitRate(),
		Stores:     stats.Stores,
		Overwrites: stats.Overwrites,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// requestLogger logs each request once it has been served.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
