package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hailam/rizzi/internal/board"
	"github.com/hailam/rizzi/internal/engine"
)

const (
	wsIdlePingInterval = 30 * time.Second
	wsReadTimeout      = 60 * time.Second
	wsWriteTimeout     = 10 * time.Second
)

// wsMessage is the envelope for every websocket frame in both directions.
type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type infoPayload struct {
	Depth    int      `json:"depth"`
	Score    int      `json:"score"`
	Mate     int      `json:"mate,omitempty"`
	Nodes    uint64   `json:"nodes"`
	NPS      uint64   `json:"nps"`
	TimeMs   int64    `json:"time_ms"`
	HashFull int      `json:"hashfull"`
	PV       []string `json:"pv"`
}

func newInfoPayload(info engine.SearchInfo) infoPayload {
	p := infoPayload{
		Depth:    info.Depth,
		Score:    info.Score,
		Mate:     info.Mate,
		Nodes:    info.Nodes,
		NPS:      info.NPS,
		TimeMs:   info.Time.Milliseconds(),
		HashFull: info.HashFull,
		PV:       make([]string, len(info.PV)),
	}
	for i, m := range info.PV {
		p.PV[i] = m.String()
	}
	return p
}

type analysisClient struct {
	conn *websocket.Conn
	send chan []byte
	gone chan struct{} // closed when the writer stops
	log  zerolog.Logger
}

// sendJSON queues a message for the writer. It gives up once the
// connection is gone so a search never blocks on a dead client.
func (c *analysisClient) sendJSON(typ string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.log.Error().Err(err).Str("type", typ).Msg("marshal websocket payload")
		return
	}
	data, _ := json.Marshal(wsMessage{Type: typ, Payload: raw})
	select {
	case c.send <- data:
	case <-c.gone:
	}
}

func (c *analysisClient) sendError(err error) {
	c.sendJSON("error", map[string]string{"error": err.Error()})
}

// serveAnalysisWS streams analysis of client-supplied positions. Each
// "analyze" message replaces the running analysis; "stop" ends it.
func (s *Server) serveAnalysisWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &analysisClient{
		conn: conn,
		send: make(chan []byte, 16),
		gone: make(chan struct{}),
		log:  s.log.With().Str("remote", r.RemoteAddr).Logger(),
	}
	go func() {
		defer close(client.gone)
		defer conn.Close()
		if err := writeWSWithHeartbeat(conn, client.send); err != nil {
			client.log.Debug().Err(err).Msg("websocket write")
		}
	}()

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	var (
		cancel  context.CancelFunc
		running chan struct{}
	)
	stopAnalysis := func() {
		if cancel != nil {
			cancel()
			<-running
			cancel = nil
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.sendJSON("error", map[string]string{"error": "invalid payload"})
			continue
		}

		switch msg.Type {
		case "stop":
			stopAnalysis()
		case "analyze":
			var req searchRequest
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				client.sendJSON("error", map[string]string{"error": "invalid payload"})
				continue
			}
			pos, err := req.build()
			if err != nil {
				client.sendError(err)
				continue
			}
			limits, err := req.limits(s.cfg.Get())
			if err != nil {
				client.sendError(err)
				continue
			}

			stopAnalysis()
			var ctx context.Context
			ctx, cancel = context.WithCancel(r.Context())
			running = make(chan struct{})
			go func(done chan struct{}) {
				defer close(done)
				s.analyze(ctx, client, pos, limits)
			}(running)
		default:
			client.sendJSON("error", map[string]string{"error": "unknown message type " + msg.Type})
		}
	}

	stopAnalysis()
	close(client.send)
}

// analyze runs one search, streaming every iteration and the final move.
func (s *Server) analyze(ctx context.Context, client *analysisClient, pos *board.Position, limits engine.SearchLimits) {
	s.mu.Lock()
	s.engine.OnInfo = func(info engine.SearchInfo) {
		client.sendJSON("info", newInfoPayload(info))
	}
	res := s.engine.Search(ctx, pos.Clone(), limits)
	s.engine.OnInfo = nil
	s.mu.Unlock()

	client.log.Debug().Str("bestmove", res.BestMove.String()).Int("depth", res.Depth).Msg("analysis finished")
	client.sendJSON("bestmove", newSearchResponse(pos, res))
}

// writeWSWithHeartbeat drains send to conn, pinging whenever the
// connection has been idle for wsIdlePingInterval. It returns nil once
// send is closed.
func writeWSWithHeartbeat(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteTimeout))
				return nil
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}
