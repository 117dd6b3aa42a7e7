package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const streamWriteTimeout = 10 * time.Second

// StateStream upgrades GET /state/stream to a WebSocket and pushes a state
// snapshot on connect and after every change. Client messages are ignored;
// the stream ends when the client disconnects.
type StateStream struct {
	engine   Engine
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewStateStream creates a StateStream. Origins are checked by the CORS
// middleware, so the upgrader accepts any origin.
func NewStateStream(eng Engine, logger *slog.Logger) *StateStream {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateStream{
		engine: eng,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP handles GET /state/stream requests.
func (s *StateStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = conn.Close() }()

	updates, unsubscribe := s.engine.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.write(conn, toStateResponse(s.engine.Snapshot())); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := s.write(conn, toStateResponse(snap)); err != nil {
				s.logger.Debug("state stream write failed", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (s *StateStream) write(conn *websocket.Conn, state StateResponse) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(state)
}
