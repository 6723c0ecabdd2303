package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/harunaga/adpilot/internal/notify"
)

// Hub broadcasts run summaries to connected websocket clients. It implements
// notify.Notifier so it can sit in the notifier fan-out next to Slack.
type Hub struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	// writeMu serializes broadcasts; gorilla connections allow only one
	// concurrent writer.
	writeMu sync.Mutex
}

var _ notify.Notifier = (*Hub)(nil)

// NewHub builds an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API binds locally; same-host dashboards may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:   log,
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Serve upgrades one request and holds the connection until the client goes
// away. Clients only listen; inbound messages are drained and dropped.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// NotifyRun pushes one summary to every client. A slow or dead client is
// dropped rather than blocking the run.
func (h *Hub) NotifyRun(_ context.Context, s notify.RunSummary) error {
	payload, err := json.Marshal(map[string]interface{}{
		"engine":       s.Engine,
		"executionId":  s.ExecutionID,
		"dryRun":       s.DryRun,
		"applied":      s.Applied,
		"records":      s.RecordCount,
		"actionCounts": s.ActionCounts,
		"applyErrors":  s.ApplyErrors,
		"durationMs":   s.DurationMs,
		"at":           time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
		}
	}
	return nil
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}
