package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ysalameh/paywatch/internal/events"
	"github.com/ysalameh/paywatch/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second

	// sendBuffer is the per-session outbound queue. A session that falls this
	// far behind is dropped; it reconnects and re-fetches instead of replaying.
	sendBuffer = 16
)

var connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "paywatch_ws_connected_clients",
	Help: "Number of currently connected websocket viewers",
})

// Conn is the subset of *websocket.Conn the hub writes to. Narrowed for
// testability.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session is one connected viewer.
type Session struct {
	ownerID string
	conn    Conn
	send    chan []byte
	closed  bool
}

// Hub fans link update notifications out to every connected viewer of the
// updated link's owner. Delivery is fire-and-forget: a failed write drops
// that one session and touches nobody else.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*Session]struct{}),
	}
}

// Register adds a connection for the given owner and starts its writer.
func (h *Hub) Register(ownerID string, conn Conn) *Session {
	s := &Session{
		ownerID: ownerID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if h.sessions[ownerID] == nil {
		h.sessions[ownerID] = make(map[*Session]struct{})
	}
	h.sessions[ownerID][s] = struct{}{}
	h.mu.Unlock()

	connectedClients.Inc()
	go s.writePump(h)

	logger.Info("websocket viewer connected", zap.String("owner_id", ownerID))
	return s
}

// Unregister removes the session and closes its connection. Safe to call
// more than once and concurrently with Publish.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	if s.closed {
		h.mu.Unlock()
		return
	}
	s.closed = true
	delete(h.sessions[s.ownerID], s)
	if len(h.sessions[s.ownerID]) == 0 {
		delete(h.sessions, s.ownerID)
	}
	close(s.send)
	h.mu.Unlock()

	connectedClients.Dec()
	_ = s.conn.Close()
	logger.Info("websocket viewer disconnected", zap.String("owner_id", s.ownerID))
}

// Publish delivers the event to every session of the event's owner. No lock
// is held across a network write; sessions whose queue is full are dropped.
func (h *Hub) Publish(_ context.Context, ev events.LinkUpdate) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Error("failed to marshal link update", zap.Error(err))
		return
	}

	// Queueing onto the session buffers happens under the read lock so a
	// concurrent Unregister cannot close a channel mid-send; the network
	// write itself happens lock-free in each session's writePump.
	h.mu.RLock()
	var slow []*Session
	for s := range h.sessions[ev.Data.OwnerID] {
		select {
		case s.send <- payload:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		logger.Warn("dropping slow websocket viewer", zap.String("owner_id", s.ownerID))
		h.Unregister(s)
	}
}

// ActiveOwners lists owners with at least one live session. The
// reconciliation loop probes only their links.
func (h *Hub) ActiveOwners() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	owners := make([]string, 0, len(h.sessions))
	for ownerID := range h.sessions {
		owners = append(owners, ownerID)
	}
	return owners
}

// CloseAll tears down every session on server shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	all := make([]*Session, 0)
	for _, set := range h.sessions {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range all {
		h.Unregister(s)
	}
}

func (s *Session) writePump(h *Hub) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Warn("failed to write to websocket viewer",
					zap.Error(err),
					zap.String("owner_id", s.ownerID),
				)
				h.Unregister(s)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Unregister(s)
				return
			}
		}
	}
}
