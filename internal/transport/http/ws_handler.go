package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ysalameh/paywatch/internal/constants"
	"github.com/ysalameh/paywatch/internal/infrastructure/logger"
	"github.com/ysalameh/paywatch/internal/transport/http/middleware"
	"github.com/ysalameh/paywatch/internal/transport/ws"
	"github.com/ysalameh/paywatch/pkg/httputils"
	"go.uber.org/zap"
)

const (
	wsReadLimit = 512
	wsPongWait  = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades viewer connections and hands them to the fan-out hub.
type WSHandler struct {
	hub *ws.Hub
}

func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// Serve registers the connection with the hub and then only watches for
// close: viewers send no structured payload, the stream is server to client.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	session := h.hub.Register(owner, conn)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.hub.Unregister(session)
}
