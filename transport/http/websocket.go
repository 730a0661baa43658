package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/layer-3/chaintalk/chat"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// WebsocketHandler upgrades chat connections and pumps frames between
// the socket and the session.
type WebsocketHandler struct {
	hub      *chat.Hub
	upgrader websocket.Upgrader
	logger   watermill.LoggerAdapter
}

// NewWebsocketHandler creates a new websocket handler
func NewWebsocketHandler(hub *chat.Hub, logger watermill.LoggerAdapter) *WebsocketHandler {
	return &WebsocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve handles the websocket upgrade request
func (h *WebsocketHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", err, nil)
		return
	}

	session := h.hub.NewSession()
	h.logger.Debug("websocket connected", watermill.LogFields{"session": session.ID()})

	go h.writePump(conn, session)
	h.readPump(c, conn, session)
}

// readPump pumps frames from the socket into the session. It owns the
// connection teardown: closing the session ends the write pump too.
func (h *WebsocketHandler) readPump(c *gin.Context, conn *websocket.Conn, session *chat.Session) {
	defer func() {
		session.Close()
		conn.Close()
		h.logger.Debug("websocket disconnected", watermill.LogFields{"session": session.ID()})
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Error("websocket read failed", err, watermill.LogFields{"session": session.ID()})
			}
			return
		}

		if err := session.HandleFrame(c.Request.Context(), raw); err != nil {
			h.logger.Info("closing websocket", watermill.LogFields{
				"session": session.ID(),
				"reason":  err.Error(),
			})
			return
		}
	}
}

// writePump pumps session frames to the socket and keeps the
// connection alive with pings.
func (h *WebsocketHandler) writePump(conn *websocket.Conn, session *chat.Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-session.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(frame)
			if err != nil {
				h.logger.Error("failed to marshal frame", err, watermill.LogFields{"session": session.ID()})
				continue
			}

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
