package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/notifyah/notifyah/pkg/logger"
	"github.com/notifyah/notifyah/pkg/metrics"
)

// Handler owns the upgrade endpoint and the lifecycle of each admitted
// connection: handshake, registry insert, read loop, registry removal.
type Handler struct {
	gate        *HandshakeGate
	registry    *Registry
	upgrader    websocket.Upgrader
	logger      *logger.Logger
	metrics     *metrics.Metrics
	sendTimeout time.Duration
}

func NewHandler(gate *HandshakeGate, registry *Registry, log *logger.Logger, m *metrics.Metrics, sendTimeout time.Duration) *Handler {
	return &Handler{
		gate:     gate,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect cross-origin; the bearer token is
			// the access control, not the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:      log.WithComponent("ws"),
		metrics:     m,
		sendTimeout: sendTimeout,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws/notifications", h.Serve)
}

// Serve runs the handshake gate and, on success, upgrades the request
// and registers the connection. Rejections complete the HTTP response
// without leaking any connection state.
func (h *Handler) Serve(c *gin.Context) {
	userID, subprotocol, err := h.gate.Admit(c.Request)
	if err != nil {
		h.logger.Warn("handshake rejected", "error", err.Error(), "remote", c.ClientIP())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var responseHeader http.Header
	if subprotocol != "" {
		responseHeader = http.Header{"Sec-WebSocket-Protocol": []string{subprotocol}}
	}

	wsConn, err := h.upgrader.Upgrade(c.Writer, c.Request, responseHeader)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("upgrade failed", "user_id", userID, "error", err.Error())
		return
	}

	conn := newConn(wsConn, h.sendTimeout)
	if prev := h.registry.Put(userID, conn); prev != nil {
		// Last writer wins; close the superseded handle instead of
		// leaving it orphaned until its own disconnect fires.
		prev.Close()
	}
	h.metrics.LiveConnections.Set(float64(h.registry.Count()))
	h.logger.Info("connection established", "user_id", userID)

	go h.readLoop(userID, conn)
}

// readLoop drains inbound frames until the peer goes away. The server
// never acts on inbound traffic; the loop exists to observe the close.
func (h *Handler) readLoop(userID int64, conn *Conn) {
	defer func() {
		conn.Close()
		if h.registry.Drop(userID, conn) {
			h.metrics.LiveConnections.Set(float64(h.registry.Count()))
			h.logger.Info("connection closed", "user_id", userID)
		}
	}()

	for {
		if _, _, err := conn.ws.ReadMessage(); err != nil {
			return
		}
	}
}
