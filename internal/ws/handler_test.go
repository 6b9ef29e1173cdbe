package ws

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyah/notifyah/internal/model"
	"github.com/notifyah/notifyah/pkg/auth"
	"github.com/notifyah/notifyah/pkg/logger"
	"github.com/notifyah/notifyah/pkg/metrics"
)

func newTestServer(t *testing.T) (*httptest.Server, *Registry, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := NewRegistry()
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	m := metrics.NewWith(prometheus.NewRegistry(), "test")
	gate := NewHandshakeGate(auth.NewJWTService(testSecret, time.Hour))
	handler := NewHandler(gate, registry, log, m, time.Second)
	hub := NewHub(registry, log, m)

	engine := gin.New()
	handler.RegisterRoutes(engine.Group(""))

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv, registry, hub
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications"
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestServeRegistersConnection(t *testing.T) {
	srv, registry, _ := newTestServer(t)

	header := http.Header{"Authorization": []string{"Bearer " + validToken(t, 42)}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	waitFor(t, func() bool { return registry.IsOnline(42) })
	assert.Equal(t, 1, registry.Count())
}

func TestServeRejectsMissingToken(t *testing.T) {
	srv, registry, _ := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, registry.Count())
}

func TestServeRejectsExpiredToken(t *testing.T) {
	srv, registry, _ := newTestServer(t)

	header := http.Header{"Authorization": []string{"Bearer " + expiredToken(t, 42)}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, registry.IsOnline(42))
}

func TestServePushReachesClient(t *testing.T) {
	srv, registry, hub := newTestServer(t)

	header := http.Header{"Authorization": []string{"Bearer " + validToken(t, 42)}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	defer conn.Close()

	waitFor(t, func() bool { return registry.IsOnline(42) })

	hub.Deliver(&model.Notification{
		ID:          7,
		RecipientID: 42,
		Type:        model.TypeNewComment,
		Content:     "hi",
		CreatedAt:   time.Now(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"id":7`)
	assert.Contains(t, string(payload), `"NEW_COMMENT"`)
}

func TestServeSubprotocolNegotiation(t *testing.T) {
	srv, registry, _ := newTestServer(t)

	token := validToken(t, 42)
	dialer := websocket.Dialer{Subprotocols: []string{token}}
	conn, resp, err := dialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, token, resp.Header.Get("Sec-WebSocket-Protocol"))
	waitFor(t, func() bool { return registry.IsOnline(42) })
}

func TestServeSecondHandshakeSupersedes(t *testing.T) {
	srv, registry, hub := newTestServer(t)

	header := http.Header{"Authorization": []string{"Bearer " + validToken(t, 42)}}
	first, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	defer first.Close()
	waitFor(t, func() bool { return registry.IsOnline(42) })

	second, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	defer second.Close()

	// Exactly one registered connection; pushes land on the newer one.
	waitFor(t, func() bool { return registry.Count() == 1 && registry.IsOnline(42) })

	hub.Deliver(&model.Notification{ID: 9, RecipientID: 42, Type: model.TypeSystem, Content: "x"})

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := second.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"id":9`)
}

func TestServeCloseRemovesEntry(t *testing.T) {
	srv, registry, _ := newTestServer(t)

	header := http.Header{"Authorization": []string{"Bearer " + validToken(t, 42)}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)

	waitFor(t, func() bool { return registry.IsOnline(42) })

	conn.Close()

	waitFor(t, func() bool { return registry.Count() == 0 })
	assert.False(t, registry.IsOnline(42))
}
