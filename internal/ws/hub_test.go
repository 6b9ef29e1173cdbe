package ws

import (
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyah/notifyah/internal/model"
	"github.com/notifyah/notifyah/pkg/logger"
	"github.com/notifyah/notifyah/pkg/metrics"
)

func newTestHub() (*Hub, *Registry) {
	registry := NewRegistry()
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	m := metrics.NewWith(prometheus.NewRegistry(), "test")
	return NewHub(registry, log, m), registry
}

func testNotification(recipientID int64) *model.Notification {
	return &model.Notification{
		ID:          101,
		RecipientID: recipientID,
		Type:        model.TypeNewComment,
		Content:     "hi",
		RedirectURL: "/posts/7",
		CreatedAt:   time.Now(),
	}
}

func TestDeliverToOpenConnection(t *testing.T) {
	hub, registry := newTestHub()
	h := newFakeHandle()
	registry.Put(42, h)

	hub.Deliver(testNotification(42))

	require.Equal(t, 1, h.sentCount())

	var pushed model.Notification
	require.NoError(t, json.Unmarshal(h.sent[0], &pushed))
	assert.Equal(t, int64(101), pushed.ID)
	assert.Equal(t, model.TypeNewComment, pushed.Type)
	assert.Equal(t, "hi", pushed.Content)
}

func TestDeliverOfflineRecipientIsNoop(t *testing.T) {
	hub, registry := newTestHub()
	other := newFakeHandle()
	registry.Put(7, other)

	hub.Deliver(testNotification(42))

	assert.Equal(t, 0, other.sentCount())
	assert.Equal(t, 1, registry.Count())
}

func TestDeliverClosedHandleIsPruned(t *testing.T) {
	hub, registry := newTestHub()
	h := newFakeHandle()
	registry.Put(42, h)
	h.Close()

	hub.Deliver(testNotification(42))

	assert.Equal(t, 0, h.sentCount())
	_, ok := registry.Get(42)
	assert.False(t, ok, "stale entry should be removed")
}

func TestDeliverSendFailureIsPruned(t *testing.T) {
	hub, registry := newTestHub()
	h := newFakeHandle()
	h.sendErr = errors.New("broken pipe")
	registry.Put(42, h)

	hub.Deliver(testNotification(42))

	_, ok := registry.Get(42)
	assert.False(t, ok, "failed entry should be removed")
	assert.True(t, h.wasClosed())
}

func TestDeliverFailureDoesNotEvictReplacement(t *testing.T) {
	hub, registry := newTestHub()
	stale := newFakeHandle()
	stale.sendErr = errors.New("broken pipe")
	registry.Put(42, stale)

	// Fetch happens before the replacement races in.
	handle, ok := registry.Get(42)
	require.True(t, ok)

	replacement := newFakeHandle()
	registry.Put(42, replacement)

	// Simulate the hub's failure path against the stale fetch.
	_ = handle.Send([]byte("x"))
	hub.dropStale(42, handle)

	got, ok := registry.Get(42)
	require.True(t, ok)
	assert.Same(t, replacement, got)
}

func TestDeliverNeverPanics(t *testing.T) {
	hub, registry := newTestHub()

	// No entry, closed entry, failing entry: all must complete quietly.
	hub.Deliver(testNotification(1))

	closed := newFakeHandle()
	closed.Close()
	registry.Put(2, closed)
	hub.Deliver(testNotification(2))

	failing := newFakeHandle()
	failing.sendErr = errors.New("boom")
	registry.Put(3, failing)
	hub.Deliver(testNotification(3))
}
