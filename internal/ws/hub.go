package ws

import (
	"encoding/json"
	"time"

	"github.com/notifyah/notifyah/internal/model"
	"github.com/notifyah/notifyah/pkg/logger"
	"github.com/notifyah/notifyah/pkg/metrics"
)

const (
	skipOffline = "offline"
	skipClosed  = "closed"
)

// Hub is the delivery fan-out: it pushes persisted notifications to the
// recipient's live connection, best effort. Failures never reach the
// caller; persistence has already succeeded and a broken push must not
// roll it back.
type Hub struct {
	registry *Registry
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewHub(registry *Registry, logger *logger.Logger, metrics *metrics.Metrics) *Hub {
	return &Hub{
		registry: registry,
		logger:   logger.WithComponent("hub"),
		metrics:  metrics,
	}
}

// Deliver attempts a single push of the record to its recipient. An
// offline recipient is a no-op; a closed or failing handle is removed
// from the registry so the next delivery starts clean.
func (h *Hub) Deliver(n *model.Notification) {
	handle, ok := h.registry.Get(n.RecipientID)
	if !ok {
		h.metrics.PushesSkipped.WithLabelValues(skipOffline).Inc()
		h.logger.Debug("recipient offline, push skipped", "user_id", n.RecipientID, "notification_id", n.ID)
		return
	}

	if !handle.IsOpen() {
		h.dropStale(n.RecipientID, handle)
		h.metrics.PushesSkipped.WithLabelValues(skipClosed).Inc()
		h.logger.Debug("recipient handle closed, entry pruned", "user_id", n.RecipientID)
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		// A notification record always marshals; treat anything else
		// as a soft failure like any other push error.
		h.metrics.PushFailures.Inc()
		h.logger.Error(err, "failed to serialize notification", "notification_id", n.ID)
		return
	}

	start := time.Now()
	if err := handle.Send(payload); err != nil {
		h.dropStale(n.RecipientID, handle)
		h.metrics.PushFailures.Inc()
		h.logger.Warn("push failed, entry pruned", "user_id", n.RecipientID, "notification_id", n.ID, "error", err.Error())
		return
	}
	h.metrics.DeliveryLatency.Observe(time.Since(start).Seconds())

	h.metrics.PushesDelivered.Inc()
	h.logger.Info("notification pushed", "user_id", n.RecipientID, "notification_id", n.ID)
}

// dropStale removes the handle it actually looked up, never a newer
// replacement that raced in, and keeps the connection gauge honest.
func (h *Hub) dropStale(userID int64, handle Handle) {
	if h.registry.Drop(userID, handle) {
		h.metrics.LiveConnections.Set(float64(h.registry.Count()))
	}
	handle.Close()
}
