package debug

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/notifyah/notifyah/internal/handler"
	"github.com/notifyah/notifyah/internal/model"
	"github.com/notifyah/notifyah/internal/worker"
	"github.com/notifyah/notifyah/pkg/messaging"
)

// Handler publishes hand-crafted events to the bus for pipeline
// testing. Not registered in production configurations.
type Handler struct {
	broker messaging.Broker
}

func NewHandler(broker messaging.Broker) *Handler {
	return &Handler{broker: broker}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	events := r.Group("/debug/events")
	{
		events.POST("/comment", h.PublishComment)
	}
}

func (h *Handler) PublishComment(c *gin.Context) {
	var evt model.NotificationEvent
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.broker.Publish(c.Request.Context(), worker.Topic, &evt); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to publish event"))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
		"status": "PUBLISHED",
		"topic":  worker.Topic,
	}))
}
