package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/notifyah/notifyah/internal/event"
	"github.com/notifyah/notifyah/internal/model"
	"github.com/notifyah/notifyah/pkg/logger"
	"github.com/notifyah/notifyah/pkg/messaging"
	"github.com/notifyah/notifyah/pkg/metrics"
)

// Topic is the bus topic carrying notification events.
const Topic = "comment-created"

// Creator persists a decoded event as a notification record.
type Creator interface {
	CreateFromEvent(ctx context.Context, evt *model.NotificationEvent) (*model.Notification, error)
}

// Deliverer attempts a best-effort push of a persisted record.
type Deliverer interface {
	Deliver(n *model.Notification)
}

type Config struct {
	Topic   string
	Workers int
}

// Consumer drains the bus subscription with a pool of workers, each
// running decode, persist, deliver per message. Decode failures drop the
// message; persistence failures drop it too and rely on bus redelivery;
// delivery failures are absorbed inside the deliverer.
type Consumer struct {
	broker    messaging.Broker
	creator   Creator
	deliverer Deliverer
	config    Config
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewConsumer(broker messaging.Broker, creator Creator, deliverer Deliverer, config Config, log *logger.Logger, m *metrics.Metrics) *Consumer {
	if config.Topic == "" {
		config.Topic = Topic
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	return &Consumer{
		broker:    broker,
		creator:   creator,
		deliverer: deliverer,
		config:    config,
		logger:    log.WithComponent("consumer"),
		metrics:   m,
	}
}

// Start subscribes to the topic and blocks until ctx is cancelled and
// all workers have drained.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.broker.Subscribe(ctx, c.config.Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.config.Topic, err)
	}

	c.logger.Info("consumer started", "topic", c.config.Topic, "workers", c.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < c.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for payload := range msgs {
				c.handle(ctx, payload)
			}
		}()
	}
	wg.Wait()

	c.logger.Info("consumer stopped", "topic", c.config.Topic)
	return nil
}

// handle runs one message through the pipeline: decode, persist, then
// push. Persist-first is the correctness invariant; the push is never
// attempted when persistence failed, and a failed push never unwinds
// the persisted record.
func (c *Consumer) handle(ctx context.Context, payload []byte) {
	c.metrics.EventsConsumed.Inc()

	evt, err := event.Decode(payload)
	if err != nil {
		c.metrics.DecodeFailures.Inc()
		c.logger.Warn("dropping malformed message", "error", err.Error())
		return
	}

	n, err := c.creator.CreateFromEvent(ctx, evt)
	if err != nil {
		c.metrics.PersistenceFailures.Inc()
		c.logger.Error(err, "failed to persist notification", "target_user_id", evt.TargetUserID, "event_type", evt.EventType)
		return
	}
	c.metrics.NotificationsCreated.Inc()

	c.deliverer.Deliver(n)
}
