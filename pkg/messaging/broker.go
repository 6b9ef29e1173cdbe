package messaging

import (
	"context"
)

// Broker is the message-bus abstraction the notification pipeline runs
// on. Payloads are opaque bytes; delivery is at-least-once, so a message
// may be observed more than once after a redelivery.
type Broker interface {
	Publish(ctx context.Context, topic string, message interface{}) error
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
	Close() error
}
