package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/notifyah/notifyah/internal/model"
)

// ErrMalformed marks a bus payload that cannot be turned into an event.
// The consumer logs it and drops the message; the bus offset advances.
var ErrMalformed = errors.New("malformed event payload")

// Decode deserializes a bus payload into a notification event. Unknown
// extra fields are ignored so producers can evolve the schema ahead of
// this consumer. An unrecognized eventType is not an error here; the
// store normalizes it when the record is created.
func Decode(payload []byte) (*model.NotificationEvent, error) {
	var evt model.NotificationEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if evt.TargetUserID <= 0 {
		return nil, fmt.Errorf("%w: missing targetUserId", ErrMalformed)
	}
	if evt.Content == "" {
		return nil, fmt.Errorf("%w: missing content", ErrMalformed)
	}

	return &evt, nil
}
