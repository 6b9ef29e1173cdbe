package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyah/notifyah/internal/model"
	"github.com/notifyah/notifyah/pkg/logger"
	"github.com/notifyah/notifyah/pkg/metrics"
)

type fakeBroker struct {
	msgs chan []byte
}

func (f *fakeBroker) Publish(_ context.Context, _ string, _ interface{}) error {
	return nil
}

func (f *fakeBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return f.msgs, nil
}

func (f *fakeBroker) Close() error { return nil }

type fakeCreator struct {
	mu        sync.Mutex
	nextID    int64
	created   []*model.Notification
	createErr error
}

func (f *fakeCreator) CreateFromEvent(_ context.Context, evt *model.NotificationEvent) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	n := &model.Notification{
		ID:          f.nextID,
		RecipientID: evt.TargetUserID,
		Type:        model.MapEventType(evt.EventType),
		Content:     evt.Content,
		RedirectURL: evt.RedirectURL,
	}
	f.created = append(f.created, n)
	return n, nil
}

func (f *fakeCreator) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []*model.Notification
}

func (f *fakeDeliverer) Deliver(n *model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, n)
}

func (f *fakeDeliverer) deliveredCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.delivered)
}

func newTestConsumer(workers int) (*Consumer, *fakeBroker, *fakeCreator, *fakeDeliverer) {
	broker := &fakeBroker{msgs: make(chan []byte, 16)}
	creator := &fakeCreator{}
	deliverer := &fakeDeliverer{}
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	m := metrics.NewWith(prometheus.NewRegistry(), "test")
	consumer := NewConsumer(broker, creator, deliverer, Config{Workers: workers}, log, m)
	return consumer, broker, creator, deliverer
}

func runConsumer(t *testing.T, c *Consumer, broker *fakeBroker, payloads ...[]byte) {
	t.Helper()
	for _, p := range payloads {
		broker.msgs <- p
	}
	close(broker.msgs)

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not drain in time")
	}
}

func TestConsumerPersistsAndDelivers(t *testing.T) {
	consumer, broker, creator, deliverer := newTestConsumer(1)

	runConsumer(t, consumer, broker,
		[]byte(`{"eventType":"NEW_COMMENT","senderId":1,"targetUserId":42,"entityId":7,"content":"hi","redirectUrl":"/posts/7"}`),
	)

	require.Equal(t, 1, creator.createdCount())
	require.Equal(t, 1, deliverer.deliveredCount())
	assert.Equal(t, int64(42), deliverer.delivered[0].RecipientID)
	assert.Equal(t, model.TypeNewComment, deliverer.delivered[0].Type)
	// Delivery happens after persistence assigned an id.
	assert.NotZero(t, deliverer.delivered[0].ID)
}

func TestConsumerDropsMalformedMessages(t *testing.T) {
	consumer, broker, creator, deliverer := newTestConsumer(1)

	runConsumer(t, consumer, broker,
		[]byte(`not json at all`),
		[]byte(`{"eventType":"NEW_FOLLOW","targetUserId":5,"content":"ok"}`),
	)

	// The bad message is dropped, the good one flows through.
	assert.Equal(t, 1, creator.createdCount())
	assert.Equal(t, 1, deliverer.deliveredCount())
}

func TestConsumerSkipsDeliveryOnPersistenceFailure(t *testing.T) {
	consumer, broker, creator, deliverer := newTestConsumer(1)
	creator.createErr = errors.New("store unavailable")

	runConsumer(t, consumer, broker,
		[]byte(`{"eventType":"SYSTEM","targetUserId":5,"content":"x"}`),
	)

	assert.Equal(t, 0, deliverer.deliveredCount())
}

func TestConsumerMultipleWorkers(t *testing.T) {
	consumer, broker, creator, deliverer := newTestConsumer(4)

	var payloads [][]byte
	for i := 0; i < 10; i++ {
		payloads = append(payloads, []byte(`{"eventType":"POST_LIKED","targetUserId":9,"content":"liked"}`))
	}
	runConsumer(t, consumer, broker, payloads...)

	assert.Equal(t, 10, creator.createdCount())
	assert.Equal(t, 10, deliverer.deliveredCount())
}

func TestConsumerSubscribeError(t *testing.T) {
	log := logger.New(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	m := metrics.NewWith(prometheus.NewRegistry(), "test")
	consumer := NewConsumer(&failingBroker{}, &fakeCreator{}, &fakeDeliverer{}, Config{}, log, m)

	err := consumer.Start(context.Background())
	assert.Error(t, err)
}

type failingBroker struct{}

func (f *failingBroker) Publish(_ context.Context, _ string, _ interface{}) error { return nil }
func (f *failingBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return nil, errors.New("bus unavailable")
}
func (f *failingBroker) Close() error { return nil }
