package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akarpov/go-shop/internal/domain"
	"github.com/akarpov/go-shop/internal/repository"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	OutboxEvents []*repository.OutboxEvent
	GetErr       error
	MarkErr      error
	ProcessedIDs []int64
}

func (m *MockRepository) GetUnprocessedEvents(context.Context, int) ([]*repository.OutboxEvent, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	events := m.OutboxEvents
	m.OutboxEvents = nil
	return events, nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, id int64) error {
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.ProcessedIDs = append(m.ProcessedIDs, id)
	return nil
}

func (m *MockRepository) GetProduct(context.Context, int64) (*domain.Product, error) {
	return nil, repository.ErrProductNotFound
}
func (m *MockRepository) GetAllProducts(context.Context) ([]*domain.Product, error) {
	return nil, nil
}
func (m *MockRepository) SearchProducts(context.Context, string) ([]*domain.Product, error) {
	return nil, nil
}
func (m *MockRepository) GetProductsByCategory(context.Context, int64) ([]*domain.Product, error) {
	return nil, nil
}
func (m *MockRepository) CreateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	return p, nil
}
func (m *MockRepository) UpdateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	return p, nil
}
func (m *MockRepository) DeleteProduct(context.Context, int64) error { return nil }

func (m *MockRepository) GetAllCategories(context.Context) ([]*domain.Category, error) {
	return nil, nil
}
func (m *MockRepository) GetCategory(context.Context, int64) (*domain.Category, error) {
	return nil, repository.ErrCategoryNotFound
}
func (m *MockRepository) CreateCategory(_ context.Context, c *domain.Category) (*domain.Category, error) {
	return c, nil
}
func (m *MockRepository) UpdateCategory(_ context.Context, c *domain.Category) (*domain.Category, error) {
	return c, nil
}
func (m *MockRepository) DeleteCategory(context.Context, int64) error { return nil }

func (m *MockRepository) CreateOrder(context.Context, *domain.Order, []domain.OrderItem, string) (int64, error) {
	return 0, nil
}
func (m *MockRepository) GetOrderByID(context.Context, int64) (*domain.Order, error) {
	return nil, repository.ErrOrderNotFound
}
func (m *MockRepository) GetOrderByIdempotencyKey(context.Context, string) (*domain.Order, error) {
	return nil, repository.ErrOrderNotFound
}
func (m *MockRepository) GetOrderItems(context.Context, int64) ([]domain.OrderItem, error) {
	return nil, nil
}
func (m *MockRepository) ListOrders(context.Context) ([]*domain.Order, error) { return nil, nil }

func (m *MockRepository) RunMigrations(*repository.Credentials) error { return nil }
func (m *MockRepository) Close() error                                { return nil }

var _ repository.RepoInterface = (*MockRepository)(nil)

type fakeWriter struct {
	m        sync.Mutex
	messages []kafka.Message
	writeErr error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.m.Lock()
	defer f.m.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.m.Lock()
	defer f.m.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) written() []kafka.Message {
	f.m.Lock()
	defer f.m.Unlock()
	return append([]kafka.Message(nil), f.messages...)
}

func orderCreatedEvent(id int64, orderID string) *repository.OutboxEvent {
	return &repository.OutboxEvent{
		ID:          id,
		AggregateID: orderID,
		EventType:   "order_created",
		Payload:     json.RawMessage(`{"order_id":` + orderID + `,"total_amount":20}`),
		CreatedAt:   time.Now(),
	}
}

func TestProcessUnpublishedEvents_PublishesAndMarks(t *testing.T) {
	mockRepo := &MockRepository{
		OutboxEvents: []*repository.OutboxEvent{orderCreatedEvent(1, "42")},
	}
	writer := &fakeWriter{}
	poller := newOutboxPoller(mockRepo, writer)

	poller.processUnpublishedEvents(context.Background())

	messages := writer.written()
	require.Len(t, messages, 1)
	assert.Equal(t, "42", string(messages[0].Key))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(messages[0].Value, &payload))
	assert.Equal(t, float64(42), payload["order_id"])

	require.Len(t, messages[0].Headers, 1)
	assert.Equal(t, "event_type", messages[0].Headers[0].Key)
	assert.Equal(t, "order_created", string(messages[0].Headers[0].Value))

	assert.Equal(t, []int64{1}, mockRepo.ProcessedIDs)
}

func TestProcessUnpublishedEvents_WriteFailureLeavesEventUnprocessed(t *testing.T) {
	mockRepo := &MockRepository{
		OutboxEvents: []*repository.OutboxEvent{orderCreatedEvent(1, "42")},
	}
	writer := &fakeWriter{writeErr: errors.New("broker unreachable")}
	poller := newOutboxPoller(mockRepo, writer)

	poller.processUnpublishedEvents(context.Background())

	// event stays unprocessed and gets retried on the next tick
	assert.Empty(t, mockRepo.ProcessedIDs)
}

func TestProcessUnpublishedEvents_FetchErrorIsHandled(t *testing.T) {
	mockRepo := &MockRepository{GetErr: errors.New("database connection error")}
	writer := &fakeWriter{}
	poller := newOutboxPoller(mockRepo, writer)

	// Should not panic, just log and return
	poller.processUnpublishedEvents(context.Background())

	assert.Empty(t, writer.written())
}

func TestProcessUnpublishedEvents_MarkFailureDoesNotStopBatch(t *testing.T) {
	mockRepo := &MockRepository{
		OutboxEvents: []*repository.OutboxEvent{
			orderCreatedEvent(1, "42"),
			orderCreatedEvent(2, "43"),
		},
		MarkErr: errors.New("database deadlock"),
	}
	writer := &fakeWriter{}
	poller := newOutboxPoller(mockRepo, writer)

	poller.processUnpublishedEvents(context.Background())

	// both events were still published even though marking failed
	assert.Len(t, writer.written(), 2)
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	mockRepo := &MockRepository{}
	writer := &fakeWriter{writeErr: errors.New("broker unreachable")}
	poller := newOutboxPoller(mockRepo, writer)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := poller.publishToKafka(ctx, orderCreatedEvent(int64(i), "42"))
		require.Error(t, err)
	}

	// breaker is open now; the writer is no longer called
	before := len(writer.written())
	err := poller.publishToKafka(ctx, orderCreatedEvent(99, "42"))
	assert.Error(t, err)
	assert.Len(t, writer.written(), before)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	mockRepo := &MockRepository{
		OutboxEvents: []*repository.OutboxEvent{orderCreatedEvent(1, "42")},
	}
	writer := &fakeWriter{}
	poller := newOutboxPoller(mockRepo, writer)
	poller.eventTick = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(writer.written()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}

	poller.Close()
	assert.True(t, writer.closed)
}
