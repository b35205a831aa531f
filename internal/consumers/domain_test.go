package consumers

import (
	"context"
	"io"
	"testing"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
	"github.com/freightdesk/logistics-backend/pkg/logger"
)

type stubOrderProcessor struct {
	calls []uuid.UUID
	err   error
}

func (s *stubOrderProcessor) ProcessOrder(ctx context.Context, orderID uuid.UUID) error {
	s.calls = append(s.calls, orderID)
	return s.err
}

type stubExportGenerator struct {
	calls []uuid.UUID
	err   error
}

func (s *stubExportGenerator) GenerateExport(ctx context.Context, exportID uuid.UUID) error {
	s.calls = append(s.calls, exportID)
	return s.err
}

func newTestConsumer(orders *stubOrderProcessor, exports *stubExportGenerator) *DomainConsumer {
	return &DomainConsumer{
		orders:  orders,
		exports: exports,
		logg:    logger.New(logger.Options{Output: io.Discard}),
	}
}

func buildMessage(eventType string, aggregateID uuid.UUID) *pubsub.Message {
	return &pubsub.Message{
		Attributes: map[string]string{
			"event_id":     uuid.NewString(),
			"event_type":   eventType,
			"aggregate_id": aggregateID.String(),
		},
	}
}

func TestProcessDispatchesOrderRequested(t *testing.T) {
	t.Parallel()

	orders := &stubOrderProcessor{}
	exports := &stubExportGenerator{}
	c := newTestConsumer(orders, exports)
	orderID := uuid.New()

	result := c.process(context.Background(), buildMessage("order_requested", orderID))

	assert.True(t, result.ack)
	assert.Equal(t, []uuid.UUID{orderID}, orders.calls)
	assert.Empty(t, exports.calls)
}

func TestProcessDispatchesExportRequested(t *testing.T) {
	t.Parallel()

	orders := &stubOrderProcessor{}
	exports := &stubExportGenerator{}
	c := newTestConsumer(orders, exports)
	exportID := uuid.New()

	result := c.process(context.Background(), buildMessage("export_requested", exportID))

	assert.True(t, result.ack)
	assert.Equal(t, []uuid.UUID{exportID}, exports.calls)
	assert.Empty(t, orders.calls)
}

func TestProcessAcksInformationalEvents(t *testing.T) {
	t.Parallel()

	orders := &stubOrderProcessor{}
	exports := &stubExportGenerator{}
	c := newTestConsumer(orders, exports)

	for _, eventType := range []string{"order_processed", "order_failed", "something_else"} {
		result := c.process(context.Background(), buildMessage(eventType, uuid.New()))
		assert.True(t, result.ack, "event %s should ack", eventType)
	}
	assert.Empty(t, orders.calls)
	assert.Empty(t, exports.calls)
}

func TestProcessAcksMalformedAggregateID(t *testing.T) {
	t.Parallel()

	orders := &stubOrderProcessor{}
	c := newTestConsumer(orders, &stubExportGenerator{})

	msg := &pubsub.Message{Attributes: map[string]string{
		"event_type":   "order_requested",
		"aggregate_id": "not-a-uuid",
	}}
	result := c.process(context.Background(), msg)

	assert.True(t, result.ack)
	assert.Empty(t, orders.calls)
}

func TestProcessNacksTransientFailures(t *testing.T) {
	t.Parallel()

	orders := &stubOrderProcessor{err: pkgerrors.New(pkgerrors.CodeDependency, "db unavailable")}
	c := newTestConsumer(orders, &stubExportGenerator{})

	result := c.process(context.Background(), buildMessage("order_requested", uuid.New()))

	assert.True(t, result.nack, "dependency failures should be redelivered")
}

func TestProcessAcksMissingAggregates(t *testing.T) {
	t.Parallel()

	orders := &stubOrderProcessor{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	c := newTestConsumer(orders, &stubExportGenerator{})

	result := c.process(context.Background(), buildMessage("order_requested", uuid.New()))

	assert.True(t, result.ack, "missing aggregates can never succeed on retry")
}
