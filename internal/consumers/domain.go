package consumers

import (
	"context"
	"errors"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/freightdesk/logistics-backend/pkg/enums"
	pkgerrors "github.com/freightdesk/logistics-backend/pkg/errors"
	"github.com/freightdesk/logistics-backend/pkg/logger"
	"github.com/freightdesk/logistics-backend/pkg/metrics"
)

const (
	taskProcessOrder   = "process_order"
	taskGenerateExport = "generate_export"
)

type orderProcessor interface {
	ProcessOrder(ctx context.Context, orderID uuid.UUID) error
}

type exportGenerator interface {
	GenerateExport(ctx context.Context, exportID uuid.UUID) error
}

// DomainConsumer dispatches domain events from Pub/Sub to their handlers.
// Order placement and export requests both flow through here.
type DomainConsumer struct {
	orders       orderProcessor
	exports      exportGenerator
	subscription *pubsub.Subscriber
	logg         *logger.Logger
	metrics      *metrics.WorkerMetrics
}

// NewDomainConsumer constructs a consumer that watches the provided subscription.
func NewDomainConsumer(orders orderProcessor, exports exportGenerator, subscription *pubsub.Subscriber, logg *logger.Logger, workerMetrics *metrics.WorkerMetrics) (*DomainConsumer, error) {
	if orders == nil {
		return nil, errors.New("order processor is required")
	}
	if exports == nil {
		return nil, errors.New("export generator is required")
	}
	if subscription == nil {
		return nil, errors.New("domain subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &DomainConsumer{
		orders:       orders,
		exports:      exports,
		subscription: subscription,
		logg:         logg,
		metrics:      workerMetrics,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *DomainConsumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *DomainConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": string(eventType),
		"event_id":   msg.Attributes["event_id"],
	}
	logCtx := c.logg.WithFields(ctx, fields)

	aggregateID, err := uuid.Parse(msg.Attributes["aggregate_id"])
	if err != nil {
		c.logg.Error(logCtx, "message missing aggregate_id", err)
		return processResult{ack: true}
	}
	fields["aggregate_id"] = aggregateID.String()
	logCtx = c.logg.WithFields(ctx, fields)

	switch eventType {
	case enums.EventOrderRequested:
		return c.dispatch(logCtx, taskProcessOrder, func() error {
			return c.orders.ProcessOrder(logCtx, aggregateID)
		})
	case enums.EventExportRequested:
		return c.dispatch(logCtx, taskGenerateExport, func() error {
			return c.exports.GenerateExport(logCtx, aggregateID)
		})
	case enums.EventOrderProcessed, enums.EventOrderFailed:
		// Informational only; no worker-side handler.
		return processResult{ack: true}
	default:
		c.logg.Warn(logCtx, "unknown event type, skipping")
		return processResult{ack: true}
	}
}

func (c *DomainConsumer) dispatch(ctx context.Context, task string, fn func() error) processResult {
	start := time.Now()
	err := fn()
	c.metrics.ObserveDuration(task, time.Since(start))
	if err != nil {
		c.metrics.IncFailure(task)
		return c.handleError(ctx, task, err)
	}
	c.metrics.IncSuccess(task)
	c.logg.Info(c.logg.WithField(ctx, "task", task), "domain event handled")
	return processResult{ack: true}
}

// handleError decides between redelivery and dropping the message. Transient
// dependency failures get another delivery; everything else acks so one bad
// message cannot wedge the subscription.
func (c *DomainConsumer) handleError(ctx context.Context, task string, err error) processResult {
	logCtx := c.logg.WithField(ctx, "task", task)
	if typed := pkgerrors.As(err); typed != nil {
		if typed.Code() == pkgerrors.CodeNotFound {
			c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "aggregate not found, dropping message")
			return processResult{ack: true}
		}
		if pkgerrors.MetadataFor(typed.Code()).Retryable {
			c.logg.Error(logCtx, "domain event handler failed, will retry", err)
			return processResult{nack: true}
		}
		c.logg.Error(logCtx, "domain event handler failed permanently", err)
		return processResult{ack: true}
	}
	if isTransientError(err) {
		c.logg.Error(logCtx, "domain event handler failed, will retry", err)
		return processResult{nack: true}
	}
	c.logg.Error(logCtx, "domain event handler failed", err)
	return processResult{ack: true}
}

func isTransientError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
