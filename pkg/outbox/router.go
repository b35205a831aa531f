package outbox

import (
	"encoding/json"
	"fmt"

	"github.com/freightdesk/logistics-backend/pkg/db/models"
	"github.com/freightdesk/logistics-backend/pkg/enums"
)

// ResolvedEvent pairs a parsed envelope with the topic it publishes to.
type ResolvedEvent struct {
	Envelope PayloadEnvelope
	Topic    string
}

// NonRetryableError marks a publish failure that retrying cannot fix.
type NonRetryableError struct {
	cause error
}

// NewNonRetryableError wraps err as permanently failed.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{cause: err}
}

func (e NonRetryableError) Error() string {
	if e.cause == nil {
		return "non-retryable publish error"
	}
	return e.cause.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.cause
}

// Router maps outbox event types to Pub/Sub topics. Unknown event types
// resolve to a non-retryable error so they land in the DLQ instead of
// cycling forever.
type Router struct {
	topics map[enums.OutboxEventType]string
}

// NewRouter builds the routing table. All domain events currently share a
// single topic; consumers fan out on the event_type attribute.
func NewRouter(domainTopic string) *Router {
	return &Router{
		topics: map[enums.OutboxEventType]string{
			enums.EventOrderRequested:  domainTopic,
			enums.EventOrderProcessed:  domainTopic,
			enums.EventOrderFailed:     domainTopic,
			enums.EventExportRequested: domainTopic,
		},
	}
}

// Resolve validates the event row and returns its envelope plus topic.
func (r *Router) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	topic, ok := r.topics[event.EventType]
	if !ok || topic == "" {
		return nil, NewNonRetryableError(fmt.Errorf("no route for event type %q", event.EventType))
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("malformed payload envelope: %w", err))
	}

	return &ResolvedEvent{Envelope: envelope, Topic: topic}, nil
}
