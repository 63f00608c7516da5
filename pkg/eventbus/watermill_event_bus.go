package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ebrains-prov/provenance-api/pkg/events"
)

// Metadata keys set on every record message besides the event type and the
// partition key.
const (
	kindMetadataKey  = "kind"
	spaceMetadataKey = "space"
)

// WatermillEventBus sends record events over a watermill topic. Messages are
// keyed by record identifier so that a partitioned transport keeps the events
// of one record in order.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger

	mu       sync.RWMutex
	handlers map[events.EventType][]Handler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	if logger == nil {
		logger = slog.Default()
	}

	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
		logger:     logger,
		handlers:   make(map[events.EventType][]Handler),
	}
}

func (eb *WatermillEventBus) Publish(ctx context.Context, event events.RecordChanged) error {
	if !slices.Contains(events.EventTypes, event.Type) {
		return fmt.Errorf("unknown record event type %q", event.Type)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, event.RecordID)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.Type))
	msg.Metadata.Set(kindMetadataKey, event.Kind)
	msg.Metadata.Set(spaceMetadataKey, event.Space)

	if err := eb.publisher.Publish(events.Topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}

	return nil
}

// Handle adds handler for eventType. Several handlers may share a type; an
// event is acknowledged once all of them succeed.
func (eb *WatermillEventBus) Handle(eventType events.EventType, handler Handler) error {
	if !slices.Contains(events.EventTypes, eventType) {
		return fmt.Errorf("unknown record event type %q", eventType)
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)

	return nil
}

// Subscribe starts delivering events to the registered handlers until ctx
// is done or the bus is closed.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	go func() {
		for msg := range messages {
			eb.dispatch(ctx, msg)
		}
	}()

	return nil
}

func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handlers := eb.handlers[eventType]
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		msg.Ack()
		return
	}

	var event events.RecordChanged

	// an undecodable payload would fail forever, so it is dropped
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		eb.logger.ErrorContext(ctx, "dropping malformed record event", "message_id", msg.UUID, "error", err)
		msg.Ack()

		return
	}

	var errs []error

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		eb.logger.WarnContext(ctx, "record event handler failed",
			"event", eventType, "record_id", event.RecordID, "error", err)
		msg.Nack()

		return
	}

	msg.Ack()
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}
