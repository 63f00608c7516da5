// Package eventbus carries record events between the API and whoever
// listens for them.
package eventbus

import (
	"context"

	"github.com/ebrains-prov/provenance-api/pkg/events"
)

// Publisher announces record changes.
type Publisher interface {
	Publish(ctx context.Context, event events.RecordChanged) error
}

// Handler reacts to one record event. Returning an error asks the bus to
// deliver the event again.
type Handler func(ctx context.Context, event events.RecordChanged) error

type Subscriber interface {
	Handle(eventType events.EventType, handler Handler) error
	Subscribe(ctx context.Context) error
}

type EventBus interface {
	Publisher
	Subscriber
	Close() error
}
