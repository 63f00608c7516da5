// Package events defines the notifications emitted when provenance records
// change.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every record event.
const Topic = "provenance.records"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RecordCreatedEvent  EventType = "record.created"
	RecordReplacedEvent EventType = "record.replaced"
	RecordPatchedEvent  EventType = "record.patched"
	RecordDeletedEvent  EventType = "record.deleted"
)

// EventTypes lists the events a subscriber can decode.
var EventTypes = []EventType{RecordCreatedEvent, RecordReplacedEvent, RecordPatchedEvent, RecordDeletedEvent}

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// RecordChanged reports a successful write of a provenance record. Kind is
// the resource name, e.g. "analyses" or "workflows".
type RecordChanged struct {
	BaseEvent

	Kind     string `json:"kind"`
	RecordID string `json:"record_id"`
	Space    string `json:"space"`
}

func (e RecordChanged) GetType() EventType {
	return e.Type
}

func NewRecordChanged(typ EventType, kind, recordID, space string) RecordChanged {
	return RecordChanged{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      typ,
			Timestamp: time.Now().UTC(),
		},
		Kind:     kind,
		RecordID: recordID,
		Space:    space,
	}
}
