// Package events publishes villa change notifications.
package events

import (
	"context"
	"encoding/json"
	"time"

	"villa-api/domain"
)

// Action names the kind of change.
type Action string

const (
	ActionCreated Action = "villa.created"
	ActionUpdated Action = "villa.updated"
	ActionDeleted Action = "villa.deleted"
)

// Event is the message body sent for every committed change.
// Villa is nil for deletions.
type Event struct {
	Action     Action        `json:"action"`
	VillaID    uint          `json:"villa_id"`
	Villa      *domain.Villa `json:"villa,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewEvent builds an event for a change committed at the given time.
func NewEvent(action Action, id uint, villa *domain.Villa, at time.Time) Event {
	return Event{
		Action:     action,
		VillaID:    id,
		Villa:      villa,
		OccurredAt: at.UTC(),
	}
}

// Encode returns the JSON body of the event.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
