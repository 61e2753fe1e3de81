// Package events carries domain change notifications to the live feed and
// the message broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

const (
	TopicOrders   = "orders"
	TopicPatients = "patients"

	OrderCreated   = "order.created"
	OrderUpdated   = "order.updated"
	OrderDeleted   = "order.deleted"
	OrderExpired   = "order.expired"
	PatientCreated = "patient.created"
	PatientUpdated = "patient.updated"
	PatientDeleted = "patient.deleted"
)

// Event is a single change notification. Type doubles as the broker routing
// key; Topic is what websocket clients subscribe to.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	EntityID  string          `json:"entity_id,omitempty"`
	PatientID string          `json:"patient_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// New builds an event stamped with the current time. data is marshalled to
// JSON; a value that cannot be marshalled is dropped.
func New(typ, topic, entityID string, data interface{}) Event {
	ev := Event{
		Type:      typ,
		Topic:     topic,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			ev.Data = raw
		}
	}
	return ev
}

// ForPatient sets the patient the event concerns.
func (e Event) ForPatient(patientID string) Event {
	e.PatientID = patientID
	return e
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Bus fans an event out to every sink. Delivery is best effort: a failing
// sink is logged and never fails the caller.
type Bus struct {
	sinks  []Publisher
	logger zerolog.Logger
}

func NewBus(logger zerolog.Logger, sinks ...Publisher) *Bus {
	return &Bus{sinks: sinks, logger: logger.With().Str("component", "events").Logger()}
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	for _, sink := range b.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			b.logger.Warn().Err(err).
				Str("type", event.Type).
				Str("entity_id", event.EntityID).
				Msg("event delivery failed")
		}
	}
	return nil
}

// OrNoop returns p, or Noop when p is nil.
func OrNoop(p Publisher) Publisher {
	if p == nil {
		return Noop{}
	}
	return p
}
