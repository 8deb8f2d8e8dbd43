package cqrs

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is an immutable fact about one aggregate. Concrete event
// types form a closed set per aggregate type.
type DomainEvent interface {
	EventType() string
	AggregateType() string
	AggregateID() uuid.UUID
	SchemaVersion() int
}

// Envelope pairs a domain event with its delivery metadata: the sequence
// is the aggregate's version after the event was applied.
type Envelope[E DomainEvent] struct {
	Event      E
	Sequence   int64
	OccurredAt time.Time
}

// Wrap builds an envelope stamped with the current time.
func Wrap[E DomainEvent](event E, sequence int64) Envelope[E] {
	return Envelope[E]{Event: event, Sequence: sequence, OccurredAt: time.Now().UTC()}
}
