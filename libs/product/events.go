package product

import (
	"github.com/google/uuid"
	"github.com/md-rashed-zaman/orderflow/libs/cqrs"
)

// AggregateProduct is the aggregate type name recorded on every product
// event and used to route outbox deliveries.
const AggregateProduct = "Product"

// EventVersionV1 is the current product event schema version. The poller
// refuses to dispatch versions it does not know.
const EventVersionV1 = 1

// Kind names one product event type. The set is closed: the projector
// fails on anything it does not recognize instead of skipping it.
type Kind string

const (
	KindRegistered         Kind = "ProductRegistered"
	KindRetired            Kind = "ProductRetired"
	KindNameUpdated        Kind = "ProductNameUpdated"
	KindDescriptionUpdated Kind = "ProductDescriptionUpdated"
)

// Event is a product domain event.
type Event interface {
	cqrs.DomainEvent
	ProductID() ProductID
}

// Envelope is a product event plus its delivery metadata.
type Envelope = cqrs.Envelope[Event]

type Registered struct {
	ID          ProductID
	SkuID       SkuID
	Name        string
	Description string
}

func (e Registered) EventType() string     { return string(KindRegistered) }
func (e Registered) AggregateType() string { return AggregateProduct }
func (e Registered) AggregateID() uuid.UUID {
	return e.ID.UUID()
}
func (e Registered) SchemaVersion() int   { return EventVersionV1 }
func (e Registered) ProductID() ProductID { return e.ID }

type Retired struct {
	ID ProductID
}

func (e Retired) EventType() string      { return string(KindRetired) }
func (e Retired) AggregateType() string  { return AggregateProduct }
func (e Retired) AggregateID() uuid.UUID { return e.ID.UUID() }
func (e Retired) SchemaVersion() int     { return EventVersionV1 }
func (e Retired) ProductID() ProductID   { return e.ID }

type NameUpdated struct {
	ID      ProductID
	OldName string
	NewName string
}

func (e NameUpdated) EventType() string      { return string(KindNameUpdated) }
func (e NameUpdated) AggregateType() string  { return AggregateProduct }
func (e NameUpdated) AggregateID() uuid.UUID { return e.ID.UUID() }
func (e NameUpdated) SchemaVersion() int     { return EventVersionV1 }
func (e NameUpdated) ProductID() ProductID   { return e.ID }

type DescriptionUpdated struct {
	ID             ProductID
	OldDescription string
	NewDescription string
}

func (e DescriptionUpdated) EventType() string      { return string(KindDescriptionUpdated) }
func (e DescriptionUpdated) AggregateType() string  { return AggregateProduct }
func (e DescriptionUpdated) AggregateID() uuid.UUID { return e.ID.UUID() }
func (e DescriptionUpdated) SchemaVersion() int     { return EventVersionV1 }
func (e DescriptionUpdated) ProductID() ProductID   { return e.ID }
