package projection

import (
	"encoding/json"
	"sort"

	"github.com/md-rashed-zaman/orderflow/libs/cqrs"
	"github.com/md-rashed-zaman/orderflow/libs/product"
)

// ViewProjector folds product events into product views. It is a pure
// state machine: no IO, no clock beyond the envelope timestamps.
type ViewProjector struct{}

func NewViewProjector() *ViewProjector {
	return &ViewProjector{}
}

// Project applies one envelope to the current view (nil when the product
// has no view yet). Events at or below the view's version are duplicates
// of already-applied work and resolve as no-ops, never failures.
func (vp *ViewProjector) Project(current *product.View, env product.Envelope) cqrs.ProjectionResult[product.View] {
	switch ev := env.Event.(type) {
	case product.Registered:
		return vp.projectRegistered(current, env, ev)
	case product.Retired:
		return vp.projectRetired(current, env)
	case product.NameUpdated:
		return vp.projectNameUpdated(current, env, ev)
	case product.DescriptionUpdated:
		return vp.projectDescriptionUpdated(current, env, ev)
	default:
		return cqrs.Failed[product.View]("Unknown event type: " + env.Event.EventType())
	}
}

// projectRegistered creates the view. A retired view may be replaced by a
// fresh registration; an active one may not.
func (vp *ViewProjector) projectRegistered(current *product.View, env product.Envelope, ev product.Registered) cqrs.ProjectionResult[product.View] {
	if current != nil && current.Status == product.LifecycleActive {
		return cqrs.Failed[product.View]("Product already exists and is active")
	}
	next := product.View{
		ID:          ev.ID,
		Version:     env.Sequence,
		SkuID:       ev.SkuID,
		Name:        ev.Name,
		Description: ev.Description,
		Status:      product.LifecycleActive,
		Events:      []product.ViewEvent{viewEvent(env)},
		CreatedAt:   env.OccurredAt,
		UpdatedAt:   env.OccurredAt,
	}
	return validated(next)
}

func (vp *ViewProjector) projectRetired(current *product.View, env product.Envelope) cqrs.ProjectionResult[product.View] {
	if current == nil || current.Status == product.LifecycleRetired {
		return cqrs.Failed[product.View]("Already retired or never existed")
	}
	if env.Sequence <= current.Version {
		return cqrs.NoOp[product.View]("Stale retirement ignored")
	}
	next := *current
	next.Status = product.LifecycleRetired
	next.Version = env.Sequence
	next.UpdatedAt = env.OccurredAt
	next.Events = appendEvent(current.Events, env)
	return validated(next)
}

func (vp *ViewProjector) projectNameUpdated(current *product.View, env product.Envelope, ev product.NameUpdated) cqrs.ProjectionResult[product.View] {
	if current == nil || current.Status == product.LifecycleRetired {
		return cqrs.Failed[product.View]("Cannot update name of non-existent or retired product")
	}
	if env.Sequence <= current.Version {
		return cqrs.NoOp[product.View]("Stale name update ignored")
	}
	next := *current
	next.Name = ev.NewName
	next.Version = env.Sequence
	next.UpdatedAt = env.OccurredAt
	next.Events = appendEvent(current.Events, env)
	return validated(next)
}

func (vp *ViewProjector) projectDescriptionUpdated(current *product.View, env product.Envelope, ev product.DescriptionUpdated) cqrs.ProjectionResult[product.View] {
	if current == nil || current.Status == product.LifecycleRetired {
		return cqrs.Failed[product.View]("Cannot update description of non-existent or retired product")
	}
	if env.Sequence <= current.Version {
		return cqrs.NoOp[product.View]("Stale description update ignored")
	}
	next := *current
	next.Description = ev.NewDescription
	next.Version = env.Sequence
	next.UpdatedAt = env.OccurredAt
	next.Events = appendEvent(current.Events, env)
	return validated(next)
}

func validated(next product.View) cqrs.ProjectionResult[product.View] {
	view, err := product.NewView(next)
	if err != nil {
		return cqrs.Failed[product.View](err.Error())
	}
	return cqrs.Projected(view)
}

func viewEvent(env product.Envelope) product.ViewEvent {
	payload, err := product.EncodePayload(env.Event)
	if err != nil {
		payload = json.RawMessage(`{}`)
	}
	return product.ViewEvent{
		Kind:       product.Kind(env.Event.EventType()),
		OccurredAt: env.OccurredAt,
		Sequence:   env.Sequence,
		Payload:    payload,
	}
}

// appendEvent keeps the view's history sorted by sequence even when
// deliveries interleave across batches.
func appendEvent(history []product.ViewEvent, env product.Envelope) []product.ViewEvent {
	merged := make([]product.ViewEvent, len(history), len(history)+1)
	copy(merged, history)
	merged = append(merged, viewEvent(env))
	sort.Slice(merged, func(i, j int) bool { return merged[i].Sequence < merged[j].Sequence })
	return merged
}
