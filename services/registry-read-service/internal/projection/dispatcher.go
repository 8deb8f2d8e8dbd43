package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/orderflow/libs/cqrs"
	"github.com/md-rashed-zaman/orderflow/libs/product"
	"github.com/md-rashed-zaman/orderflow/services/registry-read-service/internal/broadcast"
)

// ErrUnknownAggregateType is returned for envelopes the dispatcher has no
// projector for. The poller treats it as a permanent failure.
var ErrUnknownAggregateType = errors.New("no projector registered for aggregate type")

// ViewStore persists product views.
type ViewStore interface {
	FindByID(ctx context.Context, id product.ProductID) (*product.View, error)
	Save(ctx context.Context, view *product.View) error
}

// Broadcaster fans a notification out to live subscribers.
type Broadcaster interface {
	Broadcast(n broadcast.Notification)
}

// Dispatcher routes decoded envelopes to the projector, persists the
// resulting view and notifies subscribers. One instance is shared by all
// poller workers; it holds no per-delivery state.
type Dispatcher struct {
	projector *ViewProjector
	views     ViewStore
	bus       Broadcaster
	logger    *slog.Logger
}

func NewDispatcher(views ViewStore, bus Broadcaster, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		projector: NewViewProjector(),
		views:     views,
		bus:       bus,
		logger:    logger,
	}
}

// Dispatch applies one envelope. A no-op result returns (noop=true, nil)
// so the caller can acknowledge the delivery without a view write. A
// failure result comes back as an error carrying the projector's reason.
func (d *Dispatcher) Dispatch(ctx context.Context, env product.Envelope) (noop bool, err error) {
	if env.Event.AggregateType() != product.AggregateProduct {
		return false, fmt.Errorf("%w: %q", ErrUnknownAggregateType, env.Event.AggregateType())
	}

	id := env.Event.ProductID()
	current, err := d.views.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load view %s: %w", id, err)
	}

	result := d.projector.Project(current, env)
	switch {
	case result.IsNoOp():
		d.logger.Info("projection no-op",
			"product_id", id.String(),
			"event_type", env.Event.EventType(),
			"sequence", env.Sequence,
			"reason", result.NoOpReason())
		return true, nil
	case result.IsFailure():
		d.logger.Error("projection failed",
			"product_id", id.String(),
			"event_type", env.Event.EventType(),
			"sequence", env.Sequence,
			"reason", result.FailureReason())
		return false, errors.New(result.FailureReason())
	}

	if err := d.views.Save(ctx, result.State()); err != nil {
		return false, fmt.Errorf("save view %s: %w", id, err)
	}

	d.bus.Broadcast(broadcast.Notification{
		Type:       env.Event.EventType(),
		ProductID:  id.String(),
		Sequence:   env.Sequence,
		OccurredAt: env.OccurredAt,
	})
	return false, nil
}

var _ cqrs.Projector[product.View, product.Event] = (*ViewProjector)(nil)
