package projection

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/orderflow/libs/product"
)

func envAt(ev product.Event, seq int64, at time.Time) product.Envelope {
	return product.Envelope{Event: ev, Sequence: seq, OccurredAt: at}
}

func registeredView(t *testing.T, id product.ProductID) *product.View {
	t.Helper()
	vp := NewViewProjector()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	res := vp.Project(nil, envAt(product.Registered{
		ID: id, SkuID: "ABC-12345", Name: "Widget", Description: "A widget",
	}, 1, at))
	if !res.IsSuccess() {
		t.Fatalf("seed registration failed: noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}
	return res.State()
}

func TestProjectRegisteredCreatesView(t *testing.T) {
	id := product.NewProductID()
	view := registeredView(t, id)

	if view.ID != id || view.Version != 1 {
		t.Fatalf("view identity wrong: %+v", view)
	}
	if view.Status != product.LifecycleActive {
		t.Fatalf("expected active view, got %s", view.Status)
	}
	if view.Name != "Widget" || view.SkuID != "ABC-12345" {
		t.Fatalf("view fields wrong: %+v", view)
	}
	if len(view.Events) != 1 || view.Events[0].Kind != product.KindRegistered {
		t.Fatalf("view history wrong: %+v", view.Events)
	}
}

func TestProjectRegisteredOnActiveViewFails(t *testing.T) {
	id := product.NewProductID()
	view := registeredView(t, id)

	res := NewViewProjector().Project(view, envAt(product.Registered{
		ID: id, SkuID: "ABC-12345", Name: "Widget",
	}, 1, time.Now().UTC()))
	if !res.IsFailure() {
		t.Fatalf("expected failure, got noop=%q", res.NoOpReason())
	}
	if res.FailureReason() != "Product already exists and is active" {
		t.Fatalf("unexpected reason %q", res.FailureReason())
	}
}

func TestProjectRegisteredReplacesRetiredView(t *testing.T) {
	id := product.NewProductID()
	vp := NewViewProjector()
	view := registeredView(t, id)
	retired := vp.Project(view, envAt(product.Retired{ID: id}, 2, time.Now().UTC())).State()

	res := vp.Project(retired, envAt(product.Registered{
		ID: id, SkuID: "ABC-12345", Name: "Widget v2",
	}, 3, time.Now().UTC()))
	if !res.IsSuccess() {
		t.Fatalf("expected fresh view over retired one: noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}
	next := res.State()
	if next.Status != product.LifecycleActive || next.Version != 3 || next.Name != "Widget v2" {
		t.Fatalf("replacement view wrong: %+v", next)
	}
	if len(next.Events) != 1 {
		t.Fatalf("replacement view must start a fresh history, got %d entries", len(next.Events))
	}
}

func TestProjectRetired(t *testing.T) {
	id := product.NewProductID()
	view := registeredView(t, id)
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	res := NewViewProjector().Project(view, envAt(product.Retired{ID: id}, 2, at))
	if !res.IsSuccess() {
		t.Fatalf("expected success: noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}
	next := res.State()
	if next.Status != product.LifecycleRetired || next.Version != 2 {
		t.Fatalf("retire not applied: %+v", next)
	}
	if !next.UpdatedAt.Equal(at) {
		t.Fatalf("updated_at not advanced: %s", next.UpdatedAt)
	}
	if view.Status != product.LifecycleActive {
		t.Fatalf("projector mutated its input view")
	}
}

func TestProjectRetiredOnMissingOrRetiredViewFails(t *testing.T) {
	id := product.NewProductID()
	vp := NewViewProjector()

	res := vp.Project(nil, envAt(product.Retired{ID: id}, 1, time.Now().UTC()))
	if !res.IsFailure() || res.FailureReason() != "Already retired or never existed" {
		t.Fatalf("expected failure on missing view, got noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}

	view := registeredView(t, id)
	retired := vp.Project(view, envAt(product.Retired{ID: id}, 2, time.Now().UTC())).State()
	res = vp.Project(retired, envAt(product.Retired{ID: id}, 3, time.Now().UTC()))
	if !res.IsFailure() || res.FailureReason() != "Already retired or never existed" {
		t.Fatalf("expected failure on retired view, got noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}
}

func TestProjectStaleRetirementIsNoOp(t *testing.T) {
	id := product.NewProductID()
	view := registeredView(t, id)
	view.Version = 5

	res := NewViewProjector().Project(view, envAt(product.Retired{ID: id}, 5, time.Now().UTC()))
	if !res.IsNoOp() || res.NoOpReason() != "Stale retirement ignored" {
		t.Fatalf("expected stale noop, got noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}
}

func TestProjectNameUpdated(t *testing.T) {
	id := product.NewProductID()
	view := registeredView(t, id)

	res := NewViewProjector().Project(view, envAt(product.NameUpdated{
		ID: id, OldName: "Widget", NewName: "Gadget",
	}, 2, time.Now().UTC()))
	if !res.IsSuccess() {
		t.Fatalf("expected success: noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}
	next := res.State()
	if next.Name != "Gadget" || next.Version != 2 {
		t.Fatalf("name update not applied: %+v", next)
	}
	if len(next.Events) != 2 || next.Events[1].Kind != product.KindNameUpdated {
		t.Fatalf("history wrong: %+v", next.Events)
	}
}

func TestProjectNameUpdatedFailsWithoutActiveView(t *testing.T) {
	id := product.NewProductID()
	vp := NewViewProjector()
	env := envAt(product.NameUpdated{ID: id, OldName: "a", NewName: "b"}, 2, time.Now().UTC())

	res := vp.Project(nil, env)
	if !res.IsFailure() || res.FailureReason() != "Cannot update name of non-existent or retired product" {
		t.Fatalf("expected failure on missing view, got noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}

	view := registeredView(t, id)
	retired := vp.Project(view, envAt(product.Retired{ID: id}, 2, time.Now().UTC())).State()
	res = vp.Project(retired, envAt(product.NameUpdated{ID: id, OldName: "a", NewName: "b"}, 3, time.Now().UTC()))
	if !res.IsFailure() || res.FailureReason() != "Cannot update name of non-existent or retired product" {
		t.Fatalf("expected failure on retired view, got noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}
}

func TestProjectStaleNameUpdateIsNoOp(t *testing.T) {
	id := product.NewProductID()
	view := registeredView(t, id)
	view.Version = 3

	// Equal sequence counts as stale: the event was already applied.
	res := NewViewProjector().Project(view, envAt(product.NameUpdated{
		ID: id, OldName: "Widget", NewName: "Gadget",
	}, 3, time.Now().UTC()))
	if !res.IsNoOp() || res.NoOpReason() != "Stale name update ignored" {
		t.Fatalf("expected stale noop, got noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}
}

func TestProjectDescriptionUpdated(t *testing.T) {
	id := product.NewProductID()
	view := registeredView(t, id)
	vp := NewViewProjector()

	res := vp.Project(view, envAt(product.DescriptionUpdated{
		ID: id, OldDescription: "A widget", NewDescription: "Improved",
	}, 2, time.Now().UTC()))
	if !res.IsSuccess() || res.State().Description != "Improved" {
		t.Fatalf("description update not applied: noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}

	res = vp.Project(nil, envAt(product.DescriptionUpdated{ID: id}, 2, time.Now().UTC()))
	if !res.IsFailure() || res.FailureReason() != "Cannot update description of non-existent or retired product" {
		t.Fatalf("expected failure on missing view, got noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}

	stale := registeredView(t, id)
	stale.Version = 4
	res = vp.Project(stale, envAt(product.DescriptionUpdated{ID: id}, 2, time.Now().UTC()))
	if !res.IsNoOp() || res.NoOpReason() != "Stale description update ignored" {
		t.Fatalf("expected stale noop, got noop=%q fail=%q", res.NoOpReason(), res.FailureReason())
	}
}

func TestHistoryStaysSortedBySequence(t *testing.T) {
	id := product.NewProductID()
	view := registeredView(t, id)
	vp := NewViewProjector()

	after3 := vp.Project(view, envAt(product.NameUpdated{ID: id, OldName: "Widget", NewName: "Gadget"}, 3, time.Now().UTC()))
	if !after3.IsSuccess() {
		t.Fatalf("seq 3 projection failed")
	}
	// Sequence 4 lands next; history must read 1, 3, 4.
	after4 := vp.Project(after3.State(), envAt(product.DescriptionUpdated{ID: id, NewDescription: "x"}, 4, time.Now().UTC()))
	if !after4.IsSuccess() {
		t.Fatalf("seq 4 projection failed")
	}
	history := after4.State().Events
	if len(history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].Sequence <= history[i-1].Sequence {
			t.Fatalf("history out of order: %+v", history)
		}
	}
}
