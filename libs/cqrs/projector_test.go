package cqrs

import (
	"testing"

	"github.com/google/uuid"
)

type counterEvent struct {
	id    uuid.UUID
	delta int
}

func (e counterEvent) EventType() string      { return "CounterBumped" }
func (e counterEvent) AggregateType() string  { return "Counter" }
func (e counterEvent) AggregateID() uuid.UUID { return e.id }
func (e counterEvent) SchemaVersion() int     { return 1 }

type counterState struct {
	Total   int
	Version int64
}

type counterProjector struct{}

func (counterProjector) Project(current *counterState, env Envelope[counterEvent]) ProjectionResult[counterState] {
	if env.Event.delta == 0 {
		return NoOp[counterState]("zero delta")
	}
	if env.Event.delta < 0 {
		return Failed[counterState]("negative delta")
	}
	next := counterState{Version: env.Sequence}
	if current != nil {
		next.Total = current.Total
	}
	next.Total += env.Event.delta
	return Projected(&next)
}

func TestProjectionResultStates(t *testing.T) {
	state := counterState{Total: 1}

	success := Projected(&state)
	if !success.IsSuccess() || success.IsNoOp() || success.IsFailure() {
		t.Fatalf("success result misclassified")
	}
	if success.State() != &state {
		t.Fatalf("success result lost its state")
	}

	noop := NoOp[counterState]("nothing to do")
	if !noop.IsNoOp() || noop.IsSuccess() || noop.IsFailure() {
		t.Fatalf("noop result misclassified")
	}
	if noop.NoOpReason() != "nothing to do" {
		t.Fatalf("unexpected noop reason %q", noop.NoOpReason())
	}
	if noop.State() != nil {
		t.Fatalf("noop result should carry no state")
	}

	failed := Failed[counterState]("broken")
	if !failed.IsFailure() || failed.IsSuccess() || failed.IsNoOp() {
		t.Fatalf("failure result misclassified")
	}
	if failed.FailureReason() != "broken" {
		t.Fatalf("unexpected failure reason %q", failed.FailureReason())
	}
}

func TestProjectAllAppliesInOrder(t *testing.T) {
	id := uuid.New()
	envs := []Envelope[counterEvent]{
		Wrap(counterEvent{id: id, delta: 1}, 1),
		Wrap(counterEvent{id: id, delta: 2}, 2),
		Wrap(counterEvent{id: id, delta: 3}, 3),
	}

	result := ProjectAll[counterState, counterEvent](counterProjector{}, nil, envs, 0)
	if !result.IsSuccess() {
		t.Fatalf("expected success, got noop=%q fail=%q", result.NoOpReason(), result.FailureReason())
	}
	if result.State().Total != 6 {
		t.Fatalf("expected total 6, got %d", result.State().Total)
	}
	if result.State().Version != 3 {
		t.Fatalf("expected version 3, got %d", result.State().Version)
	}
}

func TestProjectAllSkipsAlreadyApplied(t *testing.T) {
	id := uuid.New()
	current := &counterState{Total: 3, Version: 2}
	envs := []Envelope[counterEvent]{
		Wrap(counterEvent{id: id, delta: 1}, 1),
		Wrap(counterEvent{id: id, delta: 2}, 2),
		Wrap(counterEvent{id: id, delta: 3}, 3),
	}

	result := ProjectAll[counterState, counterEvent](counterProjector{}, current, envs, 2)
	if !result.IsSuccess() {
		t.Fatalf("expected success")
	}
	if result.State().Total != 6 {
		t.Fatalf("expected total 6 after skipping applied events, got %d", result.State().Total)
	}
}

func TestProjectAllStopsOnFailure(t *testing.T) {
	id := uuid.New()
	envs := []Envelope[counterEvent]{
		Wrap(counterEvent{id: id, delta: 1}, 1),
		Wrap(counterEvent{id: id, delta: -1}, 2),
		Wrap(counterEvent{id: id, delta: 5}, 3),
	}

	result := ProjectAll[counterState, counterEvent](counterProjector{}, nil, envs, 0)
	if !result.IsFailure() {
		t.Fatalf("expected failure")
	}
	if result.FailureReason() != "negative delta" {
		t.Fatalf("unexpected failure reason %q", result.FailureReason())
	}
}

func TestProjectAllNoOpKeepsState(t *testing.T) {
	id := uuid.New()
	envs := []Envelope[counterEvent]{
		Wrap(counterEvent{id: id, delta: 2}, 1),
		Wrap(counterEvent{id: id, delta: 0}, 2),
		Wrap(counterEvent{id: id, delta: 4}, 3),
	}

	result := ProjectAll[counterState, counterEvent](counterProjector{}, nil, envs, 0)
	if !result.IsSuccess() {
		t.Fatalf("expected success")
	}
	if result.State().Total != 6 {
		t.Fatalf("expected noop event to leave state untouched, got total %d", result.State().Total)
	}
}
