package cqrs

// ProjectionResult is the outcome of folding one event onto read-model
// state: new state, a no-op with a reason, or a failure with a reason.
type ProjectionResult[S any] struct {
	state      *S
	noopReason string
	failReason string
}

func Projected[S any](state *S) ProjectionResult[S] {
	return ProjectionResult[S]{state: state}
}

func NoOp[S any](reason string) ProjectionResult[S] {
	return ProjectionResult[S]{noopReason: reason}
}

func Failed[S any](reason string) ProjectionResult[S] {
	return ProjectionResult[S]{failReason: reason}
}

func (r ProjectionResult[S]) IsSuccess() bool {
	return r.failReason == "" && r.noopReason == "" && r.state != nil
}

func (r ProjectionResult[S]) IsNoOp() bool {
	return r.noopReason != "" && r.state == nil
}

func (r ProjectionResult[S]) IsFailure() bool {
	return r.failReason != "" && r.state == nil
}

// State returns the projected state; nil unless IsSuccess.
func (r ProjectionResult[S]) State() *S { return r.state }

func (r ProjectionResult[S]) NoOpReason() string { return r.noopReason }

func (r ProjectionResult[S]) FailureReason() string { return r.failReason }

// Projector folds events onto read-model state. Implementations must be
// pure and deterministic; all storage happens around them, never inside.
type Projector[S any, E DomainEvent] interface {
	Project(current *S, env Envelope[E]) ProjectionResult[S]
}

// ProjectAll replays envelopes in order onto the current state. Envelopes
// at or below afterVersion are skipped, no-ops leave the state untouched,
// and the first failure stops the replay.
func ProjectAll[S any, E DomainEvent](p Projector[S, E], current *S, envs []Envelope[E], afterVersion int64) ProjectionResult[S] {
	state := current
	last := afterVersion
	for _, env := range envs {
		if env.Sequence <= last {
			continue
		}
		res := p.Project(state, env)
		if res.IsFailure() {
			return res
		}
		if res.IsSuccess() {
			state = res.State()
		}
		last = env.Sequence
	}
	return Projected(state)
}
