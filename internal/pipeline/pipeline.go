// Package pipeline runs a flow as an ordered list of named steps over a
// single mutable state value, checkpointing the state after every step so
// a failed run leaves a full trail of what it produced.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// StepError marks which step a run died in. State is the state value
// passed to Run, holding everything produced before the failure.
type StepError struct {
	Step  string
	State any
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Step is one named unit of work. Fn mutates the shared state in place.
type Step[S any] struct {
	Name string
	Fn   func(ctx context.Context, state *S) error
}

// Runner executes steps in order against one state value.
type Runner[S any] struct {
	log    zerolog.Logger
	ckpt   Checkpointer
	onStep func(name string, index, total int)
}

// Option configures a Runner.
type Option[S any] func(*Runner[S])

// WithCheckpointer saves the state after every step and on failure.
func WithCheckpointer[S any](c Checkpointer) Option[S] {
	return func(r *Runner[S]) { r.ckpt = c }
}

// WithProgress is called before each step starts.
func WithProgress[S any](fn func(name string, index, total int)) Option[S] {
	return func(r *Runner[S]) { r.onStep = fn }
}

func NewRunner[S any](log zerolog.Logger, opts ...Option[S]) *Runner[S] {
	r := &Runner[S]{log: log, ckpt: nopCheckpointer{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes the steps in order. The first failure stops the run: the
// state is checkpointed under a FAILED_<step> label and the error comes
// back wrapped in a StepError. Context cancellation between steps also
// stops the run.
func (r *Runner[S]) Run(ctx context.Context, state *S, steps []Step[S]) error {
	total := len(steps)
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			r.ckpt.Save("FAILED_"+step.Name, state)
			return &StepError{Step: step.Name, State: state, Err: err}
		}
		if r.onStep != nil {
			r.onStep(step.Name, i, total)
		}
		r.log.Info().Str("step", step.Name).Int("index", i+1).Int("total", total).Msg("running step")
		if err := step.Fn(ctx, state); err != nil {
			r.log.Error().Str("step", step.Name).Err(err).Msg("step failed")
			r.ckpt.Save("FAILED_"+step.Name, state)
			return &StepError{Step: step.Name, State: state, Err: err}
		}
		r.ckpt.Save(step.Name, state)
	}
	return nil
}

type nopCheckpointer struct{}

func (nopCheckpointer) Save(string, any) {}
