package nesting

import (
	"context"
	"fmt"

	"github.com/piwi3910/slabnest/internal/loop"
	"github.com/piwi3910/slabnest/internal/model"
)

// Run executes one job to completion on a private event loop and returns
// its output. Options are applied to the controller it creates.
func Run(ctx context.Context, engine Engine, job Job, opts ...Option) (model.NestResult, error) {
	result, _, err := RunWithState(ctx, engine, job, opts...)
	return result, err
}

// RunWithState is Run that also returns the final controller state. Its Err
// holds the engine failure that ended the job early, if any.
func RunWithState(ctx context.Context, engine Engine, job Job, opts ...Option) (model.NestResult, State, error) {
	l := loop.New()
	opts = append(opts, OnDone(func(model.NestResult) { l.Close() }))
	ctrl := NewController(engine, l, opts...)

	if err := ctrl.Trigger(ctx, job); err != nil {
		return model.NestResult{}, State{}, err
	}
	if err := l.Run(ctx); err != nil {
		return model.NestResult{}, State{}, fmt.Errorf("nesting interrupted: %w", err)
	}
	result, err := ctrl.Output()
	if err != nil {
		return model.NestResult{}, State{}, err
	}
	return result, ctrl.State(), nil
}
