package nesting

import (
	"context"
	"errors"
	"sync"

	"github.com/piwi3910/slabnest/internal/model"
)

type engineCall struct {
	ctx context.Context
	req Request
	cb  Callbacks
}

// fakeEngine records every invocation. When plan is set it completes each
// request synchronously with plan's answer; otherwise tests complete calls
// by hand.
type fakeEngine struct {
	mu    sync.Mutex
	calls []engineCall
	plan  func(req Request) (model.PlacementResult, error)
}

func (e *fakeEngine) Start(ctx context.Context, req Request, cb Callbacks) {
	e.mu.Lock()
	e.calls = append(e.calls, engineCall{ctx: ctx, req: req, cb: cb})
	plan := e.plan
	e.mu.Unlock()

	if plan == nil {
		return
	}
	cb.Progress()
	res, err := plan(req)
	if err != nil {
		cb.Fail(err)
		return
	}
	cb.Complete(res)
}

func (e *fakeEngine) Calls() []engineCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engineCall(nil), e.calls...)
}

func (e *fakeEngine) Last() engineCall {
	calls := e.Calls()
	return calls[len(calls)-1]
}

// place places up to n copies in input order and reports the rest as remaining.
func place(req Request, n int) model.PlacementResult {
	var res model.PlacementResult
	for _, o := range req.Objects {
		left := o.RemainingCopies
		for left > 0 && n > 0 {
			res.Placed = append(res.Placed, model.Placement{
				Object:    o,
				Transform: model.Translation(req.Sheet.Origin.X, req.Sheet.Origin.Y),
			})
			left--
			n--
		}
		if left > 0 {
			r := o.Clone()
			r.RemainingCopies = left
			res.Remaining = append(res.Remaining, r)
		}
	}
	return res
}

// perSheet answers every request by placing up to n copies.
func perSheet(n int) func(Request) (model.PlacementResult, error) {
	return func(req Request) (model.PlacementResult, error) {
		return place(req, n), nil
	}
}

// failOn fails the given attempt and places n copies on every other one.
func failOn(attempt, n int) func(Request) (model.PlacementResult, error) {
	return func(req Request) (model.PlacementResult, error) {
		if req.Attempt == attempt {
			return model.PlacementResult{}, errors.New("kernel crashed")
		}
		return place(req, n), nil
	}
}

type recordingScene struct {
	mu      sync.Mutex
	clears  int
	commits []model.SheetResult
	err     error
}

func (s *recordingScene) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	return s.err
}

func (s *recordingScene) Commit(sheet model.SheetResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits = append(s.commits, sheet)
	return s.err
}

type recordingRecorder struct {
	mu      sync.Mutex
	records []JobRecord
}

func (r *recordingRecorder) Record(_ context.Context, rec JobRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func objects(copies ...int) []model.Object {
	out := make([]model.Object, len(copies))
	for i, c := range copies {
		out[i] = model.NewObject(string(rune('A'+i)), 10, 10, c)
	}
	return out
}

func job(objs []model.Object) Job {
	return Job{Objects: objs, Sheet: model.NewSheet(100, 100), Params: model.DefaultParameters()}
}
