// Package nesting drives a packing engine across one or more sheets until
// every copy of every object is placed or no further progress is possible.
package nesting

import (
	"context"
	"errors"
	"time"

	"github.com/piwi3910/slabnest/internal/model"
)

var (
	// ErrNoJob is returned by Output when no job has ever been triggered.
	ErrNoJob = errors.New("no trigger received yet")
	// ErrJobInProgress is returned by Output while a job is still running.
	ErrJobInProgress = errors.New("nesting job in progress")
	// ErrInconsistentResult marks an engine result that does not match its input batch.
	ErrInconsistentResult = errors.New("inconsistent placement result")
)

// Job is the input of one nesting run.
type Job struct {
	Objects []model.Object
	Sheet   model.Sheet
	Params  model.Parameters
}

// Request is a single engine invocation: one sheet, the objects still to place.
type Request struct {
	JobID   string
	Attempt int
	Objects []model.Object
	Sheet   model.Sheet
	Params  model.Parameters
}

// Callbacks are handed to the engine with every request. They may be called
// from any goroutine. Exactly one of Complete or Fail must be called.
type Callbacks struct {
	Progress func()
	Complete func(model.PlacementResult)
	Fail     func(error)
}

// Engine packs objects onto one sheet asynchronously. Start must not block.
type Engine interface {
	Start(ctx context.Context, req Request, cb Callbacks)
}

// Scheduler runs posted functions one at a time, in order, on a single
// goroutine. Post reports false when the scheduler no longer accepts work.
type Scheduler interface {
	Post(fn func()) bool
}

// Scene receives the placed geometry of a job as it is produced.
type Scene interface {
	Clear() error
	Commit(sheet model.SheetResult) error
}

// Recorder persists finished jobs.
type Recorder interface {
	Record(ctx context.Context, rec JobRecord) error
}

// JobRecord is what a Recorder stores for a finished job.
type JobRecord struct {
	JobID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Attempts   int
	Params     model.Parameters
	Result     model.NestResult
	Err        error // engine failure that ended the job, if any
}

// ProgressEvent is emitted while an attempt is running. Done marks the
// reset emitted once the job has finished.
type ProgressEvent struct {
	JobID   string
	Attempt int
	Done    bool
}

// Phase is the controller state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseArmed
	PhaseRunning
	PhaseFinalizing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseArmed:
		return "armed"
	case PhaseRunning:
		return "running"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	default:
		return "idle"
	}
}

// State is a snapshot of the controller.
type State struct {
	Phase          Phase
	JobID          string
	Attempt        int
	Sheet          model.Sheet
	RemainingTotal int
	Batches        int
	Unplaced       int
	Err            error
}
