package nesting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/piwi3910/slabnest/internal/model"
)

// Span names and attribute keys.
const (
	SpanJob     = "slabnest.nesting.job"
	SpanAttempt = "slabnest.nesting.attempt"

	AttrJobID          = "slabnest.job.id"
	AttrAttempt        = "slabnest.attempt"
	AttrObjects        = "slabnest.objects"
	AttrPlaced         = "slabnest.placed"
	AttrRemainingTotal = "slabnest.remaining_total"
	AttrSheets         = "slabnest.sheets"
)

const noTriggerWarning = "no trigger received yet"

// Option configures a Controller.
type Option func(*Controller)

// WithSheetPolicy sets how the sheet advances between attempts.
func WithSheetPolicy(p SheetPolicy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithLogger sets the log entry used by the controller.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Controller) { c.log = l }
}

// WithTracer sets the tracer used for job and attempt spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) { c.tracer = t }
}

// WithScene sets the scene that receives placed geometry.
func WithScene(s Scene) Option {
	return func(c *Controller) { c.scene = s }
}

// WithRecorder sets where finished jobs are persisted.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// OnProgress registers a progress listener.
func OnProgress(fn func(ProgressEvent)) Option {
	return func(c *Controller) { c.progressFns = append(c.progressFns, fn) }
}

// OnDone registers a listener called once per finished job.
func OnDone(fn func(model.NestResult)) Option {
	return func(c *Controller) { c.doneFns = append(c.doneFns, fn) }
}

// OnWarning registers a listener for user-facing warnings.
func OnWarning(fn func(string)) Option {
	return func(c *Controller) { c.warnFns = append(c.warnFns, fn) }
}

// attemptToken identifies the engine invocation a callback belongs to.
type attemptToken struct {
	jobID   string
	attempt int
}

// Controller runs nesting jobs. Trigger and Output may be called from any
// goroutine; engine callbacks are serialized through the Scheduler.
type Controller struct {
	engine   Engine
	sched    Scheduler
	policy   SheetPolicy
	scene    Scene
	recorder Recorder
	log      *logrus.Entry
	tracer   trace.Tracer

	progressFns []func(ProgressEvent)
	doneFns     []func(model.NestResult)
	warnFns     []func(string)

	mu            sync.Mutex
	phase         Phase
	jobID         string
	ctx           context.Context
	attempt       int
	sheet         model.Sheet
	params        model.Parameters
	batch         []model.Object // input of the running attempt
	lastRemaining int
	agg           *Aggregator
	unplaced      []model.Object
	failure       error
	startedAt     time.Time
	jobSpan       trace.Span
	attemptSpan   trace.Span
	output        *model.NestResult
}

// NewController creates an idle controller.
func NewController(engine Engine, sched Scheduler, opts ...Option) *Controller {
	c := &Controller{
		engine: engine,
		sched:  sched,
		policy: DefaultSheetPolicy,
		log:    logrus.WithField("component", "nesting"),
		tracer: otel.Tracer("github.com/piwi3910/slabnest/internal/nesting"),
		phase:  PhaseIdle,
		agg:    NewAggregator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Trigger starts a job. Invalid input is rejected with an error wrapping
// model.ErrInvalidInput and the controller stays idle. A trigger while a job
// is armed, running or awaiting collection is ignored.
func (c *Controller) Trigger(ctx context.Context, job Job) error {
	c.mu.Lock()
	if c.phase != PhaseIdle {
		phase := c.phase
		c.mu.Unlock()
		c.log.WithField("phase", phase).Debug("ignoring trigger while a job is active")
		return nil
	}
	if err := model.Validate(job.Objects, job.Sheet, job.Params); err != nil {
		c.mu.Unlock()
		c.log.WithError(err).Warn("rejecting nesting job")
		c.warn(err.Error())
		return err
	}

	c.phase = PhaseArmed
	batch := make([]model.Object, 0, len(job.Objects))
	for _, o := range job.Objects {
		if o.Copies == 0 {
			continue
		}
		clone := o.Clone()
		clone.RemainingCopies = clone.Copies
		batch = append(batch, clone)
	}

	c.jobID = uuid.New().String()[:8]
	c.output = nil
	c.attempt = 0
	c.sheet = job.Sheet
	c.params = job.Params
	c.batch = batch
	c.lastRemaining = model.RemainingTotal(batch)
	c.agg = NewAggregator()
	c.unplaced = nil
	c.failure = nil
	c.startedAt = time.Now()
	c.ctx, c.jobSpan = c.tracer.Start(ctx, SpanJob, trace.WithAttributes(
		attribute.String(AttrJobID, c.jobID),
		attribute.Int(AttrObjects, len(batch)),
		attribute.Int(AttrRemainingTotal, c.lastRemaining),
	))
	log := c.log.WithField("job", c.jobID)
	log.WithFields(logrus.Fields{
		"objects": len(batch),
		"copies":  c.lastRemaining,
		"sheet":   fmt.Sprintf("%gx%g", job.Sheet.Width, job.Sheet.Height),
	}).Info("starting nesting job")

	c.phase = PhaseRunning
	actx, req, cb := c.startAttemptLocked()
	c.mu.Unlock()

	if c.scene != nil {
		if err := c.scene.Clear(); err != nil {
			log.WithError(err).Warn("failed to clear scene")
		}
	}
	c.engine.Start(actx, req, cb)
	return nil
}

// startAttemptLocked opens the attempt span and builds the engine request
// for the current attempt. c.mu must be held.
func (c *Controller) startAttemptLocked() (context.Context, Request, Callbacks) {
	ctx, span := c.tracer.Start(c.ctx, SpanAttempt, trace.WithAttributes(
		attribute.String(AttrJobID, c.jobID),
		attribute.Int(AttrAttempt, c.attempt),
		attribute.Int(AttrObjects, len(c.batch)),
		attribute.Int(AttrRemainingTotal, model.RemainingTotal(c.batch)),
	))
	c.attemptSpan = span

	c.log.WithFields(logrus.Fields{
		"job":       c.jobID,
		"attempt":   c.attempt,
		"remaining": model.RemainingTotal(c.batch),
		"origin":    fmt.Sprintf("%g,%g", c.sheet.Origin.X, c.sheet.Origin.Y),
	}).Debug("invoking packing engine")

	req := Request{
		JobID:   c.jobID,
		Attempt: c.attempt,
		Objects: model.CloneObjects(c.batch),
		Sheet:   c.sheet,
		Params:  c.params,
	}
	return ctx, req, c.callbacks(attemptToken{jobID: c.jobID, attempt: c.attempt})
}

// callbacks marshals engine callbacks onto the scheduler.
func (c *Controller) callbacks(tok attemptToken) Callbacks {
	post := func(fn func()) {
		if !c.sched.Post(fn) {
			c.log.WithFields(logrus.Fields{"job": tok.jobID, "attempt": tok.attempt}).
				Warn("scheduler closed, dropping engine callback")
		}
	}
	return Callbacks{
		Progress: func() { post(func() { c.progress(tok) }) },
		Complete: func(res model.PlacementResult) { post(func() { c.complete(tok, res, nil) }) },
		Fail: func(err error) {
			if err == nil {
				err = fmt.Errorf("engine reported failure without an error")
			}
			post(func() { c.complete(tok, model.PlacementResult{}, err) })
		},
	}
}

func (c *Controller) currentLocked(tok attemptToken) bool {
	return c.phase == PhaseRunning && tok.jobID == c.jobID && tok.attempt == c.attempt
}

func (c *Controller) progress(tok attemptToken) {
	c.mu.Lock()
	if !c.currentLocked(tok) {
		c.mu.Unlock()
		return
	}
	fns := c.progressFns
	c.mu.Unlock()

	ev := ProgressEvent{JobID: tok.jobID, Attempt: tok.attempt}
	for _, fn := range fns {
		fn(ev)
	}
}

// complete is the single entry point for attempt results. A non-nil err
// marks the attempt as failed.
func (c *Controller) complete(tok attemptToken, res model.PlacementResult, err error) {
	c.mu.Lock()
	if !c.currentLocked(tok) {
		c.mu.Unlock()
		c.log.WithFields(logrus.Fields{"job": tok.jobID, "attempt": tok.attempt}).
			Debug("dropping stale engine callback")
		return
	}
	log := c.log.WithFields(logrus.Fields{"job": c.jobID, "attempt": c.attempt})

	if err == nil {
		err = checkResult(c.batch, res)
	}
	if err != nil {
		log.WithError(err).Error("packing engine failed, remaining objects stay unplaced")
		c.attemptSpan.RecordError(err)
		c.attemptSpan.SetStatus(codes.Error, err.Error())
		c.attemptSpan.End()
		c.unplaced = pending(c.batch)
		c.failure = err
		c.finalizeLaterLocked()
		c.mu.Unlock()
		return
	}

	var committed *model.SheetResult
	if c.agg.Add(c.attempt, c.sheet, res.Placed) {
		sheets := c.agg.Sheets()
		committed = &sheets[len(sheets)-1]
	}
	remaining := applyPlacements(c.batch, res.Placed)
	total := model.RemainingTotal(remaining)

	c.attemptSpan.SetAttributes(
		attribute.Int(AttrPlaced, len(res.Placed)),
		attribute.Int(AttrRemainingTotal, total),
	)
	c.attemptSpan.SetStatus(codes.Ok, "")
	c.attemptSpan.End()
	log.WithFields(logrus.Fields{"placed": len(res.Placed), "remaining": total}).Debug("attempt finished")

	var (
		next    bool
		nextCtx context.Context
		req     Request
		cb      Callbacks
	)
	switch {
	case total > 0 && total < c.lastRemaining:
		c.lastRemaining = total
		c.attempt++
		c.sheet = c.policy(c.sheet, c.attempt)
		c.batch = remaining
		nextCtx, req, cb = c.startAttemptLocked()
		next = true
	default:
		if total > 0 {
			log.WithField("remaining", total).Info("no further progress possible, finalizing")
		}
		c.unplaced = remaining
		c.finalizeLaterLocked()
	}
	c.mu.Unlock()

	if committed != nil && c.scene != nil {
		if err := c.scene.Commit(*committed); err != nil {
			log.WithError(err).Warn("failed to commit sheet to scene")
		}
	}
	if next {
		c.engine.Start(nextCtx, req, cb)
	}
}

// finalizeLaterLocked moves to Finalizing and defers the transition to Done
// by one scheduler tick. c.mu must be held.
func (c *Controller) finalizeLaterLocked() {
	c.phase = PhaseFinalizing
	if !c.sched.Post(c.finalize) {
		c.log.WithField("job", c.jobID).Error("scheduler closed, job output cannot be finalized")
	}
}

func (c *Controller) finalize() {
	c.mu.Lock()
	if c.phase != PhaseFinalizing {
		c.mu.Unlock()
		return
	}
	result := c.agg.Result(c.unplaced)
	result.JobID = c.jobID
	c.output = &result
	c.phase = PhaseDone

	c.jobSpan.SetAttributes(
		attribute.Int(AttrSheets, len(result.Sheets)),
		attribute.Int(AttrPlaced, result.PlacedCount()),
		attribute.Int(AttrRemainingTotal, result.UnplacedCount()),
	)
	if c.failure != nil {
		c.jobSpan.RecordError(c.failure)
		c.jobSpan.SetStatus(codes.Error, c.failure.Error())
	} else {
		c.jobSpan.SetStatus(codes.Ok, "")
	}
	c.jobSpan.End()

	rec := JobRecord{
		JobID:      c.jobID,
		StartedAt:  c.startedAt,
		FinishedAt: time.Now(),
		Attempts:   c.attempt + 1,
		Params:     c.params,
		Result:     cloneResult(result),
		Err:        c.failure,
	}
	ctx := context.WithoutCancel(c.ctx)
	progressFns, doneFns := c.progressFns, c.doneFns
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"job":        rec.JobID,
		"sheets":     len(result.Sheets),
		"placed":     result.PlacedCount(),
		"unplaced":   result.UnplacedCount(),
		"efficiency": fmt.Sprintf("%.1f%%", result.TotalEfficiency()),
	}).Info("nesting job finished")

	if c.recorder != nil {
		if err := c.recorder.Record(ctx, rec); err != nil {
			c.log.WithError(err).WithField("job", rec.JobID).Warn("failed to record job history")
		}
	}
	for _, fn := range progressFns {
		fn(ProgressEvent{JobID: rec.JobID, Attempt: rec.Attempts - 1, Done: true})
	}
	for _, fn := range doneFns {
		fn(cloneResult(result))
	}
}

// Output returns the result of the last finished job. The first call after
// a job finishes returns the controller to Idle; later calls return the same
// values until the next trigger.
func (c *Controller) Output() (model.NestResult, error) {
	c.mu.Lock()
	switch c.phase {
	case PhaseDone:
		c.phase = PhaseIdle
		out := cloneResult(*c.output)
		c.mu.Unlock()
		return out, nil
	case PhaseIdle:
		if c.output != nil {
			out := cloneResult(*c.output)
			c.mu.Unlock()
			return out, nil
		}
		c.mu.Unlock()
		c.log.Warn(noTriggerWarning)
		c.warn(noTriggerWarning)
		return model.NestResult{}, ErrNoJob
	default:
		c.mu.Unlock()
		return model.NestResult{}, ErrJobInProgress
	}
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := State{
		Phase:   c.phase,
		JobID:   c.jobID,
		Attempt: c.attempt,
		Sheet:   c.sheet,
		Batches: c.agg.Len(),
		Err:     c.failure,
	}
	switch c.phase {
	case PhaseArmed, PhaseRunning:
		st.RemainingTotal = model.RemainingTotal(c.batch)
	default:
		st.RemainingTotal = model.RemainingTotal(c.unplaced)
		st.Unplaced = st.RemainingTotal
	}
	return st
}

func (c *Controller) warn(msg string) {
	for _, fn := range c.warnFns {
		fn(msg)
	}
}

// checkResult verifies that every placement and remainder belongs to the
// batch and that no object is placed more often than it had copies left.
func checkResult(batch []model.Object, res model.PlacementResult) error {
	budget := make(map[string]int, len(batch))
	for _, o := range batch {
		budget[o.ID] += o.RemainingCopies
	}
	used := make(map[string]int, len(batch))
	for _, p := range res.Placed {
		if _, ok := budget[p.Object.ID]; !ok {
			return fmt.Errorf("%w: placed object %q is not part of the batch", ErrInconsistentResult, p.Object.ID)
		}
		used[p.Object.ID]++
	}
	for _, r := range res.Remaining {
		if _, ok := budget[r.ID]; !ok {
			return fmt.Errorf("%w: remaining object %q is not part of the batch", ErrInconsistentResult, r.ID)
		}
		used[r.ID] += r.RemainingCopies
	}
	for id, n := range used {
		if n > budget[id] {
			return fmt.Errorf("%w: object %q accounts for %d copies, only %d were requested", ErrInconsistentResult, id, n, budget[id])
		}
	}
	return nil
}

// applyPlacements returns the batch with one copy removed per placement,
// in input order, without objects that have no copies left.
func applyPlacements(batch []model.Object, placed []model.Placement) []model.Object {
	count := make(map[string]int, len(placed))
	for _, p := range placed {
		count[p.Object.ID]++
	}
	out := make([]model.Object, 0, len(batch))
	for _, o := range batch {
		o = o.Clone()
		take := count[o.ID]
		if take > o.RemainingCopies {
			take = o.RemainingCopies
		}
		o.RemainingCopies -= take
		count[o.ID] -= take
		if o.RemainingCopies > 0 {
			out = append(out, o)
		}
	}
	return out
}

// pending returns clones of the objects that still have copies left.
func pending(batch []model.Object) []model.Object {
	out := make([]model.Object, 0, len(batch))
	for _, o := range batch {
		if o.RemainingCopies > 0 {
			out = append(out, o.Clone())
		}
	}
	return out
}

func cloneResult(r model.NestResult) model.NestResult {
	out := model.NestResult{JobID: r.JobID}
	if r.Sheets != nil {
		out.Sheets = make([]model.SheetResult, len(r.Sheets))
		for i, s := range r.Sheets {
			s.Placements = append([]model.Placement(nil), s.Placements...)
			out.Sheets[i] = s
		}
	}
	if r.Unplaced != nil {
		out.Unplaced = model.CloneObjects(r.Unplaced)
	}
	if r.Summaries != nil {
		out.Summaries = append([]model.SheetSummary(nil), r.Summaries...)
	}
	return out
}
