// Package engine is the reference packing engine: a maxrects free-rectangle
// packer that places rotated bounding boxes of object outlines and searches
// several instance orders per sheet.
package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/piwi3910/slabnest/internal/model"
	"github.com/piwi3910/slabnest/internal/nesting"
)

const (
	defaultPrecision        = 0.001
	defaultFreeRotationStep = 15
)

// Engine implements nesting.Engine.
type Engine struct {
	freeStep int
	seed     int64
	log      *logrus.Entry
}

// Option configures an Engine.
type Option func(*Engine)

// WithFreeRotationStep sets the angle step, in degrees, sampled for objects
// with free orientation.
func WithFreeRotationStep(deg int) Option {
	return func(e *Engine) {
		if deg > 0 {
			e.freeStep = deg
		}
	}
}

// WithSeed fixes the seed of the variant shuffles.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithLogger sets the log entry used by the engine.
func WithLogger(l *logrus.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		freeStep: defaultFreeRotationStep,
		seed:     1,
		log:      logrus.WithField("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start packs the request on a new goroutine and reports through cb.
func (e *Engine) Start(ctx context.Context, req nesting.Request, cb nesting.Callbacks) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				cb.Fail(fmt.Errorf("packing engine panicked: %v", r))
			}
		}()
		res, err := e.Pack(ctx, req, cb.Progress)
		if err != nil {
			cb.Fail(err)
			return
		}
		cb.Complete(res)
	}()
}

// shape is one allowed rotation of an object.
type shape struct {
	angle      float64
	w, h       float64
	minX, minY float64
}

// Pack places as many copies as possible on req.Sheet. progress, if set, is
// called after every evaluated variant. When the time budget runs out the
// best layout found so far is returned; a cancelled ctx is an error.
func (e *Engine) Pack(ctx context.Context, req nesting.Request, progress func()) (model.PlacementResult, error) {
	if err := ctx.Err(); err != nil {
		return model.PlacementResult{}, fmt.Errorf("packing cancelled: %w", err)
	}
	if !req.Sheet.MultiSheet && req.Attempt > 0 {
		e.log.WithFields(logrus.Fields{"job": req.JobID, "attempt": req.Attempt}).
			Debug("single-sheet job, not opening another sheet")
		return buildResult(req, layout{}, rect{}), nil
	}
	started := time.Now()
	params := req.Params

	eps := params.DistancePrecision
	if eps <= 0 {
		eps = defaultPrecision
	}
	budget := ctx
	if params.TimeOut > 0 {
		var cancel context.CancelFunc
		budget, cancel = context.WithTimeout(ctx, time.Duration(params.TimeOut*float64(time.Second)))
		defer cancel()
	}

	area := rect{
		x: params.ItemToSheet,
		y: params.ItemToSheet,
		w: req.Sheet.Width - 2*params.ItemToSheet,
		h: req.Sheet.Height - 2*params.ItemToSheet,
	}
	shapes := make([][]shape, len(req.Objects))
	for i, o := range req.Objects {
		shapes[i] = e.shapes(o)
	}

	base := expandInstances(req.Objects)
	minArea := math.Inf(1)
	for _, in := range base {
		minArea = math.Min(minArea, in.area)
	}

	variants := params.LimitVariants
	if variants < 1 {
		variants = 1
	}
	rng := rand.New(rand.NewSource(e.seed + int64(req.Attempt)))

	var best layout
	evaluated := 0
	for v := 0; v < variants; v++ {
		if v > 0 && budget.Err() != nil {
			break
		}
		order := variantOrder(base, v, rng)
		l, complete := packOrder(budget, order, req.Objects, shapes, area, params.ItemToItem, eps, minArea, v == 0)
		if err := ctx.Err(); err != nil {
			return model.PlacementResult{}, fmt.Errorf("packing cancelled: %w", err)
		}
		if !complete {
			break
		}
		l.random = rng.Float64()
		if evaluated == 0 || better(l, best, params.Criterion, area.w, area.h, eps) {
			best = l
		}
		evaluated++
		if progress != nil {
			progress()
		}
	}

	res := buildResult(req, best, area)
	e.log.WithFields(logrus.Fields{
		"job":      req.JobID,
		"attempt":  req.Attempt,
		"variants": evaluated,
		"placed":   len(res.Placed),
		"elapsed":  time.Since(started).Round(time.Millisecond),
	}).Debug("packed sheet")
	return res, nil
}

// shapes returns the rotated bounding boxes an object may be placed with,
// tightest bounding box first.
func (e *Engine) shapes(o model.Object) []shape {
	outline := o.Shape()
	angles := o.Orientation.Angles(e.freeStep)
	out := make([]shape, 0, len(angles))
	for _, a := range angles {
		min, max := model.Rotation(a).ApplyOutline(outline).BoundingBox()
		out = append(out, shape{angle: a, w: max.X - min.X, h: max.Y - min.Y, minX: min.X, minY: min.Y})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].w*out[i].h < out[j].w*out[j].h-defaultPrecision
	})
	return out
}

// packOrder places instances in the given order. It reports false when the
// budget expired before the order was fully tried; the first variant is
// always completed.
func packOrder(budget context.Context, order []instance, objs []model.Object, shapes [][]shape, area rect, kerf, eps, minArea float64, mustFinish bool) (layout, bool) {
	packer := newFreeRectPacker(area, kerf, eps)
	var l layout

	for _, in := range order {
		if !mustFinish && budget.Err() != nil {
			return l, false
		}
		obj := objs[in.objIndex]

		var (
			found     bool
			bestScore fitScore
			bestX     float64
			bestY     float64
			bestShape shape
		)
		for _, s := range shapes[in.objIndex] {
			// Only rotations as tight as the first fitting one compete.
			if found && s.w*s.h > bestShape.w*bestShape.h+eps {
				break
			}
			x, y, score, ok := packer.bestFit(s.w, s.h, obj.Criterion)
			if ok && (!found || score.less(bestScore, eps)) {
				found, bestScore, bestX, bestY, bestShape = true, score, x, y, s
			}
		}
		if !found {
			continue
		}
		packer.place(bestX, bestY, bestShape.w, bestShape.h)
		l.pieces = append(l.pieces, placedPiece{
			inst:  in,
			angle: bestShape.angle,
			x:     bestX - area.x,
			y:     bestY - area.y,
			w:     bestShape.w,
			h:     bestShape.h,
			minX:  bestShape.minX,
			minY:  bestShape.minY,
		})
		l.placedArea += in.area
	}

	l.largestFree = packer.largestFree()
	l.lostRegions = packer.lostRegions(minArea)
	return l, true
}

// buildResult converts a layout into placements on the sheet and the copies left over.
func buildResult(req nesting.Request, l layout, area rect) model.PlacementResult {
	res := model.PlacementResult{}
	placed := make([]int, len(req.Objects))

	for _, p := range l.pieces {
		obj := req.Objects[p.inst.objIndex]
		dx := req.Sheet.Origin.X + area.x + p.x - p.minX
		dy := req.Sheet.Origin.Y + area.y + p.y - p.minY
		res.Placed = append(res.Placed, model.Placement{
			Object:    obj.Clone(),
			Transform: model.Rotation(p.angle).Then(model.Translation(dx, dy)),
			Rotation:  p.angle,
		})
		placed[p.inst.objIndex]++
	}

	for i, o := range req.Objects {
		left := o.RemainingCopies - placed[i]
		if left <= 0 {
			continue
		}
		r := o.Clone()
		r.RemainingCopies = left
		res.Remaining = append(res.Remaining, r)
	}
	return res
}
