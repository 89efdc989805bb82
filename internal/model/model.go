package model

import (
	"math"

	"github.com/google/uuid"
)

// Point2D represents a 2D coordinate in drawing units.
type Point2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Outline represents a closed polygon as a sequence of 2D points.
// The outline is implicitly closed: the last point connects back to the first.
type Outline []Point2D

// RectOutline returns the outline of a w x h rectangle anchored at the origin.
func RectOutline(w, h float64) Outline {
	return Outline{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
}

// BoundingBox returns the min and max corners of the outline.
func (o Outline) BoundingBox() (min, max Point2D) {
	if len(o) == 0 {
		return Point2D{}, Point2D{}
	}
	min, max = o[0], o[0]
	for _, p := range o[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}

// Size returns the bounding box width and height.
func (o Outline) Size() (w, h float64) {
	min, max := o.BoundingBox()
	return max.X - min.X, max.Y - min.Y
}

// Translate shifts all points by dx, dy.
func (o Outline) Translate(dx, dy float64) Outline {
	result := make(Outline, len(o))
	for i, p := range o {
		result[i] = Point2D{X: p.X + dx, Y: p.Y + dy}
	}
	return result
}

// Normalize translates the outline so its bounding box starts at (0,0).
func (o Outline) Normalize() Outline {
	min, _ := o.BoundingBox()
	return o.Translate(-min.X, -min.Y)
}

// Area returns the enclosed polygon area (shoelace formula, always >= 0).
func (o Outline) Area() float64 {
	if len(o) < 3 {
		return 0
	}
	var sum float64
	for i := range o {
		j := (i + 1) % len(o)
		sum += o[i].X*o[j].Y - o[j].X*o[i].Y
	}
	return math.Abs(sum) / 2
}

// Clone returns a copy that shares no memory with o.
func (o Outline) Clone() Outline {
	if o == nil {
		return nil
	}
	c := make(Outline, len(o))
	copy(c, o)
	return c
}

// Object is a placeable record: a geometry handle plus its nesting attributes.
type Object struct {
	ID              string      `json:"id" yaml:"id"`
	Label           string      `json:"label" yaml:"label"`
	Outline         Outline     `json:"outline,omitempty" yaml:"outline,omitempty"`
	Width           float64     `json:"width" yaml:"width" validate:"gt=0"`   // bounding box width
	Height          float64     `json:"height" yaml:"height" validate:"gt=0"` // bounding box height
	Copies          int         `json:"copies" yaml:"copies" validate:"gte=0"`
	RemainingCopies int         `json:"remaining_copies" yaml:"remaining_copies,omitempty" validate:"gte=0,ltefield=Copies"`
	Priority        int         `json:"priority" yaml:"priority"` // Lower values are placed first
	Orientation     Orientation `json:"orientation" yaml:"orientation"`
	Criterion       Criterion   `json:"criterion" yaml:"criterion"`
}

// NewObject creates a rectangular object with copies copies still to place.
func NewObject(label string, w, h float64, copies int) Object {
	return Object{
		ID:              uuid.New().String()[:8],
		Label:           label,
		Outline:         RectOutline(w, h),
		Width:           w,
		Height:          h,
		Copies:          copies,
		RemainingCopies: copies,
		Priority:        1,
		Orientation:     FreeOrientation(),
		Criterion:       CriterionBestAreaFit,
	}
}

// NewOutlineObject creates an object from an arbitrary closed outline.
// The outline is normalized so its bounding box starts at the origin.
func NewOutlineObject(label string, outline Outline, copies int) Object {
	norm := outline.Normalize()
	w, h := norm.Size()
	obj := NewObject(label, w, h, copies)
	obj.Outline = norm
	return obj
}

// Area returns the outline area, or the bounding box area for objects without an outline.
func (o Object) Area() float64 {
	if len(o.Outline) >= 3 {
		return o.Outline.Area()
	}
	return o.Width * o.Height
}

// Shape returns the outline, synthesizing a rectangle when none is set.
func (o Object) Shape() Outline {
	if len(o.Outline) >= 3 {
		return o.Outline
	}
	return RectOutline(o.Width, o.Height)
}

// Clone returns a deep copy of the object.
func (o Object) Clone() Object {
	o.Outline = o.Outline.Clone()
	return o
}

// CloneObjects deep-copies a batch of objects.
func CloneObjects(objs []Object) []Object {
	out := make([]Object, len(objs))
	for i, o := range objs {
		out[i] = o.Clone()
	}
	return out
}

// RemainingTotal sums RemainingCopies over a batch.
func RemainingTotal(objs []Object) int {
	total := 0
	for _, o := range objs {
		total += o.RemainingCopies
	}
	return total
}

// Sheet describes the rectangular region objects are nested into.
type Sheet struct {
	Label      string  `json:"label" yaml:"label,omitempty"`
	Width      float64 `json:"width" yaml:"width" validate:"gt=0"`
	Height     float64 `json:"height" yaml:"height" validate:"gt=0"`
	Origin     Point2D `json:"origin" yaml:"origin"` // World position of the lower-left corner
	MultiSheet bool    `json:"multi_sheet" yaml:"multi_sheet"`
}

// NewSheet returns a w x h sheet at the origin that allows continuing on further sheets.
func NewSheet(w, h float64) Sheet {
	return Sheet{Width: w, Height: h, MultiSheet: true}
}

// SheetFromOutline builds a sheet from the bounding box of a boundary curve.
func SheetFromOutline(o Outline) Sheet {
	min, max := o.BoundingBox()
	s := NewSheet(max.X-min.X, max.Y-min.Y)
	s.Origin = min
	return s
}

// Area returns the sheet area.
func (s Sheet) Area() float64 {
	return s.Width * s.Height
}

// Bounds returns the sheet rectangle in world coordinates.
func (s Sheet) Bounds() Outline {
	return RectOutline(s.Width, s.Height).Translate(s.Origin.X, s.Origin.Y)
}

// Parameters holds the global settings handed to the packing engine.
type Parameters struct {
	ItemToItem        float64         `json:"item_to_item" yaml:"item_to_item" validate:"gte=0"`   // Gap between objects
	ItemToSheet       float64         `json:"item_to_sheet" yaml:"item_to_sheet" validate:"gte=0"` // Gap to the sheet edge
	LimitVariants     int             `json:"limit_variants" yaml:"limit_variants" validate:"gte=0"`
	TimeOut           float64         `json:"time_out" yaml:"time_out" validate:"gte=0"` // Seconds; 0 = unlimited
	DistancePrecision float64         `json:"distance_precision" yaml:"distance_precision" validate:"gte=0"`
	Criterion         GlobalCriterion `json:"criterion" yaml:"criterion"`
}

// DefaultParameters returns the settings used when nothing is configured.
func DefaultParameters() Parameters {
	return Parameters{
		ItemToItem:        0,
		ItemToSheet:       0,
		LimitVariants:     4,
		TimeOut:           10,
		DistancePrecision: 0.001,
		Criterion:         GlobalMinX,
	}
}

// Placement is one placed copy: the source object and the transform that
// maps its outline onto the sheet.
type Placement struct {
	Object    Object    `json:"object"`
	Transform Transform `json:"transform"`
	Rotation  float64   `json:"rotation"` // Degrees, counter-clockwise
}

// PlacedOutline returns the object outline in world coordinates.
func (p Placement) PlacedOutline() Outline {
	return p.Transform.ApplyOutline(p.Object.Shape())
}

// PlacementResult is what the packing engine yields for one sheet.
type PlacementResult struct {
	Placed    []Placement `json:"placed"`
	Remaining []Object    `json:"remaining"`
}

// SheetResult is one non-empty sheet of a job.
type SheetResult struct {
	Attempt    int         `json:"attempt"`
	Sheet      Sheet       `json:"sheet"`
	Placements []Placement `json:"placements"`
}

// UsedArea returns the total area covered by placed objects.
func (sr SheetResult) UsedArea() float64 {
	var total float64
	for _, p := range sr.Placements {
		total += p.Object.Area()
	}
	return total
}

// TotalArea returns the sheet area.
func (sr SheetResult) TotalArea() float64 {
	return sr.Sheet.Area()
}

// Efficiency returns the usage percentage.
func (sr SheetResult) Efficiency() float64 {
	ta := sr.TotalArea()
	if ta == 0 {
		return 0
	}
	return (sr.UsedArea() / ta) * 100.0
}

// SheetSummary is the per-sheet report record.
type SheetSummary struct {
	Index       int     `json:"index"` // 1-based
	Attempt     int     `json:"attempt"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	SheetArea   float64 `json:"sheet_area"`
	ObjectCount int     `json:"object_count"`
	ObjectArea  float64 `json:"object_area"`
	Utilization float64 `json:"utilization"` // ObjectArea / SheetArea, 0 for an empty sheet area
}

// NestResult holds the full output of one job.
type NestResult struct {
	JobID     string         `json:"job_id"`
	Sheets    []SheetResult  `json:"sheets"`
	Unplaced  []Object       `json:"unplaced"`
	Summaries []SheetSummary `json:"summaries"`
}

// TotalEfficiency returns overall material usage percentage.
func (r NestResult) TotalEfficiency() float64 {
	var usedArea, totalArea float64
	for _, s := range r.Sheets {
		usedArea += s.UsedArea()
		totalArea += s.TotalArea()
	}
	if totalArea == 0 {
		return 0
	}
	return (usedArea / totalArea) * 100.0
}

// PlacedCount returns the number of placed copies over all sheets.
func (r NestResult) PlacedCount() int {
	n := 0
	for _, s := range r.Sheets {
		n += len(s.Placements)
	}
	return n
}

// UnplacedCount returns the number of copies that could not be placed.
func (r NestResult) UnplacedCount() int {
	return RemainingTotal(r.Unplaced)
}
