package nesting

import "github.com/piwi3910/slabnest/internal/model"

// SheetPolicy returns the sheet used for the given attempt, derived from the
// sheet of the previous attempt. Policies must be deterministic.
type SheetPolicy func(prev model.Sheet, attempt int) model.Sheet

// DefaultSheetPolicy lays sheets out edge to edge along +X.
var DefaultSheetPolicy = TileRight(0)

// TileRight keeps the sheet size and moves the next sheet right by its width plus gap.
func TileRight(gap float64) SheetPolicy {
	return func(prev model.Sheet, _ int) model.Sheet {
		next := prev
		next.Origin.X += prev.Width + gap
		return next
	}
}

// TileUp keeps the sheet size and moves the next sheet up by its height plus gap.
func TileUp(gap float64) SheetPolicy {
	return func(prev model.Sheet, _ int) model.Sheet {
		next := prev
		next.Origin.Y += prev.Height + gap
		return next
	}
}
