package engine

import "github.com/piwi3910/slabnest/internal/model"

type rect struct {
	x, y, w, h float64
}

func (r rect) area() float64 { return r.w * r.h }

// freeRectPacker keeps the maximal free rectangles of one sheet and splits
// every rectangle a placement overlaps.
type freeRectPacker struct {
	freeRects []rect
	kerf      float64
	eps       float64
}

// newFreeRectPacker packs into area. Every piece reserves kerf on its right
// and top side, so the initial area is grown by kerf to let pieces reach the
// far edges.
func newFreeRectPacker(area rect, kerf, eps float64) *freeRectPacker {
	p := &freeRectPacker{kerf: kerf, eps: eps}
	area.w += kerf
	area.h += kerf
	if area.w > eps && area.h > eps {
		p.freeRects = []rect{area}
	}
	return p
}

// fitScore orders candidate positions; lower is better on primary, then secondary.
type fitScore struct {
	primary, secondary float64
}

func (s fitScore) less(o fitScore, eps float64) bool {
	if s.primary < o.primary-eps {
		return true
	}
	if s.primary > o.primary+eps {
		return false
	}
	return s.secondary < o.secondary-eps
}

func scoreFor(c model.Criterion, r rect, w, h float64) fitScore {
	switch c {
	case model.CriterionBottomLeft:
		return fitScore{primary: r.y + h, secondary: r.x}
	case model.CriterionMinX:
		return fitScore{primary: r.x, secondary: r.y}
	case model.CriterionMinY:
		return fitScore{primary: r.y, secondary: r.x}
	default:
		shortSide := r.w - w
		if r.h-h < shortSide {
			shortSide = r.h - h
		}
		return fitScore{primary: r.area() - w*h, secondary: shortSide}
	}
}

// bestFit returns the best position for a w x h piece under the given
// criterion without modifying the packer. ok is false when it does not fit.
func (p *freeRectPacker) bestFit(w, h float64, c model.Criterion) (x, y float64, score fitScore, ok bool) {
	wk := w + p.kerf
	hk := h + p.kerf
	for _, r := range p.freeRects {
		if wk > r.w+p.eps || hk > r.h+p.eps {
			continue
		}
		s := scoreFor(c, r, w, h)
		if !ok || s.less(score, p.eps) {
			x, y, score, ok = r.x, r.y, s, true
		}
	}
	return x, y, score, ok
}

// place occupies w x h (plus kerf) at x, y.
func (p *freeRectPacker) place(x, y, w, h float64) {
	p.splitAroundPlacement(rect{x: x, y: y, w: w + p.kerf, h: h + p.kerf})
}

// splitAroundPlacement removes all free rects that overlap with the placed rect
// and generates maximal sub-rects from each overlap. Then prunes contained rects.
func (p *freeRectPacker) splitAroundPlacement(placed rect) {
	var newRects []rect
	eps := p.eps

	for _, r := range p.freeRects {
		if !p.overlap(r, placed) {
			newRects = append(newRects, r)
			continue
		}

		// Left strip
		if placed.x > r.x+eps {
			newRects = append(newRects, rect{x: r.x, y: r.y, w: placed.x - r.x, h: r.h})
		}
		// Right strip
		if placed.x+placed.w < r.x+r.w-eps {
			newRects = append(newRects, rect{
				x: placed.x + placed.w, y: r.y,
				w: (r.x + r.w) - (placed.x + placed.w), h: r.h,
			})
		}
		// Bottom strip
		if placed.y > r.y+eps {
			newRects = append(newRects, rect{x: r.x, y: r.y, w: r.w, h: placed.y - r.y})
		}
		// Top strip
		if placed.y+placed.h < r.y+r.h-eps {
			newRects = append(newRects, rect{
				x: r.x, y: placed.y + placed.h,
				w: r.w, h: (r.y + r.h) - (placed.y + placed.h),
			})
		}
	}

	p.freeRects = p.pruneContained(newRects)
}

// overlap returns true if two rectangles overlap (not just touch).
func (p *freeRectPacker) overlap(a, b rect) bool {
	eps := p.eps
	return a.x < b.x+b.w-eps && a.x+a.w > b.x+eps &&
		a.y < b.y+b.h-eps && a.y+a.h > b.y+eps
}

// pruneContained removes any rect that is fully contained within another.
// Of two identical rects only the first is kept.
func (p *freeRectPacker) pruneContained(rects []rect) []rect {
	if len(rects) <= 1 {
		return rects
	}
	kept := make([]rect, 0, len(rects))
	for i, a := range rects {
		contained := false
		for j, b := range rects {
			if i == j || !p.contains(b, a) {
				continue
			}
			if !p.contains(a, b) || j < i {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, a)
		}
	}
	return kept
}

func (p *freeRectPacker) contains(outer, inner rect) bool {
	eps := p.eps
	return outer.x <= inner.x+eps && outer.y <= inner.y+eps &&
		outer.x+outer.w >= inner.x+inner.w-eps &&
		outer.y+outer.h >= inner.y+inner.h-eps
}

// largestFree returns the area of the largest free rectangle.
func (p *freeRectPacker) largestFree() float64 {
	best := 0.0
	for _, r := range p.freeRects {
		if a := r.area(); a > best {
			best = a
		}
	}
	return best
}

// lostRegions counts free rectangles too small to hold a piece of minArea.
func (p *freeRectPacker) lostRegions(minArea float64) int {
	n := 0
	for _, r := range p.freeRects {
		if r.area() < minArea-p.eps {
			n++
		}
	}
	return n
}
