package engine

import (
	"math"
	"math/rand"
	"sort"

	"github.com/piwi3910/slabnest/internal/model"
)

// instance is a single copy of an object waiting to be placed.
type instance struct {
	objIndex int // Index into the request's objects
	area     float64
	priority int
}

// placedPiece is one instance positioned on the sheet, in usable-area
// coordinates of its rotated bounding box.
type placedPiece struct {
	inst       instance
	angle      float64
	x, y, w, h float64
	minX, minY float64 // bounding box origin of the rotated outline
}

// layout is the outcome of packing one instance order onto the sheet.
type layout struct {
	pieces      []placedPiece
	placedArea  float64
	largestFree float64
	lostRegions int
	random      float64
}

// expandInstances turns objects into one instance per remaining copy,
// ordered by priority (lower first) then by area (larger first).
func expandInstances(objs []model.Object) []instance {
	var out []instance
	for i, o := range objs {
		for c := 0; c < o.RemainingCopies; c++ {
			out = append(out, instance{objIndex: i, area: o.Area(), priority: o.Priority})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority < out[j].priority
		}
		return out[i].area > out[j].area
	})
	return out
}

// variantOrder returns the instance order for the given variant. Variant 0
// is the canonical order; later variants shuffle within each priority group
// so priorities are always respected.
func variantOrder(base []instance, variant int, rng *rand.Rand) []instance {
	order := make([]instance, len(base))
	copy(order, base)
	if variant == 0 {
		return order
	}
	start := 0
	for start < len(order) {
		end := start + 1
		for end < len(order) && order[end].priority == order[start].priority {
			end++
		}
		group := order[start:end]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		start = end
	}
	return order
}

// envelope returns the bounding box of all pieces.
func (l layout) envelope() (minX, minY, maxX, maxY float64) {
	if len(l.pieces) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range l.pieces {
		minX = math.Min(minX, p.x)
		minY = math.Min(minY, p.y)
		maxX = math.Max(maxX, p.x+p.w)
		maxY = math.Max(maxY, p.y+p.h)
	}
	return minX, minY, maxX, maxY
}

// score returns the value of a single global criterion for the layout;
// lower is better. usableW and usableH size the packing area.
func (l layout) score(c model.GlobalCriterion, usableW, usableH float64) float64 {
	minX, minY, maxX, maxY := l.envelope()
	cx, cy := usableW/2, usableH/2

	var total float64
	switch c {
	case model.GlobalMinX:
		return maxX*usableH + maxY
	case model.GlobalMinPerimeterOfNested:
		return 2 * ((maxX - minX) + (maxY - minY))
	case model.GlobalMinSpacerOfNested:
		return (maxX - minX) * (maxY - minY)
	case model.GlobalMaxFreeSpace:
		return -l.largestFree
	case model.GlobalMinLostRegions:
		return float64(l.lostRegions)
	case model.GlobalRandom:
		return l.random
	case model.GlobalLowerLeftPoint:
		for _, p := range l.pieces {
			total += p.x + p.y
		}
	case model.GlobalLowerRightPoint:
		for _, p := range l.pieces {
			total += (usableW - (p.x + p.w)) + p.y
		}
	case model.GlobalCenterMinAdditionXY, model.GlobalCenterMinMultiplicationXY,
		model.GlobalCenterMinAdditionX2Y2, model.GlobalCenterMinMaxXY:
		for _, p := range l.pieces {
			dx := math.Abs(p.x + p.w/2 - cx)
			dy := math.Abs(p.y + p.h/2 - cy)
			switch c {
			case model.GlobalCenterMinAdditionXY:
				total += dx + dy
			case model.GlobalCenterMinMultiplicationXY:
				total += dx * dy
			case model.GlobalCenterMinAdditionX2Y2:
				total += dx*dx + dy*dy
			default:
				total += math.Max(dx, dy)
			}
		}
	}
	return total
}

var (
	edgeCriteria = []model.GlobalCriterion{
		model.GlobalMinX,
		model.GlobalMinPerimeterOfNested,
		model.GlobalMinSpacerOfNested,
		model.GlobalLowerLeftPoint,
		model.GlobalLowerRightPoint,
	}
	centerCriteria = []model.GlobalCriterion{
		model.GlobalCenterMinAdditionXY,
		model.GlobalCenterMinMultiplicationXY,
		model.GlobalCenterMinAdditionX2Y2,
		model.GlobalCenterMinMaxXY,
	}
)

// better reports whether a beats b. More placed area always wins; ties are
// broken by the global criterion. TryEvery and TryEveryCenter prefer the
// layout that wins more of their member criteria.
func better(a, b layout, c model.GlobalCriterion, usableW, usableH, eps float64) bool {
	if len(a.pieces) != len(b.pieces) {
		return len(a.pieces) > len(b.pieces)
	}
	if math.Abs(a.placedArea-b.placedArea) > eps {
		return a.placedArea > b.placedArea
	}

	var members []model.GlobalCriterion
	switch c {
	case model.GlobalTryEvery:
		members = edgeCriteria
	case model.GlobalTryEveryCenter:
		members = centerCriteria
	default:
		return a.score(c, usableW, usableH) < b.score(c, usableW, usableH)-eps
	}

	wins := 0
	for _, m := range members {
		sa, sb := a.score(m, usableW, usableH), b.score(m, usableW, usableH)
		switch {
		case sa < sb-eps:
			wins++
		case sb < sa-eps:
			wins--
		}
	}
	return wins > 0
}
