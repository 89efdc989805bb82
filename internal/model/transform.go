package model

import "math"

// Transform is a 2D affine map:
//
//	x' = A*x + B*y + C
//	y' = D*x + E*y + F
type Transform struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
	E float64 `json:"e"`
	F float64 `json:"f"`
}

// Identity returns the transform that leaves points unchanged.
func Identity() Transform {
	return Transform{A: 1, E: 1}
}

// Translation returns a pure translation by (dx, dy).
func Translation(dx, dy float64) Transform {
	return Transform{A: 1, C: dx, E: 1, F: dy}
}

// Rotation returns a counter-clockwise rotation about the origin.
func Rotation(deg float64) Transform {
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	// Snap quarter turns so rectangles stay axis aligned without drift.
	if math.Mod(deg, 90) == 0 {
		sin, cos = math.Round(sin), math.Round(cos)
	}
	return Transform{A: cos, B: -sin, D: sin, E: cos}
}

// Then returns the transform that applies t first and next afterwards.
func (t Transform) Then(next Transform) Transform {
	return Transform{
		A: next.A*t.A + next.B*t.D,
		B: next.A*t.B + next.B*t.E,
		C: next.A*t.C + next.B*t.F + next.C,
		D: next.D*t.A + next.E*t.D,
		E: next.D*t.B + next.E*t.E,
		F: next.D*t.C + next.E*t.F + next.F,
	}
}

// Apply maps a single point.
func (t Transform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.C,
		Y: t.D*p.X + t.E*p.Y + t.F,
	}
}

// ApplyOutline maps every point of an outline.
func (t Transform) ApplyOutline(o Outline) Outline {
	out := make(Outline, len(o))
	for i, p := range o {
		out[i] = t.Apply(p)
	}
	return out
}

// Offset returns the translation component.
func (t Transform) Offset() Point2D {
	return Point2D{X: t.C, Y: t.F}
}

// RotationDegrees returns the rotation component in degrees in (-180, 180].
func (t Transform) RotationDegrees() float64 {
	return math.Atan2(t.D, t.A) * 180 / math.Pi
}
