package model

import (
	"fmt"
	"strconv"
	"strings"
)

// OrientationKind is the rotation freedom of an object.
type OrientationKind int

const (
	OrientationFixed    OrientationKind = iota // Never rotated
	OrientationFree                            // Any angle, sampled at the engine's free step
	OrientationDiscrete                        // Multiples of a fixed step
)

// Orientation constrains how an object may be rotated when placed.
type Orientation struct {
	Kind      OrientationKind `json:"kind"`
	Angle     int             `json:"angle,omitempty"`     // Step in degrees for OrientationDiscrete
	Symmetric bool            `json:"symmetric,omitempty"` // Only 0, +Angle and -Angle
}

func FixedOrientation() Orientation { return Orientation{Kind: OrientationFixed} }

func FreeOrientation() Orientation { return Orientation{Kind: OrientationFree} }

// StepOrientation allows every multiple of deg degrees.
func StepOrientation(deg int) Orientation {
	return Orientation{Kind: OrientationDiscrete, Angle: deg}
}

// MirrorOrientation allows 0 and 180 degrees.
func MirrorOrientation() Orientation { return StepOrientation(180) }

// PlusMinus90Orientation allows 0, +90 and -90 degrees.
func PlusMinus90Orientation() Orientation {
	return Orientation{Kind: OrientationDiscrete, Angle: 90, Symmetric: true}
}

// Angles returns the candidate rotations in degrees, starting with 0.
// freeStep is the sampling step used for free rotation.
func (o Orientation) Angles(freeStep int) []float64 {
	step := o.Angle
	switch o.Kind {
	case OrientationFixed:
		return []float64{0}
	case OrientationFree:
		step = freeStep
	}
	step = abs(step) % 360
	if step == 0 {
		return []float64{0}
	}
	if o.Symmetric {
		if 2*step == 360 {
			return []float64{0, float64(step)}
		}
		return []float64{0, float64(step), float64(-step)}
	}
	var angles []float64
	for a := 0; a < 360; a += step {
		angles = append(angles, float64(a))
	}
	return angles
}

func (o Orientation) String() string {
	switch o.Kind {
	case OrientationFixed:
		return "fixed"
	case OrientationFree:
		return "free"
	}
	if o.Symmetric {
		return "+-" + strconv.Itoa(o.Angle)
	}
	return strconv.Itoa(o.Angle)
}

// ParseOrientation accepts "fixed", "free", "mirror", "<deg>" and "+-<deg>".
func ParseOrientation(s string) (Orientation, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "free":
		return FreeOrientation(), nil
	case "fixed", "none":
		return FixedOrientation(), nil
	case "mirror":
		return MirrorOrientation(), nil
	}
	symmetric := strings.HasPrefix(v, "+-") || strings.HasPrefix(v, "±")
	v = strings.TrimPrefix(strings.TrimPrefix(v, "+-"), "±")
	deg, err := strconv.Atoi(v)
	if err != nil || deg <= 0 || deg > 180 {
		return Orientation{}, fmt.Errorf("invalid orientation %q", s)
	}
	return Orientation{Kind: OrientationDiscrete, Angle: deg, Symmetric: symmetric}, nil
}

func (o Orientation) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Orientation) UnmarshalText(b []byte) error {
	parsed, err := ParseOrientation(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Criterion is the local placement preference of an object.
type Criterion int

const (
	CriterionBestAreaFit Criterion = iota // Smallest leftover free rectangle
	CriterionBottomLeft                   // Lowest, then left-most position
	CriterionMinX                         // Left-most position
	CriterionMinY                         // Lowest position
)

var criterionNames = []string{"best-area-fit", "bottom-left", "min-x", "min-y"}

func (c Criterion) String() string {
	if c < 0 || int(c) >= len(criterionNames) {
		return criterionNames[0]
	}
	return criterionNames[c]
}

// ParseCriterion maps a criterion name to its value; empty means best-area-fit.
func ParseCriterion(s string) (Criterion, error) {
	v := normalizeName(s)
	if v == "" {
		return CriterionBestAreaFit, nil
	}
	for i, name := range criterionNames {
		if normalizeName(name) == v {
			return Criterion(i), nil
		}
	}
	return 0, fmt.Errorf("unknown criterion %q", s)
}

func (c Criterion) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Criterion) UnmarshalText(b []byte) error {
	parsed, err := ParseCriterion(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// GlobalCriterion ranks complete sheet layouts against each other.
type GlobalCriterion int

const (
	GlobalMinX GlobalCriterion = iota
	GlobalMinPerimeterOfNested
	GlobalMinSpacerOfNested
	GlobalMaxFreeSpace
	GlobalMinLostRegions
	GlobalLowerLeftPoint
	GlobalLowerRightPoint
	GlobalRandom
	GlobalCenterMinAdditionXY
	GlobalCenterMinMultiplicationXY
	GlobalCenterMinAdditionX2Y2
	GlobalCenterMinMaxXY
	GlobalTryEvery
	GlobalTryEveryCenter
)

var globalCriterionNames = []string{
	"min-x",
	"min-perimeter-of-nested",
	"min-spacer-of-nested",
	"max-free-space",
	"min-lost-regions",
	"lower-left-point",
	"lower-right-point",
	"random",
	"center-min-addition-xy",
	"center-min-multiplication-xy",
	"center-min-addition-x2y2",
	"center-min-max-xy",
	"try-every",
	"try-every-center",
}

// GlobalCriteria lists every global criterion in declaration order.
func GlobalCriteria() []GlobalCriterion {
	out := make([]GlobalCriterion, len(globalCriterionNames))
	for i := range out {
		out[i] = GlobalCriterion(i)
	}
	return out
}

func (g GlobalCriterion) String() string {
	if g < 0 || int(g) >= len(globalCriterionNames) {
		return globalCriterionNames[0]
	}
	return globalCriterionNames[g]
}

// ParseGlobalCriterion maps a name such as "MinX", "min-x" or "min_x" to its value.
func ParseGlobalCriterion(s string) (GlobalCriterion, error) {
	v := normalizeName(s)
	if v == "" {
		return GlobalMinX, nil
	}
	for i, name := range globalCriterionNames {
		if normalizeName(name) == v {
			return GlobalCriterion(i), nil
		}
	}
	return 0, fmt.Errorf("unknown global criterion %q", s)
}

func (g GlobalCriterion) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g *GlobalCriterion) UnmarshalText(b []byte) error {
	parsed, err := ParseGlobalCriterion(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

func normalizeName(s string) string {
	r := strings.NewReplacer("-", "", "_", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
