package gcode

import (
	"fmt"
	"strings"
)

// Dialect is the flavour of G-code a controller expects.
type Dialect struct {
	Name          string
	Description   string
	StartCode     []string // Emitted at the top of every file
	SpindleStart  string   // Format with the spindle speed, e.g. "M3 S%d"
	SpindleStop   string
	RapidMove     string
	FeedMove      string
	EndCode       []string // [SafeZ] is replaced with the retract height
	ProgramEnd    string
	CommentPrefix string
	CommentSuffix string
	DecimalPlaces int
}

var dialects = []Dialect{
	{
		Name:          "Grbl",
		Description:   "Standard Grbl configuration (Arduino CNC shields)",
		StartCode:     []string{"G90", "G21", "G17"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		EndCode:       []string{"G0 Z[SafeZ]", "G0 X0 Y0"},
		ProgramEnd:    "M2",
		CommentPrefix: ";",
		DecimalPlaces: 3,
	},
	{
		Name:          "Mach3",
		Description:   "Mach3 CNC control software",
		StartCode:     []string{"G90", "G21", "G17", "G94"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		EndCode:       []string{"G0 Z[SafeZ]", "G28 X0 Y0"},
		ProgramEnd:    "M30",
		CommentPrefix: "(",
		CommentSuffix: ")",
		DecimalPlaces: 4,
	},
	{
		Name:          "LinuxCNC",
		Description:   "LinuxCNC (formerly EMC2)",
		StartCode:     []string{"G90", "G21", "G17", "G94"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		EndCode:       []string{"G0 Z[SafeZ]", "G0 X0 Y0"},
		ProgramEnd:    "M2",
		CommentPrefix: ";",
		DecimalPlaces: 4,
	},
	{
		Name:          "Generic",
		Description:   "Generic standard G-code",
		StartCode:     []string{"G90", "G21"},
		SpindleStart:  "M3 S%d",
		SpindleStop:   "M5",
		RapidMove:     "G0",
		FeedMove:      "G1",
		EndCode:       []string{"G0 Z[SafeZ]", "G0 X0 Y0"},
		ProgramEnd:    "M2",
		CommentPrefix: ";",
		DecimalPlaces: 3,
	},
}

// DialectByName looks up a built-in dialect, ignoring case. An empty name
// selects Generic.
func DialectByName(name string) (Dialect, error) {
	if name == "" {
		name = "Generic"
	}
	for _, d := range dialects {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return Dialect{}, fmt.Errorf("unknown G-code dialect %q (available: %s)", name, strings.Join(DialectNames(), ", "))
}

// DialectNames lists the built-in dialects.
func DialectNames() []string {
	names := make([]string, 0, len(dialects))
	for _, d := range dialects {
		names = append(names, d.Name)
	}
	return names
}
