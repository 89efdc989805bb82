// Package gcode turns nested sheets into CNC profile toolpaths.
package gcode

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/piwi3910/slabnest/internal/model"
)

// maxMiter caps the corner offset of sharp vertices, in tool radii.
const maxMiter = 4.0

// Generator produces G-code that cuts every placed outline of a sheet.
type Generator struct {
	settings model.CutSettings
	dialect  Dialect
}

// New validates the settings and resolves their dialect.
func New(settings model.CutSettings) (*Generator, error) {
	if err := model.ValidateCut(settings); err != nil {
		return nil, err
	}
	d, err := DialectByName(settings.Dialect)
	if err != nil {
		return nil, err
	}
	return &Generator{settings: settings, dialect: d}, nil
}

// GenerateSheet produces the program for one sheet. Coordinates are
// relative to the sheet origin.
func (g *Generator) GenerateSheet(sheet model.SheetResult, index int) string {
	var b strings.Builder

	g.writeHeader(&b, sheet, index)
	for i, p := range sheet.Placements {
		g.writePlacement(&b, sheet.Sheet.Origin, p, i+1)
	}
	g.writeFooter(&b)
	return b.String()
}

// GenerateAll produces one program per sheet.
func (g *Generator) GenerateAll(result model.NestResult) []string {
	codes := make([]string, 0, len(result.Sheets))
	for i, sheet := range result.Sheets {
		codes = append(codes, g.GenerateSheet(sheet, i+1))
	}
	return codes
}

// Program is one written G-code file and its toolpath statistics.
type Program struct {
	Path  string
	Sheet int
	Stats Stats
}

// WriteFiles writes one program per sheet. A single sheet goes to path
// itself; several sheets get a _sheetN suffix before the extension.
func (g *Generator) WriteFiles(path string, result model.NestResult) ([]Program, error) {
	if len(result.Sheets) == 0 {
		return nil, fmt.Errorf("no sheets to generate G-code for")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	var written []Program
	for i, code := range g.GenerateAll(result) {
		out := path
		if len(result.Sheets) > 1 {
			out = fmt.Sprintf("%s_sheet%d%s", base, i+1, ext)
		}
		if err := os.WriteFile(out, []byte(code), 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", out, err)
		}
		written = append(written, Program{Path: out, Sheet: i + 1, Stats: Summarize(Parse(code))})
	}
	return written, nil
}

func (g *Generator) writeHeader(b *strings.Builder, sheet model.SheetResult, idx int) {
	s := g.settings
	label := sheet.Sheet.Label
	if label == "" {
		label = "sheet"
	}

	b.WriteString(g.comment(fmt.Sprintf("slabnest G-code, sheet %d (%s)", idx, label)))
	b.WriteString(g.comment(fmt.Sprintf("Sheet: %.1f x %.1f", sheet.Sheet.Width, sheet.Sheet.Height)))
	b.WriteString(g.comment(fmt.Sprintf("Objects: %d, Utilization: %.1f%%", len(sheet.Placements), sheet.Efficiency())))
	b.WriteString(g.comment(fmt.Sprintf("Tool: %.1f, Feed: %.0f/min, Plunge: %.0f/min", s.ToolDiameter, s.FeedRate, s.PlungeRate)))
	b.WriteString(g.comment(fmt.Sprintf("Depth: %.1f in %.1f passes", s.CutDepth, s.PassDepth)))
	b.WriteString(g.comment("Dialect: " + g.dialect.Name))
	b.WriteString("\n")

	for _, code := range g.dialect.StartCode {
		b.WriteString(code + "\n")
	}
	if g.dialect.SpindleStart != "" && s.SpindleSpeed > 0 {
		fmt.Fprintf(b, g.dialect.SpindleStart+"\n", s.SpindleSpeed)
	}
	fmt.Fprintf(b, "%s Z%s\n", g.dialect.RapidMove, g.format(s.SafeZ))
	b.WriteString("\n")
}

func (g *Generator) writeFooter(b *strings.Builder) {
	b.WriteString(g.comment("=== Job complete ==="))
	for _, code := range g.dialect.EndCode {
		b.WriteString(strings.ReplaceAll(code, "[SafeZ]", g.format(g.settings.SafeZ)) + "\n")
	}
	if g.dialect.SpindleStop != "" && g.settings.SpindleSpeed > 0 {
		b.WriteString(g.dialect.SpindleStop + "\n")
	}
	if g.dialect.ProgramEnd != "" {
		b.WriteString(g.dialect.ProgramEnd + "\n")
	}
}

// writePlacement profiles the outside of one placed outline, stepping down
// one pass depth at a time.
func (g *Generator) writePlacement(b *strings.Builder, origin model.Point2D, p model.Placement, num int) {
	s := g.settings
	d := g.dialect

	b.WriteString(g.comment(fmt.Sprintf("--- Object %d: %s (%.1f x %.1f, %.0f deg) ---",
		num, p.Object.Label, p.Object.Width, p.Object.Height, p.Rotation)))

	outline := p.PlacedOutline().Translate(-origin.X, -origin.Y)
	if len(outline) < 3 {
		b.WriteString(g.comment("WARNING: outline has fewer than 3 points, skipping"))
		return
	}
	path, normals := toolpath(outline, s.ToolDiameter/2, s.UseClimb)

	passes := int(math.Ceil(s.CutDepth/s.PassDepth - 1e-9))
	for pass := 1; pass <= passes; pass++ {
		depth := math.Min(float64(pass)*s.PassDepth, s.CutDepth)
		b.WriteString(g.comment(fmt.Sprintf("Pass %d/%d, depth=%.2f", pass, passes, depth)))

		start := path[0]
		if s.LeadIn > 0 {
			b.WriteString(g.comment("Lead-in"))
			start = model.Point2D{X: path[0].X + normals[0].X*s.LeadIn, Y: path[0].Y + normals[0].Y*s.LeadIn}
		}
		fmt.Fprintf(b, "%s X%s Y%s\n", d.RapidMove, g.format(start.X), g.format(start.Y))
		fmt.Fprintf(b, "%s Z%s F%s\n", d.FeedMove, g.format(-depth), g.format(s.PlungeRate))
		if s.LeadIn > 0 {
			fmt.Fprintf(b, "%s X%s Y%s F%s\n", d.FeedMove, g.format(path[0].X), g.format(path[0].Y), g.format(s.FeedRate))
		}

		for i := 1; i <= len(path); i++ {
			pt := path[i%len(path)]
			fmt.Fprintf(b, "%s X%s Y%s F%s\n", d.FeedMove, g.format(pt.X), g.format(pt.Y), g.format(s.FeedRate))
		}
		fmt.Fprintf(b, "%s Z%s\n", d.RapidMove, g.format(s.SafeZ))
	}
	b.WriteString("\n")
}

// toolpath offsets outline outward by radius and orders it for the milling
// direction: clockwise for climb milling, counter-clockwise otherwise. It
// also returns the outward unit normal at every vertex.
func toolpath(outline model.Outline, radius float64, climb bool) (model.Outline, []model.Point2D) {
	ccw := outline.Clone()
	if signedArea(ccw) < 0 {
		reverse(ccw)
	}

	path, normals := offsetOutline(ccw, radius)
	if climb {
		reverse(path)
		reverse(normals)
	}
	return path, normals
}

// offsetOutline shifts every vertex of a counter-clockwise outline along
// the bisector of its two edge normals, far enough that both edges move out
// by dist.
func offsetOutline(outline model.Outline, dist float64) (model.Outline, []model.Point2D) {
	n := len(outline)
	result := make(model.Outline, n)
	normals := make([]model.Point2D, n)
	for i := 0; i < n; i++ {
		prev := outline[(i-1+n)%n]
		curr := outline[i]
		next := outline[(i+1)%n]

		// Right-hand normals point outward on a counter-clockwise outline.
		n1x, n1y := normalize(curr.Y-prev.Y, -(curr.X - prev.X))
		n2x, n2y := normalize(next.Y-curr.Y, -(next.X - curr.X))

		nx, ny := normalize(n1x+n2x, n1y+n2y)
		if nx == 0 && ny == 0 {
			nx, ny = n2x, n2y
		}
		scale := 1.0
		if cos := nx*n1x + ny*n1y; cos > 1e-9 {
			scale = math.Min(1/cos, maxMiter)
		}

		normals[i] = model.Point2D{X: nx, Y: ny}
		result[i] = model.Point2D{X: curr.X + nx*dist*scale, Y: curr.Y + ny*dist*scale}
	}
	return result, normals
}

func signedArea(o model.Outline) float64 {
	var sum float64
	for i := range o {
		j := (i + 1) % len(o)
		sum += o[i].X*o[j].Y - o[j].X*o[i].Y
	}
	return sum / 2
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// comment wraps text in the dialect's comment syntax.
func (g *Generator) comment(text string) string {
	return g.dialect.CommentPrefix + " " + text + g.dialect.CommentSuffix + "\n"
}

// format formats a coordinate with the dialect's decimal places.
func (g *Generator) format(v float64) string {
	s := fmt.Sprintf("%.*f", g.dialect.DecimalPlaces, v)
	if strings.Trim(s, "-0.") == "" {
		// Avoid "-0.000".
		return strings.TrimPrefix(s, "-")
	}
	return s
}

// normalize returns a unit vector in the given direction.
func normalize(x, y float64) (float64, float64) {
	length := math.Sqrt(x*x + y*y)
	if length < 1e-9 {
		return 0, 0
	}
	return x / length, y / length
}
