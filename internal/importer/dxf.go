package importer

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/piwi3910/slabnest/internal/model"
)

const (
	circleSegments = 64
	arcSegments    = 32
	joinTolerance  = 0.01
	minExtent      = 0.01
)

// edge is a line segment between two points, collected from LINE and ARC
// entities and later joined into closed outlines.
type edge struct {
	from, to model.Point2D
}

// drawingShapes is everything closed that could be recovered from a drawing.
type drawingShapes struct {
	outlines []model.Outline
	warnings []string
}

// readShapes opens a DXF file and returns its closed outlines, largest first.
func readShapes(path string) (drawingShapes, error) {
	var shapes drawingShapes

	drawing, err := dxf.Open(path)
	if err != nil {
		return shapes, fmt.Errorf("cannot open DXF file: %w", err)
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		return shapes, errors.New("DXF file contains no entities")
	}

	var loose []edge
	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.LwPolyline:
			if o := polylineOutline(e); len(o) >= 3 {
				shapes.outlines = append(shapes.outlines, o)
			} else {
				shapes.warnings = append(shapes.warnings, "Skipped LWPOLYLINE with fewer than 3 vertices")
			}
		case *entity.Circle:
			shapes.outlines = append(shapes.outlines, circleOutline(e.Center[0], e.Center[1], e.Radius))
		case *entity.Arc:
			loose = append(loose, polylineEdges(arcPoints(e))...)
		case *entity.Line:
			loose = append(loose, edge{
				from: model.Point2D{X: e.Start[0], Y: e.Start[1]},
				to:   model.Point2D{X: e.End[0], Y: e.End[1]},
			})
		}
	}

	shapes.outlines = append(shapes.outlines, joinEdges(loose, joinTolerance)...)
	if len(shapes.outlines) == 0 {
		return shapes, errors.New("no closed shapes found in DXF file")
	}

	sort.SliceStable(shapes.outlines, func(i, j int) bool {
		return shapes.outlines[i].Area() > shapes.outlines[j].Area()
	})
	return shapes, nil
}

// ImportDXF imports objects from a DXF file. Every closed shape (LWPOLYLINE,
// CIRCLE, or a chain of connected LINEs and ARCs) becomes an outline object
// with the given number of copies, labeled after the file name.
func ImportDXF(path string, copies int) ImportResult {
	result := ImportResult{}
	if copies <= 0 {
		copies = 1
	}

	shapes, err := readShapes(path)
	if err != nil {
		result.Errors = append(result.Errors, capitalize(err.Error()))
		return result
	}
	result.Warnings = append(result.Warnings, shapes.warnings...)

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for i, o := range shapes.outlines {
		w, h := o.Size()
		if w < minExtent || h < minExtent {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Skipped degenerate shape (%.2f x %.2f)", w, h))
			continue
		}
		label := fmt.Sprintf("%s %d", base, i+1)
		result.Objects = append(result.Objects, model.NewOutlineObject(label, o.Normalize(), copies))
	}
	return result
}

// ImportDXFSheet reads a sheet boundary from a DXF file. The largest closed
// shape is taken as the boundary; the sheet keeps its drawing position.
func ImportDXFSheet(path string) (model.Sheet, error) {
	shapes, err := readShapes(path)
	if err != nil {
		return model.Sheet{}, err
	}
	boundary := shapes.outlines[0]
	if w, h := boundary.Size(); w < minExtent || h < minExtent {
		return model.Sheet{}, fmt.Errorf("sheet boundary is degenerate (%.2f x %.2f)", w, h)
	}
	return model.SheetFromOutline(boundary), nil
}

// polylineOutline converts an LWPOLYLINE to an outline. Vertices with a bulge
// are expanded into an arc towards the next vertex.
func polylineOutline(lw *entity.LwPolyline) model.Outline {
	n := len(lw.Vertices)
	var out model.Outline
	for i, v := range lw.Vertices {
		cur := model.Point2D{X: v[0], Y: v[1]}
		var bulge float64
		if i < len(lw.Bulges) {
			bulge = lw.Bulges[i]
		}
		if math.Abs(bulge) <= 1e-9 {
			out = append(out, cur)
			continue
		}
		nv := lw.Vertices[(i+1)%n]
		arc := bulgeArc(cur, model.Point2D{X: nv[0], Y: nv[1]}, bulge)
		// The arc's end is the next vertex, appended on its own iteration.
		out = append(out, arc[:len(arc)-1]...)
	}
	return out
}

// bulgeArc interpolates the arc between two vertices. The DXF bulge is the
// tangent of a quarter of the included angle; its sign gives the direction.
func bulgeArc(p1, p2 model.Point2D, bulge float64) model.Outline {
	dx, dy := p2.X-p1.X, p2.Y-p1.Y
	chord := math.Hypot(dx, dy)
	if chord < 1e-9 {
		return model.Outline{p1, p2}
	}

	sagitta := math.Abs(bulge) * chord / 2
	radius := (chord*chord/(4*sagitta) + sagitta) / 2

	nx, ny := -dy/chord, dx/chord
	if bulge > 0 {
		nx, ny = -nx, -ny
	}
	off := radius - sagitta
	cx := (p1.X+p2.X)/2 + nx*off
	cy := (p1.Y+p2.Y)/2 + ny*off

	start := math.Atan2(p1.Y-cy, p1.X-cx)
	end := math.Atan2(p2.Y-cy, p2.X-cx)
	switch {
	case bulge < 0 && end > start:
		end -= 2 * math.Pi
	case bulge > 0 && end < start:
		end += 2 * math.Pi
	}
	return sweep(cx, cy, radius, start, end, arcSegments)
}

// sweep samples segments+1 points from angle a0 to a1 around (cx, cy).
func sweep(cx, cy, r, a0, a1 float64, segments int) model.Outline {
	pts := make(model.Outline, segments+1)
	for i := range pts {
		a := a0 + (a1-a0)*float64(i)/float64(segments)
		pts[i] = model.Point2D{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return pts
}

// circleOutline approximates a circle as a regular polygon.
func circleOutline(cx, cy, r float64) model.Outline {
	pts := sweep(cx, cy, r, 0, 2*math.Pi, circleSegments)
	return pts[:circleSegments]
}

// arcPoints samples an ARC entity counter-clockwise from its start angle.
func arcPoints(a *entity.Arc) model.Outline {
	start := a.Angle[0] * math.Pi / 180
	end := a.Angle[1] * math.Pi / 180
	if end <= start {
		end += 2 * math.Pi
	}
	return sweep(a.Circle.Center[0], a.Circle.Center[1], a.Circle.Radius, start, end, arcSegments)
}

func polylineEdges(pts model.Outline) []edge {
	if len(pts) < 2 {
		return nil
	}
	edges := make([]edge, 0, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		edges = append(edges, edge{from: pts[i-1], to: pts[i]})
	}
	return edges
}

// joinEdges links edges end to end into chains. Chains of at least three
// points become outlines; a closing point equal to the first is dropped.
func joinEdges(edges []edge, tol float64) []model.Outline {
	used := make([]bool, len(edges))
	var outlines []model.Outline

	for first := range edges {
		if used[first] {
			continue
		}
		used[first] = true
		chain := model.Outline{edges[first].from, edges[first].to}

		for extended := true; extended; {
			extended = false
			tail := chain[len(chain)-1]
			for i, e := range edges {
				if used[i] {
					continue
				}
				var next model.Point2D
				switch {
				case near(tail, e.from, tol):
					next = e.to
				case near(tail, e.to, tol):
					next = e.from
				default:
					continue
				}
				chain = append(chain, next)
				used[i] = true
				extended = true
				break
			}
		}

		if len(chain) >= 3 && near(chain[0], chain[len(chain)-1], tol) {
			chain = chain[:len(chain)-1]
		}
		if len(chain) >= 3 {
			outlines = append(outlines, chain)
		}
	}
	return outlines
}

func near(a, b model.Point2D, tol float64) bool {
	return math.Hypot(a.X-b.X, a.Y-b.Y) <= tol
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
