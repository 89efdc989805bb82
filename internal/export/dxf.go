package export

import (
	"fmt"
	"sync"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/piwi3910/slabnest/internal/model"
	"github.com/piwi3910/slabnest/internal/nesting"
)

var _ nesting.Scene = (*DXFScene)(nil)

// DXF layer names.
const (
	SheetsLayer  = "SHEETS"
	ObjectsLayer = "OBJECTS"
)

// DXFScene collects committed sheets into a DXF drawing. It satisfies the
// controller's scene interface: sheet bounds go on SHEETS, placed outlines
// on OBJECTS, both in world coordinates.
type DXFScene struct {
	mu      sync.Mutex
	drawing *drawing.Drawing
	sheets  int
	objects int
}

// NewDXFScene returns an empty scene.
func NewDXFScene() (*DXFScene, error) {
	s := &DXFScene{}
	if err := s.Clear(); err != nil {
		return nil, err
	}
	return s, nil
}

// Clear discards everything drawn so far.
func (s *DXFScene) Clear() error {
	d := dxf.NewDrawing()
	if _, err := d.AddLayer(SheetsLayer, color.Green, dxf.DefaultLineType, false); err != nil {
		return fmt.Errorf("add layer %s: %w", SheetsLayer, err)
	}
	if _, err := d.AddLayer(ObjectsLayer, color.Cyan, dxf.DefaultLineType, false); err != nil {
		return fmt.Errorf("add layer %s: %w", ObjectsLayer, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawing = d
	s.sheets = 0
	s.objects = 0
	return nil
}

// Commit draws one sheet and its placements.
func (s *DXFScene) Commit(sheet model.SheetResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.drawing.ChangeLayer(SheetsLayer); err != nil {
		return err
	}
	if err := drawOutline(s.drawing, sheet.Sheet.Bounds()); err != nil {
		return fmt.Errorf("draw sheet %d: %w", s.sheets+1, err)
	}

	if err := s.drawing.ChangeLayer(ObjectsLayer); err != nil {
		return err
	}
	for _, p := range sheet.Placements {
		if err := drawOutline(s.drawing, p.PlacedOutline()); err != nil {
			return fmt.Errorf("draw %s: %w", p.Object.Label, err)
		}
		s.objects++
	}
	s.sheets++
	return nil
}

// Counts reports how many sheets and objects have been committed since the last Clear.
func (s *DXFScene) Counts() (sheets, objects int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheets, s.objects
}

// Save writes the drawing to path.
func (s *DXFScene) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawing.SaveAs(path)
}

// drawOutline emits a closed outline as LINE entities.
func drawOutline(d *drawing.Drawing, o model.Outline) error {
	for i, a := range o {
		b := o[(i+1)%len(o)]
		if _, err := d.Line(a.X, a.Y, 0, b.X, b.Y, 0); err != nil {
			return err
		}
	}
	return nil
}
