package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/piwi3910/slabnest/internal/model"
)

func TestExportPDF_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	result := buildTestResult()

	if err := ExportPDF(path, result, testObjects(result), model.DefaultParameters()); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
	// Two sheet pages and a summary page
	requireFile(t, path, 500)
}

func TestExportPDF_EmptyResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")

	err := ExportPDF(path, model.NestResult{}, nil, model.DefaultParameters())
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
}

func TestExportPDF_WithoutObjectsSkipsEstimate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noestimate.pdf")

	if err := ExportPDF(path, buildTestResult(), nil, model.DefaultParameters()); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
	requireFile(t, path, 500)
}

func TestExportPDF_ManyObjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "many.pdf")

	sheet := model.SheetResult{Attempt: 1, Sheet: model.NewSheet(1000, 500)}
	for i := 0; i < 40; i++ {
		obj := model.NewObject(fmt.Sprintf("Object with a long label %d", i), 20, 10, 1)
		sheet.Placements = append(sheet.Placements, place(obj, float64(i%10)*25, float64(i/10)*12, 0))
	}
	result := model.NestResult{Sheets: []model.SheetResult{sheet}}

	if err := ExportPDF(path, result, nil, model.DefaultParameters()); err != nil {
		t.Fatalf("ExportPDF returned error: %v", err)
	}
	requireFile(t, path, 500)
}

func TestSheetCanvas_FlipsY(t *testing.T) {
	sheet := model.NewSheet(100, 50)
	sheet.Origin = model.Point2D{X: 100}
	c := newSheetCanvas(sheet, 10, 20, 200, 100)

	if c.scale != 2 {
		t.Fatalf("expected scale 2, got %v", c.scale)
	}
	p := c.point(model.Point2D{X: 100, Y: 0})
	if p.X != 10 || p.Y != 120 {
		t.Errorf("sheet origin should map to the bottom-left corner, got %+v", p)
	}
	p = c.point(model.Point2D{X: 200, Y: 50})
	if p.X != 210 || p.Y != 20 {
		t.Errorf("far corner should map to the top-right corner, got %+v", p)
	}
}

func TestPalette_StableAndCycling(t *testing.T) {
	p := palette{}
	first := p.color("a")
	if p.color("a") != first {
		t.Error("same ID should keep its color")
	}
	for i := 0; i < len(objectColors)-1; i++ {
		p.color(fmt.Sprintf("id%d", i))
	}
	if p.color("wrap") != first {
		t.Error("colors should cycle after the palette is exhausted")
	}
}

func TestLabelFontSize(t *testing.T) {
	tests := []struct {
		w, h float64
		want float64
	}{
		{100, 100, 8},
		{30, 100, 7},
		{15, 10, 6},
	}
	for _, tt := range tests {
		if got := labelFontSize(tt.w, tt.h); got != tt.want {
			t.Errorf("labelFontSize(%v, %v) = %v, want %v", tt.w, tt.h, got, tt.want)
		}
	}
}
