package importer

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/drawing"

	"github.com/piwi3910/slabnest/internal/model"
)

// ─── DetectCSVDelimiter Tests ──────────────────────────────

func TestDetectCSVDelimiter(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{"comma", "Label,Width,Height,Copies\nShelf,60,30,2\nDoor,40,80,1\n", ','},
		{"semicolon", "Label;Width;Height;Copies\nShelf;60;30;2\nDoor;40;80;1\n", ';'},
		{"tab", "Label\tWidth\tHeight\tCopies\nShelf\t60\t30\t2\nDoor\t40\t80\t1\n", '\t'},
		{"pipe", "Label|Width|Height|Copies\nShelf|60|30|2\nDoor|40|80|1\n", '|'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCSVDelimiter([]byte(tt.data)); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// ─── DetectColumns Tests ───────────────────────────────────

func TestDetectColumns_StandardHeaders(t *testing.T) {
	row := []string{"Label", "Width", "Height", "Copies", "Priority", "Orientation", "Criterion"}
	mapping, isHeader := DetectColumns(row)

	require.True(t, isHeader)
	assert.Equal(t, ColumnMapping{0, 1, 2, 3, 4, 5, 6}, mapping)
}

func TestDetectColumns_AlternativeNames(t *testing.T) {
	row := []string{"Part Name", "W", "H", "Qty", "Prio", "Rotation"}
	mapping, isHeader := DetectColumns(row)

	if !isHeader {
		t.Fatal("expected header to be detected")
	}
	if mapping.Label != 0 || mapping.Width != 1 || mapping.Height != 2 {
		t.Errorf("unexpected label/width/height mapping %+v", mapping)
	}
	if mapping.Copies != 3 {
		t.Errorf("expected Copies at 3, got %d", mapping.Copies)
	}
	if mapping.Priority != 4 {
		t.Errorf("expected Priority at 4, got %d", mapping.Priority)
	}
	if mapping.Orientation != 5 {
		t.Errorf("expected Orientation at 5, got %d", mapping.Orientation)
	}
	if mapping.Criterion != -1 {
		t.Errorf("expected no Criterion column, got %d", mapping.Criterion)
	}
}

func TestDetectColumns_ReorderedColumns(t *testing.T) {
	mapping, isHeader := DetectColumns([]string{"QTY", "Height", "Width", "Name"})

	require.True(t, isHeader)
	assert.Equal(t, 0, mapping.Copies)
	assert.Equal(t, 1, mapping.Height)
	assert.Equal(t, 2, mapping.Width)
	assert.Equal(t, 3, mapping.Label)
}

func TestDetectColumns_NoHeader(t *testing.T) {
	mapping, isHeader := DetectColumns([]string{"Shelf", "60", "30", "2"})

	if isHeader {
		t.Error("expected no header detection for numeric data")
	}
	if mapping.Label != 0 || mapping.Width != 1 || mapping.Height != 2 || mapping.Copies != 3 {
		t.Errorf("expected positional mapping, got %+v", mapping)
	}
}

// ─── CSV Import Tests ──────────────────────────────────────

func TestImportCSVFromReader_WithHeaders(t *testing.T) {
	data := "Label,Width,Height,Copies,Priority,Orientation,Criterion\n" +
		"Shelf,60,30,2,1,+-90,bottom-left\n" +
		"Door,40,80,1,2,fixed,min-y\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	require.Empty(t, result.Errors)
	require.Len(t, result.Objects, 2)

	shelf := result.Objects[0]
	assert.Equal(t, "Shelf", shelf.Label)
	assert.Equal(t, 60.0, shelf.Width)
	assert.Equal(t, 30.0, shelf.Height)
	assert.Equal(t, 2, shelf.Copies)
	assert.Equal(t, 2, shelf.RemainingCopies)
	assert.Equal(t, 1, shelf.Priority)
	assert.Equal(t, model.PlusMinus90Orientation(), shelf.Orientation)
	assert.Equal(t, model.CriterionBottomLeft, shelf.Criterion)

	door := result.Objects[1]
	assert.Equal(t, 2, door.Priority)
	assert.Equal(t, model.FixedOrientation(), door.Orientation)
	assert.Equal(t, model.CriterionMinY, door.Criterion)
}

func TestImportCSVFromReader_WithoutHeaders(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader("Shelf,60,30,2\nDoor,40,80\n"), ',')

	require.Empty(t, result.Errors)
	require.Len(t, result.Objects, 2)
	assert.Equal(t, 2, result.Objects[0].Copies)
	// A missing copies column defaults to one copy.
	assert.Equal(t, 1, result.Objects[1].Copies)
	assert.Equal(t, model.FreeOrientation(), result.Objects[1].Orientation)
	assert.Equal(t, model.CriterionBestAreaFit, result.Objects[1].Criterion)
}

func TestImportCSVFromReader_SemicolonDecimalComma(t *testing.T) {
	data := "Label;Width;Height;Copies\nShelf;60,5;30,25;2\n"
	result := ImportCSVFromReader(strings.NewReader(data), ';')

	require.Empty(t, result.Errors)
	require.Len(t, result.Objects, 1)
	assert.InDelta(t, 60.5, result.Objects[0].Width, 1e-9)
	assert.InDelta(t, 30.25, result.Objects[0].Height, 1e-9)
}

func TestImportCSVFromReader_EmptyFile(t *testing.T) {
	result := ImportCSVFromReader(strings.NewReader(""), ',')
	if len(result.Errors) == 0 {
		t.Error("expected error for empty file")
	}
}

func TestImportCSVFromReader_InvalidRows(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"invalid width", "Shelf,abc,30,2", "Invalid width"},
		{"missing height", "Shelf,60,,2", "Missing height"},
		{"invalid copies", "Shelf,60,30,two", "Invalid copies"},
		{"negative", "Shelf,-60,30,2", "must be positive"},
		{"zero copies", "Shelf,60,30,0", "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := "Label,Width,Height,Copies\n" + tt.row + "\n"
			result := ImportCSVFromReader(strings.NewReader(data), ',')
			assert.Empty(t, result.Objects)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.want)
			assert.Contains(t, result.Errors[0], "Line 2")
		})
	}
}

func TestImportCSVFromReader_MixedValidAndInvalid(t *testing.T) {
	data := "Label,Width,Height,Copies\nA,10,10,1\nB,abc,10,1\nC,20,20,3\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	if len(result.Objects) != 2 {
		t.Errorf("expected 2 objects, got %d", len(result.Objects))
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 error, got %d", len(result.Errors))
	}
}

func TestImportCSVFromReader_EmptyRowsAndLabels(t *testing.T) {
	data := "Label,Width,Height,Copies\n,10,10,1\n,,,\n\n,20,20,1\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	require.Empty(t, result.Errors)
	require.Len(t, result.Objects, 2)
	assert.Equal(t, "Object 1", result.Objects[0].Label)
	assert.Equal(t, "Object 2", result.Objects[1].Label)
}

func TestImportCSVFromReader_UnknownOptionalValues(t *testing.T) {
	data := "Label,Width,Height,Copies,Priority,Orientation,Criterion\nA,10,10,1,high,sideways,greedy\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	require.Empty(t, result.Errors)
	require.Len(t, result.Objects, 1)
	obj := result.Objects[0]
	assert.Equal(t, 1, obj.Priority)
	assert.Equal(t, model.FreeOrientation(), obj.Orientation)
	assert.Equal(t, model.CriterionBestAreaFit, obj.Criterion)

	var warned int
	for _, w := range result.Warnings {
		if strings.Contains(w, "Line 2") {
			warned++
		}
	}
	assert.Equal(t, 3, warned, "warnings: %v", result.Warnings)
}

func TestImportCSVFromReader_MissingRequiredColumnInHeader(t *testing.T) {
	data := "Label,Width,Copies\nA,10,1\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Height")
	assert.Empty(t, result.Objects)
}

func TestImportCSVFromReader_UnrecognizedHeaderSkipped(t *testing.T) {
	data := "Stuk,Breedte,Hoogte,Aantal\nA,10,10,1\n"
	result := ImportCSVFromReader(strings.NewReader(data), ',')

	require.Empty(t, result.Errors)
	require.Len(t, result.Objects, 1)
	assert.Equal(t, "A", result.Objects[0].Label)
}

func TestImportCSV_SemicolonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objects.csv")
	require.NoError(t, os.WriteFile(path, []byte("Label;Width;Height;Copies\nA;10;20;2\n"), 0644))

	result := ImportCSV(path)
	require.Empty(t, result.Errors)
	require.Len(t, result.Objects, 1)

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "semicolon") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected semicolon warning, got %v", result.Warnings)
	}
}

func TestImportCSV_FileErrors(t *testing.T) {
	result := ImportCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.NotEmpty(t, result.Errors)

	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0644))
	result = ImportCSV(empty)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "File is empty", result.Errors[0])
}

// ─── Excel Import Tests ────────────────────────────────────

func createTestExcel(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "objects.xlsx")

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, cell := range row {
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, ref, cell))
		}
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestImportExcel_WithHeaders(t *testing.T) {
	path := createTestExcel(t, [][]interface{}{
		{"Name", "Width", "Height", "Qty", "Orientation"},
		{"Shelf", 60, 30, 2, "90"},
		{"Door", 40.5, 80, 1, "free"},
	})

	result := ImportExcel(path)
	require.Empty(t, result.Errors)
	require.Len(t, result.Objects, 2)
	assert.Equal(t, "Shelf", result.Objects[0].Label)
	assert.Equal(t, model.StepOrientation(90), result.Objects[0].Orientation)
	assert.InDelta(t, 40.5, result.Objects[1].Width, 1e-9)
}

func TestImportExcel_FileNotFound(t *testing.T) {
	result := ImportExcel(filepath.Join(t.TempDir(), "nope.xlsx"))
	if len(result.Errors) == 0 {
		t.Error("expected error for missing file")
	}
}

// ─── ImportFile Tests ──────────────────────────────────────

func TestImportFile_DispatchesByExtension(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "objects.CSV")
	require.NoError(t, os.WriteFile(csvPath, []byte("A,10,10,3\n"), 0644))

	result := ImportFile(csvPath, 1)
	require.Empty(t, result.Errors)
	require.Len(t, result.Objects, 1)
	assert.Equal(t, 3, result.Objects[0].Copies)

	result = ImportFile(filepath.Join(dir, "objects.json"), 1)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Unsupported file type")
}

func TestImportResult_Merge(t *testing.T) {
	a := ImportResult{Objects: []model.Object{model.NewObject("a", 1, 1, 1)}, Warnings: []string{"w1"}}
	b := ImportResult{Objects: []model.Object{model.NewObject("b", 1, 1, 1)}, Errors: []string{"e1"}}
	a.Merge(b)

	assert.Len(t, a.Objects, 2)
	assert.Equal(t, []string{"e1"}, a.Errors)
	assert.Equal(t, []string{"w1"}, a.Warnings)
}

// ─── DXF Import Tests ──────────────────────────────────────

func writeTestDXF(t *testing.T, build func(d *drawing.Drawing)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shapes.dxf")
	d := dxf.NewDrawing()
	build(d)
	require.NoError(t, d.SaveAs(path))
	return path
}

func TestImportDXF_LinesAndCircle(t *testing.T) {
	path := writeTestDXF(t, func(d *drawing.Drawing) {
		// 30 x 20 rectangle drawn as loose lines, one reversed
		_, _ = d.Line(10, 10, 0, 40, 10, 0)
		_, _ = d.Line(40, 10, 0, 40, 30, 0)
		_, _ = d.Line(10, 30, 0, 40, 30, 0)
		_, _ = d.Line(10, 30, 0, 10, 10, 0)
		_, _ = d.Circle(100, 100, 0, 5)
	})

	result := ImportDXF(path, 4)
	require.Empty(t, result.Errors)
	require.Len(t, result.Objects, 2)

	rect := result.Objects[0]
	assert.Equal(t, "shapes 1", rect.Label)
	assert.InDelta(t, 30, rect.Width, 1e-6)
	assert.InDelta(t, 20, rect.Height, 1e-6)
	assert.Equal(t, 4, rect.Copies)
	assert.Len(t, rect.Outline, 4)
	min, _ := rect.Outline.BoundingBox()
	assert.InDelta(t, 0, min.X, 1e-9)
	assert.InDelta(t, 0, min.Y, 1e-9)

	circle := result.Objects[1]
	assert.InDelta(t, 10, circle.Width, 1e-6)
	assert.Len(t, circle.Outline, circleSegments)
}

func TestImportDXF_NoClosedShapes(t *testing.T) {
	path := writeTestDXF(t, func(d *drawing.Drawing) {
		_, _ = d.Line(0, 0, 0, 10, 0, 0)
	})

	result := ImportDXF(path, 1)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "No closed shapes")
}

func TestImportDXFSheet_UsesLargestShape(t *testing.T) {
	path := writeTestDXF(t, func(d *drawing.Drawing) {
		_, _ = d.Line(5, 5, 0, 205, 5, 0)
		_, _ = d.Line(205, 5, 0, 205, 105, 0)
		_, _ = d.Line(205, 105, 0, 5, 105, 0)
		_, _ = d.Line(5, 105, 0, 5, 5, 0)
		_, _ = d.Circle(50, 50, 0, 10)
	})

	sheet, err := ImportDXFSheet(path)
	require.NoError(t, err)
	assert.InDelta(t, 200, sheet.Width, 1e-6)
	assert.InDelta(t, 100, sheet.Height, 1e-6)
	assert.InDelta(t, 5, sheet.Origin.X, 1e-6)
	assert.InDelta(t, 5, sheet.Origin.Y, 1e-6)
}

func TestImportDXF_MissingFile(t *testing.T) {
	result := ImportDXF(filepath.Join(t.TempDir(), "missing.dxf"), 1)
	assert.NotEmpty(t, result.Errors)

	_, err := ImportDXFSheet(filepath.Join(t.TempDir(), "missing.dxf"))
	assert.Error(t, err)
}

func TestJoinEdges(t *testing.T) {
	p := func(x, y float64) model.Point2D { return model.Point2D{X: x, Y: y} }
	edges := []edge{
		{p(0, 0), p(1, 0)},
		{p(5, 5), p(6, 5)}, // dangling
		{p(1, 1), p(1, 0)},
		{p(1, 1), p(0, 1)},
		{p(0, 1), p(0, 0.005)},
	}

	outlines := joinEdges(edges, joinTolerance)
	require.Len(t, outlines, 1)
	assert.Len(t, outlines[0], 4)
	assert.InDelta(t, 1, outlines[0].Area(), 0.01)
}

func TestBulgeArc_Semicircle(t *testing.T) {
	p1 := model.Point2D{X: 0, Y: 0}
	p2 := model.Point2D{X: 10, Y: 0}

	pts := bulgeArc(p1, p2, 1)
	require.Len(t, pts, arcSegments+1)
	assert.InDelta(t, p1.X, pts[0].X, 1e-9)
	assert.InDelta(t, p2.X, pts[len(pts)-1].X, 1e-9)
	for _, pt := range pts {
		assert.InDelta(t, 5, math.Hypot(pt.X-5, pt.Y), 1e-9)
	}

	degenerate := bulgeArc(p1, p1, 1)
	assert.Len(t, degenerate, 2)
}
