package export

import (
	"os"
	"testing"

	"github.com/piwi3910/slabnest/internal/model"
	"github.com/piwi3910/slabnest/internal/nesting"
)

func place(obj model.Object, x, y, rotation float64) model.Placement {
	return model.Placement{
		Object:    obj,
		Transform: model.Rotation(rotation).Then(model.Translation(x, y)),
		Rotation:  rotation,
	}
}

// buildTestResult creates a two-sheet job output with one unplaced object.
func buildTestResult() model.NestResult {
	side := model.NewObject("Side Panel", 60, 40, 3)
	top := model.NewObject("Top", 50, 30, 1)
	triangle := model.NewOutlineObject("Gusset", model.Outline{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 0, Y: 20}}, 1)
	tooBig := model.NewObject("Too Big", 500, 500, 1)
	tooBig.RemainingCopies = 1

	first := model.NewSheet(200, 100)
	second := model.NewSheet(200, 100)
	second.Origin = model.Point2D{X: 200}

	sheets := []model.SheetResult{
		{
			Attempt: 1,
			Sheet:   first,
			Placements: []model.Placement{
				place(side, 0, 0, 0),
				place(side, 60, 0, 0),
				place(top, 150, 0, 90),
				place(triangle, 0, 40, 0),
			},
		},
		{
			Attempt:    2,
			Sheet:      second,
			Placements: []model.Placement{place(side, 200, 0, 0)},
		},
	}
	return model.NestResult{
		JobID:     "job12345",
		Sheets:    sheets,
		Unplaced:  []model.Object{tooBig},
		Summaries: nesting.Summarize(sheets),
	}
}

func testObjects(result model.NestResult) []model.Object {
	seen := map[string]bool{}
	var objs []model.Object
	for _, s := range result.Sheets {
		for _, p := range s.Placements {
			if !seen[p.Object.ID] {
				seen[p.Object.ID] = true
				objs = append(objs, p.Object)
			}
		}
	}
	return append(objs, result.Unplaced...)
}

func requireFile(t *testing.T, path string, minSize int64) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file was not created: %v", err)
	}
	if info.Size() < minSize {
		t.Errorf("file seems too small: %d bytes", info.Size())
	}
}
