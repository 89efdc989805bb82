package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/slabnest/internal/model"
)

func TestCollectLabelInfos(t *testing.T) {
	labels := CollectLabelInfos(buildTestResult())
	require.Len(t, labels, 5)

	assert.Equal(t, "Side Panel", labels[0].ObjectLabel)
	assert.Equal(t, 1, labels[0].SheetIndex)
	assert.Equal(t, 1, labels[0].Copy)
	assert.Equal(t, 2, labels[1].Copy)

	top := labels[2]
	assert.Equal(t, "Top", top.ObjectLabel)
	assert.Equal(t, 90.0, top.Rotation)
	// A 50x30 rectangle turned a quarter and moved to x=150 spans x in [120, 150].
	assert.InDelta(t, 120, top.X, 1e-9)
	assert.InDelta(t, 0, top.Y, 1e-9)

	last := labels[4]
	assert.Equal(t, 2, last.SheetIndex)
	assert.Equal(t, 2, last.Attempt)
	assert.Equal(t, 3, last.Copy)
	assert.InDelta(t, 200, last.X, 1e-9)
}

func TestLabelInfo_JSONPayload(t *testing.T) {
	info := CollectLabelInfos(buildTestResult())[0]

	data, err := json.Marshal(info)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"object_id", "label", "width", "height", "sheet", "attempt", "copy", "rotation", "x", "y"} {
		assert.Contains(t, decoded, key)
	}
}

func TestExportLabels_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.pdf")
	if err := ExportLabels(path, buildTestResult()); err != nil {
		t.Fatalf("ExportLabels returned error: %v", err)
	}
	requireFile(t, path, 1000)
}

func TestExportLabels_Errors(t *testing.T) {
	dir := t.TempDir()

	err := ExportLabels(filepath.Join(dir, "empty.pdf"), model.NestResult{})
	assert.True(t, errors.Is(err, ErrNothingToExport), "got %v", err)

	noPlacements := model.NestResult{Sheets: []model.SheetResult{{Sheet: model.NewSheet(10, 10)}}}
	err = ExportLabels(filepath.Join(dir, "none.pdf"), noPlacements)
	assert.True(t, errors.Is(err, ErrNoPlacements), "got %v", err)
}

func TestExportLabels_MultiplePages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "many_labels.pdf")

	obj := model.NewObject("Shelf", 10, 10, labelsPerPage+5)
	sheet := model.SheetResult{Attempt: 1, Sheet: model.NewSheet(1000, 1000)}
	for i := 0; i < obj.Copies; i++ {
		sheet.Placements = append(sheet.Placements, place(obj, float64(i)*10, 0, 0))
	}

	if err := ExportLabels(path, model.NestResult{Sheets: []model.SheetResult{sheet}}); err != nil {
		t.Fatalf("ExportLabels returned error: %v", err)
	}
	requireFile(t, path, 1000)
	assert.Len(t, CollectLabelInfos(model.NestResult{Sheets: []model.SheetResult{sheet}}), labelsPerPage+5, fmt.Sprintf("expected %d labels", labelsPerPage+5))
}
