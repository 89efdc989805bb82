package nesting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/slabnest/internal/model"
)

func TestAggregatorDropsEmptyBatches(t *testing.T) {
	agg := NewAggregator()
	obj := model.NewObject("A", 10, 5, 3)

	assert.False(t, agg.Add(0, model.NewSheet(100, 100), nil))
	assert.True(t, agg.Add(1, model.NewSheet(100, 100), []model.Placement{{Object: obj}}))
	assert.Equal(t, 1, agg.Len())

	sums := agg.Summaries()
	require.Len(t, sums, 1)
	assert.Equal(t, 1, sums[0].Index)
	assert.Equal(t, 1, sums[0].Attempt)
}

func TestSummarize(t *testing.T) {
	obj := model.NewObject("A", 10, 5, 3)
	sheets := []model.SheetResult{
		{Sheet: model.NewSheet(20, 10), Placements: []model.Placement{{Object: obj}, {Object: obj}}},
		{Sheet: model.Sheet{}, Placements: []model.Placement{{Object: obj}}},
	}

	sums := Summarize(sheets)
	require.Len(t, sums, 2)
	assert.Equal(t, 1, sums[0].Index)
	assert.Equal(t, 2, sums[0].ObjectCount)
	assert.InDelta(t, 200, sums[0].SheetArea, 1e-9)
	assert.InDelta(t, 100, sums[0].ObjectArea, 1e-9)
	assert.InDelta(t, 0.5, sums[0].Utilization, 1e-9)

	assert.Equal(t, 2, sums[1].Index)
	assert.Equal(t, 0.0, sums[1].Utilization, "zero sheet area yields zero utilization")
}

func TestAggregatorResultCopiesUnplaced(t *testing.T) {
	agg := NewAggregator()
	unplaced := []model.Object{model.NewObject("B", 1, 1, 2)}
	res := agg.Result(unplaced)
	unplaced[0].Outline[0].X = 42

	require.Len(t, res.Unplaced, 1)
	assert.Equal(t, 0.0, res.Unplaced[0].Outline[0].X)
	assert.Empty(t, res.Sheets)
}

func TestReportLines(t *testing.T) {
	lines := ReportLines([]model.SheetSummary{{
		Index:       1,
		Width:       20,
		Height:      10,
		SheetArea:   200,
		ObjectCount: 2,
		ObjectArea:  100,
		Utilization: 0.5,
	}})

	assert.Equal(t, []string{
		"Sheet: 1",
		"Panel Size: 20.00 x 10.00",
		"Panel Area: 200.00",
		"Objects: 2",
		"Objects Area: 100.00",
		"Utilization: 50.00%",
		"",
	}, lines)
}

func TestSheetPoliciesAreDeterministic(t *testing.T) {
	prev := model.NewSheet(100, 50)
	prev.Origin = model.Point2D{X: 10, Y: 20}

	right := TileRight(5)
	a, b := right(prev, 1), right(prev, 1)
	assert.Equal(t, a, b)
	assert.Equal(t, model.Point2D{X: 115, Y: 20}, a.Origin)
	assert.Equal(t, prev.Width, a.Width)
	assert.True(t, a.MultiSheet)

	up := TileUp(0)(prev, 3)
	assert.Equal(t, model.Point2D{X: 10, Y: 70}, up.Origin)
	assert.Equal(t, model.Point2D{X: 10, Y: 20}, prev.Origin, "policy must not mutate its input")
}
