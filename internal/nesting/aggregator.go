package nesting

import (
	"fmt"

	"github.com/piwi3910/slabnest/internal/model"
)

// Aggregator accumulates the non-empty sheets of a job in attempt order.
type Aggregator struct {
	sheets []model.SheetResult
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Add records the placements of one attempt. Empty batches are dropped and
// Add reports whether the batch was kept.
func (a *Aggregator) Add(attempt int, sheet model.Sheet, placements []model.Placement) bool {
	if len(placements) == 0 {
		return false
	}
	p := make([]model.Placement, len(placements))
	copy(p, placements)
	a.sheets = append(a.sheets, model.SheetResult{Attempt: attempt, Sheet: sheet, Placements: p})
	return true
}

// Len returns the number of recorded sheets.
func (a *Aggregator) Len() int {
	return len(a.sheets)
}

// Sheets returns the recorded sheets in attempt order.
func (a *Aggregator) Sheets() []model.SheetResult {
	out := make([]model.SheetResult, len(a.sheets))
	copy(out, a.sheets)
	return out
}

// Summaries returns one summary per recorded sheet, numbered from 1.
func (a *Aggregator) Summaries() []model.SheetSummary {
	return Summarize(a.sheets)
}

// Result assembles the job output with the given permanently unplaced objects.
func (a *Aggregator) Result(unplaced []model.Object) model.NestResult {
	return model.NestResult{
		Sheets:    a.Sheets(),
		Unplaced:  model.CloneObjects(unplaced),
		Summaries: a.Summaries(),
	}
}

// Summarize builds per-sheet summaries numbered from 1.
func Summarize(sheets []model.SheetResult) []model.SheetSummary {
	out := make([]model.SheetSummary, 0, len(sheets))
	for i, s := range sheets {
		sum := model.SheetSummary{
			Index:       i + 1,
			Attempt:     s.Attempt,
			Width:       s.Sheet.Width,
			Height:      s.Sheet.Height,
			SheetArea:   s.TotalArea(),
			ObjectCount: len(s.Placements),
			ObjectArea:  s.UsedArea(),
		}
		if sum.SheetArea > 0 {
			sum.Utilization = sum.ObjectArea / sum.SheetArea
		}
		out = append(out, sum)
	}
	return out
}

// ReportLines renders summaries as human-readable text, one block per sheet.
func ReportLines(summaries []model.SheetSummary) []string {
	lines := make([]string, 0, len(summaries)*7)
	for _, s := range summaries {
		lines = append(lines,
			fmt.Sprintf("Sheet: %d", s.Index),
			fmt.Sprintf("Panel Size: %.2f x %.2f", s.Width, s.Height),
			fmt.Sprintf("Panel Area: %.2f", s.SheetArea),
			fmt.Sprintf("Objects: %d", s.ObjectCount),
			fmt.Sprintf("Objects Area: %.2f", s.ObjectArea),
			fmt.Sprintf("Utilization: %.2f%%", s.Utilization*100),
			"",
		)
	}
	return lines
}
