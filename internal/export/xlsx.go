package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/slabnest/internal/model"
)

// Workbook sheet names.
const (
	SummarySheet    = "Summary"
	PlacementsSheet = "Placements"
	UnplacedSheet   = "Unplaced"
)

// ExportXLSX writes a workbook with per-sheet summaries, every placement and
// the unplaced objects.
func ExportXLSX(path string, result model.NestResult) error {
	if len(result.Sheets) == 0 {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{PlacementsSheet, UnplacedSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	summary := [][]interface{}{
		{"Sheet", "Attempt", "Width", "Height", "Sheet Area", "Objects", "Object Area", "Utilization"},
	}
	for _, s := range result.Summaries {
		summary = append(summary, []interface{}{
			s.Index, s.Attempt, s.Width, s.Height, s.SheetArea, s.ObjectCount, s.ObjectArea, s.Utilization,
		})
	}

	placements := [][]interface{}{
		{"Sheet", "Object ID", "Label", "Width", "Height", "Rotation", "X", "Y"},
	}
	for _, l := range CollectLabelInfos(result) {
		placements = append(placements, []interface{}{
			l.SheetIndex, l.ObjectID, l.ObjectLabel, l.Width, l.Height, l.Rotation, l.X, l.Y,
		})
	}

	unplaced := [][]interface{}{
		{"Object ID", "Label", "Width", "Height", "Copies", "Remaining"},
	}
	for _, o := range result.Unplaced {
		unplaced = append(unplaced, []interface{}{o.ID, o.Label, o.Width, o.Height, o.Copies, o.RemainingCopies})
	}

	for name, rows := range map[string][][]interface{}{
		SummarySheet:    summary,
		PlacementsSheet: placements,
		UnplacedSheet:   unplaced,
	} {
		if err := writeRows(f, name, rows, bold); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	last, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 14)
}
