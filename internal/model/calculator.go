package model

import "math"

// SheetEstimate is a lower bound on the sheets a batch needs, from area alone.
type SheetEstimate struct {
	TotalObjectArea   float64 `json:"total_object_area"`   // Object area including item spacing
	UsableSheetArea   float64 `json:"usable_sheet_area"`   // Sheet area inside the edge distance
	SheetsNeededExact float64 `json:"sheets_needed_exact"` // Exact fractional number of sheets
	SheetsNeededMin   int     `json:"sheets_needed_min"`   // Ceiling of the exact value
	Copies            int     `json:"copies"`
}

// EstimateSheets computes how many sheets a batch needs at minimum.
// Each copy is grown by the item-to-item distance on both axes and the
// sheet shrunk by the item-to-sheet distance on every edge.
func EstimateSheets(objects []Object, sheet Sheet, params Parameters) SheetEstimate {
	var est SheetEstimate
	for _, o := range objects {
		w := o.Width + params.ItemToItem
		h := o.Height + params.ItemToItem
		// Scale the outline area by the spacing growth of its bounding box.
		area := o.Area()
		if o.Width > 0 && o.Height > 0 {
			area *= (w * h) / (o.Width * o.Height)
		}
		est.TotalObjectArea += area * float64(o.Copies)
		est.Copies += o.Copies
	}

	usableW := sheet.Width - 2*params.ItemToSheet
	usableH := sheet.Height - 2*params.ItemToSheet
	if usableW <= 0 || usableH <= 0 {
		return est
	}
	est.UsableSheetArea = usableW * usableH
	est.SheetsNeededExact = est.TotalObjectArea / est.UsableSheetArea
	est.SheetsNeededMin = int(math.Ceil(est.SheetsNeededExact))
	return est
}
