package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/slabnest/internal/model"
)

// LabelInfo holds the data encoded into each placed copy's QR code.
type LabelInfo struct {
	ObjectID    string  `json:"object_id"`
	ObjectLabel string  `json:"label"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	SheetIndex  int     `json:"sheet"`
	Attempt     int     `json:"attempt"`
	Copy        int     `json:"copy"` // 1-based per object over the whole job
	Rotation    float64 `json:"rotation"`
	X           float64 `json:"x"` // Lower-left corner of the placed bounding box
	Y           float64 `json:"y"`
}

// Label layout for Avery 5160-compatible sheets (3 columns, 10 rows on US Letter).
const (
	labelMarginTop  = 12.7
	labelMarginLeft = 4.8
	labelWidth      = 66.7
	labelHeight     = 25.4
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0
	labelPadding    = 2.0
)

// ErrNoPlacements is returned when a result has nothing to label.
var ErrNoPlacements = errors.New("no objects placed to generate labels for")

// CollectLabelInfos lists one label per placed copy, sheet by sheet.
func CollectLabelInfos(result model.NestResult) []LabelInfo {
	var labels []LabelInfo
	copies := map[string]int{}
	for sheetIdx, sheet := range result.Sheets {
		for _, p := range sheet.Placements {
			copies[p.Object.ID]++
			min, _ := p.PlacedOutline().BoundingBox()
			labels = append(labels, LabelInfo{
				ObjectID:    p.Object.ID,
				ObjectLabel: p.Object.Label,
				Width:       p.Object.Width,
				Height:      p.Object.Height,
				SheetIndex:  sheetIdx + 1,
				Attempt:     sheet.Attempt,
				Copy:        copies[p.Object.ID],
				Rotation:    p.Rotation,
				X:           min.X,
				Y:           min.Y,
			})
		}
	}
	return labels
}

// ExportLabels writes a PDF of QR-coded labels, one per placed copy.
func ExportLabels(path string, result model.NestResult) error {
	if len(result.Sheets) == 0 {
		return ErrNothingToExport
	}
	labels := CollectLabelInfos(result)
	if len(labels) == 0 {
		return ErrNoPlacements
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}
		pos := i % labelsPerPage
		x := labelMarginLeft + float64(pos%labelCols)*labelWidth
		y := labelMarginTop + float64(pos/labelCols)*labelHeight

		if err := renderLabel(pdf, x, y, i, label); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.ObjectLabel, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws one label with its QR code on the right.
func renderLabel(pdf *fpdf.Fpdf, x, y float64, n int, info LabelInfo) error {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}
	png, err := qrcode.Encode(string(payload), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%d", n)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imgName, opts, bytes.NewReader(png))
	pdf.ImageOptions(imgName, x+labelWidth-qrSize-labelPadding, y+(labelHeight-qrSize)/2, qrSize, qrSize, false, opts, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)
	pdf.CellFormat(textW, 4.5, fitText(pdf, info.ObjectLabel, textW), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	pdf.CellFormat(textW, 3.5, fmt.Sprintf("%.2f x %.2f  #%d", info.Width, info.Height, info.Copy), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 6)
	pdf.SetTextColor(100, 100, 100)
	pdf.SetXY(textX, y+labelPadding+9)
	pdf.CellFormat(textW, 3, fmt.Sprintf("Sheet %d @ (%.1f, %.1f)", info.SheetIndex, info.X, info.Y), "", 1, "L", false, 0, "")

	if info.Rotation != 0 {
		pdf.SetXY(textX, y+labelPadding+12.5)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(150, 100, 0)
		pdf.CellFormat(textW, 3, fmt.Sprintf("Rotated %.0f\xb0", info.Rotation), "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	return nil
}

// fitText truncates s with an ellipsis until it fits into w.
func fitText(pdf *fpdf.Fpdf, s string, w float64) string {
	if pdf.GetStringWidth(s) <= w {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > w {
		s = s[:len(s)-1]
	}
	return s + "..."
}
