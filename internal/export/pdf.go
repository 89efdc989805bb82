// Package export writes nesting results to PDF, label sheets, XLSX and DXF.
package export

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/slabnest/internal/model"
)

// objectColor represents an RGB fill for a placed object.
type objectColor struct {
	R, G, B int
}

// objectColors cycles per distinct object so copies share a color.
var objectColors = []objectColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	legendHeight = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// ErrNothingToExport is returned when a result has no sheets.
var ErrNothingToExport = errors.New("no sheets to export")

// palette assigns colors to object IDs in order of first appearance.
type palette map[string]objectColor

func (p palette) color(id string) objectColor {
	if c, ok := p[id]; ok {
		return c
	}
	c := objectColors[len(p)%len(objectColors)]
	p[id] = c
	return c
}

// sheetCanvas maps sheet coordinates onto a page rectangle. Sheet y grows
// upwards, page y grows downwards.
type sheetCanvas struct {
	sheet         model.Sheet
	scale         float64
	left, top     float64
	width, height float64
}

func newSheetCanvas(sheet model.Sheet, left, top, maxW, maxH float64) sheetCanvas {
	scale := math.Min(maxW/sheet.Width, maxH/sheet.Height)
	c := sheetCanvas{sheet: sheet, scale: scale, width: sheet.Width * scale, height: sheet.Height * scale}
	c.left = left + (maxW-c.width)/2
	c.top = top
	return c
}

func (c sheetCanvas) point(p model.Point2D) fpdf.PointType {
	return fpdf.PointType{
		X: c.left + (p.X-c.sheet.Origin.X)*c.scale,
		Y: c.top + c.height - (p.Y-c.sheet.Origin.Y)*c.scale,
	}
}

// ExportPDF writes a report with one page per sheet followed by a summary.
// objects is the job's input batch; it feeds the sheet estimate.
func ExportPDF(path string, result model.NestResult, objects []model.Object, params model.Parameters) error {
	if len(result.Sheets) == 0 {
		return ErrNothingToExport
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	colors := palette{}
	for i, sheet := range result.Sheets {
		pdf.AddPage()
		renderSheetPage(pdf, sheet, i+1, colors)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, result, objects, params)

	return pdf.OutputFileAndClose(path)
}

// renderSheetPage draws a single sheet on the current page.
func renderSheetPage(pdf *fpdf.Fpdf, sheet model.SheetResult, sheetNum int, colors palette) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Sheet %d (%.2f x %.2f)", sheetNum, sheet.Sheet.Width, sheet.Sheet.Height)
	if sheet.Sheet.Label != "" {
		title = fmt.Sprintf("Sheet %d: %s (%.2f x %.2f)", sheetNum, sheet.Sheet.Label, sheet.Sheet.Width, sheet.Sheet.Height)
	}
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Attempt: %d | Objects: %d | Used area: %.2f | Sheet area: %.2f | Utilization: %.1f%%",
		sheet.Attempt, len(sheet.Placements), sheet.UsedArea(), sheet.TotalArea(), sheet.Efficiency())
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawW := pageWidth - marginLeft - marginRight
	drawH := pageHeight - drawAreaTop - marginBottom - legendHeight
	canvas := newSheetCanvas(sheet.Sheet, marginLeft, drawAreaTop, drawW, drawH)

	pdf.SetFillColor(235, 235, 235)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(canvas.left, canvas.top, canvas.width, canvas.height, "FD")

	for _, p := range sheet.Placements {
		drawPlacement(pdf, canvas, p, colors.color(p.Object.ID))
	}

	drawDimensionAnnotations(pdf, canvas)
	drawObjectLegend(pdf, sheet, canvas.top+canvas.height+5, colors)
}

// drawPlacement fills the transformed outline and labels it at its bounding box center.
func drawPlacement(pdf *fpdf.Fpdf, c sheetCanvas, p model.Placement, col objectColor) {
	outline := p.PlacedOutline()
	pts := make([]fpdf.PointType, len(outline))
	for i, pt := range outline {
		pts[i] = c.point(pt)
	}

	pdf.SetFillColor(col.R, col.G, col.B)
	pdf.SetDrawColor(30, 30, 30)
	pdf.SetLineWidth(0.3)
	pdf.Polygon(pts, "FD")

	min, max := outline.BoundingBox()
	w := (max.X - min.X) * c.scale
	h := (max.Y - min.Y) * c.scale
	if w <= 15 || h <= 8 {
		return
	}
	center := c.point(model.Point2D{X: (min.X + max.X) / 2, Y: (min.Y + max.Y) / 2})

	pdf.SetFont("Helvetica", "", labelFontSize(w, h))
	pdf.SetTextColor(0, 0, 0)
	if lw := pdf.GetStringWidth(p.Object.Label); lw < w-2 {
		pdf.SetXY(center.X-lw/2, center.Y-4)
		pdf.CellFormat(lw, 4, p.Object.Label, "", 0, "C", false, 0, "")
	}
	dims := fmt.Sprintf("%.0fx%.0f", p.Object.Width, p.Object.Height)
	if dw := pdf.GetStringWidth(dims); h > 14 && dw < w-2 {
		pdf.SetXY(center.X-dw/2, center.Y)
		pdf.CellFormat(dw, 4, dims, "", 0, "C", false, 0, "")
	}
}

// drawDimensionAnnotations labels the sheet width below and height beside the canvas.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, c sheetCanvas) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%.2f", c.sheet.Width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(c.left+(c.width-wLabelW)/2, c.top+c.height+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%.2f", c.sheet.Height)
	pdf.TransformBegin()
	pdf.TransformRotate(90, c.left-3, c.top+c.height/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(c.left-3-hLabelW/2, c.top+c.height/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawObjectLegend lists each distinct object on the sheet with its copy count.
func drawObjectLegend(pdf *fpdf.Fpdf, sheet model.SheetResult, startY float64, colors palette) {
	if len(sheet.Placements) == 0 {
		return
	}

	type entry struct {
		obj   model.Object
		count int
	}
	var order []string
	entries := map[string]*entry{}
	for _, p := range sheet.Placements {
		e, ok := entries[p.Object.ID]
		if !ok {
			e = &entry{obj: p.Object}
			entries[p.Object.ID] = e
			order = append(order, p.Object.ID)
		}
		e.count++
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Objects placed:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for _, id := range order {
		e := entries[id]
		col := colors.color(id)
		label := fmt.Sprintf("%s (%.0fx%.0f) x%d", e.obj.Label, e.obj.Width, e.obj.Height, e.count)
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")
		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

type summaryItem struct {
	label string
	value string
}

func writeItems(pdf *fpdf.Fpdf, y float64, items []summaryItem) float64 {
	pdf.SetFont("Helvetica", "", 10)
	for _, item := range items {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(60, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 6
	}
	return y
}

func sectionTitle(pdf *fpdf.Fpdf, y float64, title string) float64 {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, title, "", 0, "L", false, 0, "")
	return y + 8
}

// renderSummaryPage draws overall statistics, the per-sheet table, unplaced
// objects, the parameters used and the area-based sheet estimate.
func renderSummaryPage(pdf *fpdf.Fpdf, result model.NestResult, objects []model.Object, params model.Parameters) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Nesting Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := sectionTitle(pdf, marginTop+16, "Overall Statistics")
	y = writeItems(pdf, y, []summaryItem{
		{"Job", result.JobID},
		{"Sheets Used", fmt.Sprintf("%d", len(result.Sheets))},
		{"Overall Utilization", fmt.Sprintf("%.1f%%", result.TotalEfficiency())},
		{"Copies Placed", fmt.Sprintf("%d", result.PlacedCount())},
		{"Copies Unplaced", fmt.Sprintf("%d", result.UnplacedCount())},
	})

	y = sectionTitle(pdf, y+4, "Sheet Breakdown")
	colWidths := []float64{20, 25, 55, 30, 55, 35}
	headers := []string{"Sheet", "Attempt", "Dimensions", "Objects", "Object / Sheet Area", "Utilization"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, s := range result.Summaries {
		row := []string{
			fmt.Sprintf("%d", s.Index),
			fmt.Sprintf("%d", s.Attempt),
			fmt.Sprintf("%.2f x %.2f", s.Width, s.Height),
			fmt.Sprintf("%d", s.ObjectCount),
			fmt.Sprintf("%.2f / %.2f", s.ObjectArea, s.SheetArea),
			fmt.Sprintf("%.2f%%", s.Utilization*100),
		}
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		xPos = marginLeft
		for j, cell := range row {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if len(result.Unplaced) > 0 {
		y += 6
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Unplaced Objects", "", 0, "L", false, 0, "")
		y += 7

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, o := range result.Unplaced {
			pdf.SetXY(marginLeft+5, y)
			text := fmt.Sprintf("- %s: %.2f x %.2f (copies left: %d)", o.Label, o.Width, o.Height, o.RemainingCopies)
			pdf.CellFormat(200, 5, text, "", 0, "L", false, 0, "")
			y += 5
		}
	}

	y = sectionTitle(pdf, y+6, "Parameters")
	y = writeItems(pdf, y, []summaryItem{
		{"Item Distance", fmt.Sprintf("%.2f", params.ItemToItem)},
		{"Sheet Edge Distance", fmt.Sprintf("%.2f", params.ItemToSheet)},
		{"Global Criterion", params.Criterion.String()},
		{"Variants", fmt.Sprintf("%d", params.LimitVariants)},
		{"Time Limit", fmt.Sprintf("%.1f s", params.TimeOut)},
	})

	if len(objects) > 0 {
		est := model.EstimateSheets(objects, result.Sheets[0].Sheet, params)
		y = sectionTitle(pdf, y+4, "Sheet Estimate")
		writeItems(pdf, y, []summaryItem{
			{"Object Area (spaced)", fmt.Sprintf("%.2f", est.TotalObjectArea)},
			{"Usable Sheet Area", fmt.Sprintf("%.2f", est.UsableSheetArea)},
			{"Minimum Sheets", fmt.Sprintf("%d (%.2f)", est.SheetsNeededMin, est.SheetsNeededExact)},
		})
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by slabnest", "", 0, "C", false, 0, "")
}

// labelFontSize returns a font size that fits a label into a w x h area.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
