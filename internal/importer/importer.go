// Package importer reads object lists from CSV, Excel and DXF files. CSV
// input gets automatic delimiter detection; tabular input is mapped by
// case-insensitive header aliases with a positional fallback.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/slabnest/internal/model"
)

// ImportResult holds the results of an import operation. Rows that cannot
// be parsed are reported in Errors and skipped; the rest are still imported.
type ImportResult struct {
	Objects  []model.Object
	Errors   []string
	Warnings []string
}

// Merge appends another result's objects and messages.
func (r *ImportResult) Merge(other ImportResult) {
	r.Objects = append(r.Objects, other.Objects...)
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// ColumnMapping maps semantic column roles to their indices in the data.
// -1 marks a column that is not present.
type ColumnMapping struct {
	Label       int
	Width       int
	Height      int
	Copies      int
	Priority    int
	Orientation int
	Criterion   int
}

// column roles in positional order
var roles = []string{"label", "width", "height", "copies", "priority", "orientation", "criterion"}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"label":       {"label", "name", "object", "part", "part name", "description", "desc", "piece", "item"},
	"width":       {"width", "w", "length", "len", "x"},
	"height":      {"height", "h", "depth", "d", "y"},
	"copies":      {"copies", "copy", "quantity", "qty", "count", "num", "amount", "pcs", "pieces"},
	"priority":    {"priority", "prio", "p", "order"},
	"orientation": {"orientation", "rotation", "rotate", "angle"},
	"criterion":   {"criterion", "criteria", "placement", "fit"},
}

func (m *ColumnMapping) slot(role string) *int {
	switch role {
	case "label":
		return &m.Label
	case "width":
		return &m.Width
	case "height":
		return &m.Height
	case "copies":
		return &m.Copies
	case "priority":
		return &m.Priority
	case "orientation":
		return &m.Orientation
	default:
		return &m.Criterion
	}
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range []rune{',', ';', '\t', '|'} {
		records, err := readCSV(bytes.NewReader(data), delim)
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}
		consistent := 0
		for _, row := range records {
			if len(row) == firstCols {
				consistent++
			}
		}

		// Prefer delimiters with higher consistency and more columns
		if weighted := consistent*10 + firstCols; weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

func readCSV(r io.Reader, delim rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

// DetectColumns examines a header row and returns a ColumnMapping.
// Returns the mapping and true if a header was detected, or the positional
// mapping (label, width, height, copies, priority, orientation, criterion)
// and false if no header was found.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{-1, -1, -1, -1, -1, -1, -1}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for _, role := range roles {
			for _, alias := range headerAliases[role] {
				if normalized != alias {
					continue
				}
				isHeader = true
				if slot := mapping.slot(role); *slot == -1 {
					*slot = i
				}
			}
		}
	}

	if !isHeader {
		return ColumnMapping{0, 1, 2, 3, 4, 5, 6}, false
	}
	return mapping, true
}

// getCell safely retrieves a cell value from a row by column index.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseNumber(s string) (float64, error) {
	// Accept decimal commas from semicolon-separated exports.
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// parseRow extracts an Object from a row. It returns the object, an error
// message when the row is unusable, and warnings for ignored values.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, count int) (model.Object, string, []string) {
	label := getCell(row, mapping.Label)
	if label == "" {
		label = fmt.Sprintf("Object %d", count+1)
	}

	widthStr := getCell(row, mapping.Width)
	if widthStr == "" {
		return model.Object{}, fmt.Sprintf("%s: Missing width value", rowLabel), nil
	}
	width, err := parseNumber(widthStr)
	if err != nil {
		return model.Object{}, fmt.Sprintf("%s: Invalid width '%s'", rowLabel, widthStr), nil
	}

	heightStr := getCell(row, mapping.Height)
	if heightStr == "" {
		return model.Object{}, fmt.Sprintf("%s: Missing height value", rowLabel), nil
	}
	height, err := parseNumber(heightStr)
	if err != nil {
		return model.Object{}, fmt.Sprintf("%s: Invalid height '%s'", rowLabel, heightStr), nil
	}

	copies := 1
	if s := getCell(row, mapping.Copies); s != "" {
		copies, err = strconv.Atoi(s)
		if err != nil {
			return model.Object{}, fmt.Sprintf("%s: Invalid copies '%s'", rowLabel, s), nil
		}
	}

	if width <= 0 || height <= 0 || copies <= 0 {
		return model.Object{}, fmt.Sprintf("%s: Width, height, and copies must be positive", rowLabel), nil
	}

	obj := model.NewObject(label, width, height, copies)

	var warnings []string
	if s := getCell(row, mapping.Priority); s != "" {
		if p, err := strconv.Atoi(s); err == nil {
			obj.Priority = p
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: Invalid priority '%s', using %d", rowLabel, s, obj.Priority))
		}
	}
	if s := getCell(row, mapping.Orientation); s != "" {
		if o, err := model.ParseOrientation(s); err == nil {
			obj.Orientation = o
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: Unknown orientation '%s', defaulting to %s", rowLabel, s, obj.Orientation))
		}
	}
	if s := getCell(row, mapping.Criterion); s != "" {
		if c, err := model.ParseCriterion(s); err == nil {
			obj.Criterion = c
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: Unknown criterion '%s', defaulting to %s", rowLabel, s, obj.Criterion))
		}
	}

	return obj, "", warnings
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportFile imports objects from a file, choosing the reader by extension.
// copies is used for DXF shapes, which carry no copy count of their own.
func ImportFile(path string, copies int) ImportResult {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".tsv":
		return ImportCSV(path)
	case ".xlsx", ".xlsm", ".xls":
		return ImportExcel(path)
	case ".dxf":
		return ImportDXF(path, copies)
	default:
		return ImportResult{Errors: []string{fmt.Sprintf("Unsupported file type: %s", filepath.Ext(path))}}
	}
}

// ImportCSV imports objects from a CSV file.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}
	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	var warnings []string
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	records, err := readCSV(bytes.NewReader(data), delimiter)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}
	return importFromRows(records, "Line", warnings)
}

// ImportCSVFromReader imports objects from a CSV reader with a known delimiter.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	records, err := readCSV(reader, delimiter)
	if err != nil {
		return ImportResult{Errors: []string{fmt.Sprintf("Cannot read CSV: %v", err)}}
	}
	return importFromRows(records, "Line", nil)
}

// ImportExcel imports objects from the first sheet of an Excel workbook.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}
	return importFromRows(rows, "Row", nil)
}

// importFromRows is the shared import logic for CSV and Excel data.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{Warnings: initialWarnings}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		var missing []string
		if mapping.Width == -1 {
			missing = append(missing, "Width")
		}
		if mapping.Height == -1 {
			missing = append(missing, "Height")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 3 {
		// A non-numeric width cell means an unrecognized header row.
		if _, err := parseNumber(strings.TrimSpace(rows[0][1])); err != nil {
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		obj, errMsg, warnings := parseRow(row, mapping, rowLabel, len(result.Objects))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		result.Warnings = append(result.Warnings, warnings...)
		result.Objects = append(result.Objects, obj)
	}

	return result
}
