// Package importer reads tabular spreadsheet uploads.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmptyWorkbook is returned when the workbook has no sheet or no data rows.
var ErrEmptyWorkbook = errors.New("workbook has no data rows")

// Row is one data row keyed by normalised header name.
type Row struct {
	Number int
	Values map[string]string
}

// Get returns the trimmed cell for column, or "" when absent.
func (r Row) Get(column string) string {
	return r.Values[column]
}

// Sheet holds the header and data rows of a worksheet.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []Row
}

// MissingColumnsError lists required headers absent from the sheet.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// ReadFirstSheet parses the first worksheet of an .xlsx payload. Headers are
// lower-cased with spaces turned into underscores; blank rows are skipped.
func ReadFirstSheet(data []byte, required []string) (*Sheet, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close() //nolint:errcheck

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyWorkbook
	}

	headers := make([]string, len(rows[0]))
	present := make(map[string]bool, len(rows[0]))
	for i, raw := range rows[0] {
		headers[i] = normaliseHeader(raw)
		present[headers[i]] = true
	}
	var missing []string
	for _, column := range required {
		if !present[column] {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	sheet := &Sheet{Name: sheets[0], Headers: headers}
	for i, cells := range rows[1:] {
		values := make(map[string]string, len(headers))
		blank := true
		for col, header := range headers {
			if header == "" || col >= len(cells) {
				continue
			}
			value := strings.TrimSpace(cells[col])
			if value != "" {
				blank = false
			}
			values[header] = value
		}
		if blank {
			continue
		}
		sheet.Rows = append(sheet.Rows, Row{Number: i + 2, Values: values})
	}
	if len(sheet.Rows) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return sheet, nil
}

func normaliseHeader(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
}
