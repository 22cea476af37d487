package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	file := excelize.NewFile()
	defer file.Close() //nolint:errcheck
	sheet := file.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, file.SetSheetRow(sheet, cell, &row))
	}
	buf, err := file.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadFirstSheet(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Student ID", "Full Name", "Grade"},
		{"S-001", " Rina ", "A"},
		{"", "", ""},
		{"S-002", "Budi", 3.5},
	})

	sheet, err := ReadFirstSheet(data, []string{"student_id", "grade"})
	require.NoError(t, err)
	assert.Equal(t, []string{"student_id", "full_name", "grade"}, sheet.Headers)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, 2, sheet.Rows[0].Number)
	assert.Equal(t, "Rina", sheet.Rows[0].Get("full_name"))
	assert.Equal(t, 4, sheet.Rows[1].Number)
	assert.Equal(t, "3.5", sheet.Rows[1].Get("grade"))
	assert.Equal(t, "", sheet.Rows[1].Get("unknown"))
}

func TestReadFirstSheetMissingColumns(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"student_id"},
		{"S-001"},
	})

	_, err := ReadFirstSheet(data, []string{"student_id", "grade", "year"})
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"grade", "year"}, missing.Columns)
}

func TestReadFirstSheetEmpty(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{{"student_id"}})
	_, err := ReadFirstSheet(data, nil)
	assert.ErrorIs(t, err, ErrEmptyWorkbook)

	_, err = ReadFirstSheet([]byte("not a workbook"), nil)
	assert.Error(t, err)
}
