package file

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/relloyd/xlpipe/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for idx, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, idx+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	_, err := f.NewSheet("Ignored")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Ignored", "A1", "not read"))
	name := filepath.Join(t.TempDir(), "transaction.xlsx")
	require.NoError(t, f.SaveAs(name))
	return name
}

func TestReadWorkbookKeepsLiteralValues(t *testing.T) {
	log := logger.MustNewLogger("xlsx test", "error", false)
	name := writeWorkbook(t, [][]interface{}{
		{"id", "product_sku", "amount", "card_number", "happened_at"},
		{"1", "AB1v23", "12.5", "4111111111111111", "2021-01-05 10:00:00"},
		{"2", "CD4v56", "", "", "2021-02-10 09:30:00"},
	})
	s, err := ReadWorkbook(log, name)
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", s.Name)
	assert.Equal(t, []string{"id", "product_sku", "amount", "card_number", "happened_at"}, s.Header)
	require.Len(t, s.Rows, 2)
	assert.Equal(t, []string{"1", "AB1v23", "12.5", "4111111111111111", "2021-01-05 10:00:00"}, s.Rows[0])
	assert.Equal(t, []string{"2", "CD4v56", "", "", "2021-02-10 09:30:00"}, s.Rows[1])
}

func TestReadWorkbookRendersDateCells(t *testing.T) {
	log := logger.MustNewLogger("xlsx test", "error", false)
	name := writeWorkbook(t, [][]interface{}{
		{"id", "created_at"},
		{"S1", time.Date(2021, 1, 5, 10, 0, 0, 0, time.UTC)},
	})
	s, err := ReadWorkbook(log, name)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"S1", "2021-01-05 10:00:00"}}, s.Rows)
}

func TestReadWorkbookErrors(t *testing.T) {
	log := logger.MustNewLogger("xlsx test", "error", false)
	_, err := ReadWorkbook(log, filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)

	empty := writeWorkbook(t, nil)
	_, err = ReadWorkbook(log, empty)
	assert.Error(t, err)

	ragged := writeWorkbook(t, [][]interface{}{
		{"id"},
		{"1", "extra"},
	})
	_, err = ReadWorkbook(log, ragged)
	assert.Error(t, err)
}

func TestFormatCellValue(t *testing.T) {
	v, err := FormatCellValue("44201.5", true)
	require.NoError(t, err)
	assert.Equal(t, "2021-01-05 12:00:00", v)

	v, err = FormatCellValue("44201.5", false)
	require.NoError(t, err)
	assert.Equal(t, "44201.5", v)

	v, err = FormatCellValue("not a date", true)
	require.NoError(t, err)
	assert.Equal(t, "not a date", v)
}

func TestIsDateFormatCode(t *testing.T) {
	assert.True(t, IsDateFormatCode("yyyy-mm-dd hh:mm:ss"))
	assert.True(t, IsDateFormatCode("[$-409]d-mmm-yy"))
	assert.False(t, IsDateFormatCode("#,##0.00"))
	assert.False(t, IsDateFormatCode(`0.0 "days"`))
	assert.False(t, IsDateFormatCode("[Red]0.00"))
}
