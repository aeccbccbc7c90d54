package file

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/logger"
	"github.com/xuri/excelize/v2"
)

// Sheet is the first worksheet of a workbook held fully in memory.
type Sheet struct {
	WorkbookPath string
	Name         string
	Header       []string
	Rows         [][]string // each row has exactly len(Header) cells.
}

// builtInDateFormats are the number format ids that Excel renders as dates or times.
var builtInDateFormats = map[int]struct{}{
	14: {}, 15: {}, 16: {}, 17: {}, 18: {}, 19: {}, 20: {}, 21: {}, 22: {},
	27: {}, 28: {}, 29: {}, 30: {}, 31: {}, 32: {}, 33: {}, 34: {}, 35: {}, 36: {},
	45: {}, 46: {}, 47: {}, 50: {}, 51: {}, 52: {}, 53: {}, 54: {}, 55: {}, 56: {}, 57: {}, 58: {},
}

// ReadWorkbook loads the first sheet of the xlsx file at workbookPath.
// Cell values are kept as literals except date-formatted cells, which are rendered with TimeFormatCellTimestamp.
// Any problem aborts the whole read so the caller never sees a partial sheet.
func ReadWorkbook(log logger.Logger, workbookPath string) (*Sheet, error) {
	f, err := excelize.OpenFile(workbookPath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open workbook %q", workbookPath)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn("unable to close workbook ", workbookPath, ": ", err)
		}
	}()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Errorf("workbook %q has no sheets", workbookPath)
	}
	s := &Sheet{WorkbookPath: workbookPath, Name: sheets[0]}
	rows, err := f.GetRows(s.Name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read sheet %q in workbook %q", s.Name, workbookPath)
	}
	if len(rows) == 0 {
		return nil, errors.Errorf("sheet %q in workbook %q is empty: a header row is required", s.Name, workbookPath)
	}
	s.Header = make([]string, len(rows[0]))
	for idx, v := range rows[0] {
		if v = strings.TrimSpace(v); v == "" {
			v = fmt.Sprintf("column_%d", idx+1)
		}
		s.Header[idx] = v
	}
	dates := newDateStyleCache(f)
	s.Rows = make([][]string, 0, len(rows)-1)
	for rowIdx := 1; rowIdx < len(rows); rowIdx++ { // for each data row...
		cells := rows[rowIdx]
		if len(cells) > len(s.Header) {
			return nil, errors.Errorf("row %d of sheet %q has %d cells but the header has %d", rowIdx+1, s.Name, len(cells), len(s.Header))
		}
		out := make([]string, len(s.Header))
		for colIdx, raw := range cells {
			if raw == "" {
				continue
			}
			cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return nil, err
			}
			isDate, err := dates.isDateCell(s.Name, cellName)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to read style of cell %v", cellName)
			}
			if out[colIdx], err = FormatCellValue(raw, isDate); err != nil {
				return nil, errors.Wrapf(err, "cell %v", cellName)
			}
		}
		s.Rows = append(s.Rows, out)
	}
	log.Debug("read ", len(s.Rows), " rows from sheet '", s.Name, "' of workbook '", workbookPath, "'")
	return s, nil
}

// FormatCellValue returns the literal raw value, or for date cells the serial date as a timestamp string.
func FormatCellValue(raw string, isDate bool) (string, error) {
	if !isDate {
		return raw, nil
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil { // if the cell holds text in a date format...
		return raw, nil
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return "", errors.Wrapf(err, "bad date serial %q", raw)
	}
	return t.Round(time.Second).Format(constants.TimeFormatCellTimestamp), nil
}

// IsDateFormatCode reports whether a custom number format renders a date or time.
// Quoted literals and bracketed sections like colours are ignored.
func IsDateFormatCode(code string) bool {
	inQuote := false
	inBracket := false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case r == 'y', r == 'd', r == 'h', r == 's':
			return true
		}
	}
	return false
}

type dateStyleCache struct {
	f      *excelize.File
	styles map[int]bool
}

func newDateStyleCache(f *excelize.File) *dateStyleCache {
	return &dateStyleCache{f: f, styles: make(map[int]bool)}
}

func (d *dateStyleCache) isDateCell(sheet string, cell string) (bool, error) {
	styleID, err := d.f.GetCellStyle(sheet, cell)
	if err != nil {
		return false, err
	}
	if isDate, ok := d.styles[styleID]; ok {
		return isDate, nil
	}
	style, err := d.f.GetStyle(styleID)
	if err != nil {
		return false, err
	}
	_, isDate := builtInDateFormats[style.NumFmt]
	if !isDate && style.CustomNumFmt != nil {
		isDate = IsDateFormatCode(*style.CustomNumFmt)
	}
	d.styles[styleID] = isDate
	return isDate, nil
}
