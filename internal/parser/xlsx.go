package parser

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

type sheetDecoder struct{}

func (sheetDecoder) CanDecode(filename string) bool {
	ext := extOf(filename)
	return ext == ".xlsx" || ext == ".xls" || ext == ".xlsm"
}

func (sheetDecoder) AcceptsMIME(mime string) bool {
	mime = strings.ToLower(mime)
	return strings.Contains(mime, "spreadsheetml") || strings.Contains(mime, "ms-excel")
}

func (sheetDecoder) Decode(filename string, content []byte) (Source, error) {
	rows, err := ReadWorkbook(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return SheetRows{Filename: filename, Rows: rows}, nil
}

// ReadWorkbook returns the first sheet of an in-memory workbook. Numeric
// cells styled with a date format come back as time.Time; every other cell
// is its formatted text.
func ReadWorkbook(content []byte) ([][]any, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]

	formatted, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	out := make([][]any, len(formatted))
	for r, row := range formatted {
		cells := make([]any, len(row))
		for c, v := range row {
			cells[c] = v
			if r < len(raw) && c < len(raw[r]) {
				if t, ok := dateCell(f, sheet, r, c, raw[r][c], date1904); ok {
					cells[c] = t
				}
			}
		}
		out[r] = cells
	}
	return out, nil
}

func dateCell(f *excelize.File, sheet string, row, col int, raw string, date1904 bool) (time.Time, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial <= 0 {
		return time.Time{}, false
	}
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return time.Time{}, false
	}
	styleID, err := f.GetCellStyle(sheet, axis)
	if err != nil || styleID == 0 {
		return time.Time{}, false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || !isDateFormat(style) {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

var (
	quotedRe  = regexp.MustCompile(`"[^"]*"`)
	bracketRe = regexp.MustCompile(`\[[^\]]*\]`)
)

func isDateFormat(style *excelize.Style) bool {
	if style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		code := strings.ToLower(*style.CustomNumFmt)
		code = bracketRe.ReplaceAllString(quotedRe.ReplaceAllString(code, ""), "")
		return strings.ContainsAny(code, "dmy")
	}
	id := style.NumFmt
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}
