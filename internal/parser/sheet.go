package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

// SheetRows is a decoded spreadsheet: the first sheet as rows of cell
// values. Row 0 is the header. Cells are strings, numbers, or time.Time
// for native date cells.
type SheetRows struct {
	Filename string
	Rows     [][]any
}

func (s SheetRows) Name() string { return s.Filename }

// Fixed sheet columns.
const (
	sheetDateCol    = 0
	sheetLCPCol     = 1
	sheetCLSCol     = 2
	sheetReleaseCol = 3
	sheetBrandCol   = 4
)

// sheetTimeLayout renders native date cells as their original token.
const sheetTimeLayout = "2006-01-02 15:04"

func (s SheetRows) extract(p *pipeline) (string, []vitals.Record, error) {
	if len(s.Rows) < 2 {
		return "", nil, fmt.Errorf("%w: sheet has no data rows", ErrEmptyResult)
	}
	data := s.Rows[1:]
	brand := vitals.Sanitize(cellText(cellAt(data[0], sheetBrandCol)))

	for i, row := range data {
		if blankRow(row) {
			continue
		}
		dateValue := cellAt(row, sheetDateCol)
		if str, ok := dateValue.(string); ok {
			dateValue = strings.TrimSpace(str)
		}
		raw := RawRow{
			Line:      i + 2,
			DateToken: cellText(dateValue),
			LCP:       cellText(cellAt(row, sheetLCPCol)),
			CLS:       cellText(cellAt(row, sheetCLSCol)),
			Release:   cellText(cellAt(row, sheetReleaseCol)),
			Brand:     brand,
		}
		p.row(raw, dateValue)
	}
	return brand, p.records, nil
}

func cellAt(row []any, idx int) any {
	if idx >= len(row) {
		return nil
	}
	return row[idx]
}

func blankRow(row []any) bool {
	for _, c := range row {
		if cellText(c) != "" {
			return false
		}
	}
	return true
}

// cellText renders a cell value as the text the validator reads.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case time.Time:
		return x.Format(sheetTimeLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
