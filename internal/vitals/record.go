// Package vitals holds the canonical web-vitals records and the views
// derived from them.
package vitals

import (
	"strings"
	"time"
)

// DisplayLayout is the fixed DD/MM/YYYY rendering used for Record.DisplayDate.
const DisplayLayout = "02/01/2006"

// Record is one validated measurement.
type Record struct {
	Date         time.Time `json:"date"`
	DisplayDate  string    `json:"display_date"`
	OriginalDate string    `json:"original_date"`
	LCP          int       `json:"lcp"`
	CLS          float64   `json:"cls"`
	Release      string    `json:"release,omitempty"`
	Brand        string    `json:"brand,omitempty"`
}

// NewRecord builds a Record, deriving DisplayDate and sanitizing the free-text
// labels. Metric validation is the caller's job.
func NewRecord(date time.Time, token string, lcp int, cls float64, release, brand string) Record {
	return Record{
		Date:         date,
		DisplayDate:  date.Format(DisplayLayout),
		OriginalDate: token,
		LCP:          lcp,
		CLS:          cls,
		Release:      Sanitize(release),
		Brand:        Sanitize(brand),
	}
}

// HasRelease reports whether the record carries a release label.
func (r Record) HasRelease() bool { return r.Release != "" }

// Sanitize trims s and neutralizes spreadsheet formulas: a value starting
// with '=', '+', '-' or '@' gets a leading quote.
func Sanitize(s string) string {
	v := strings.TrimSpace(s)
	if v == "" {
		return ""
	}
	switch v[0] {
	case '=', '+', '-', '@':
		return "'" + v
	}
	return v
}
