package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

// RawRow is a candidate row as extracted by a source, before validation.
type RawRow struct {
	Line      int
	DateToken string
	LCP       string
	CLS       string
	Release   string
	Brand     string
}

var (
	leadingIntRe   = regexp.MustCompile(`^\s*([+-]?\d+)`)
	leadingFloatRe = regexp.MustCompile(`^\s*([+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)
)

// Validate turns a raw row with its resolved date into a Record. It rejects
// rows whose date did not resolve or whose metrics are not non-negative
// finite numbers. Metrics are read from their leading numeric prefix, so
// "1234.7" yields LCP 1234 and "0.05 " yields CLS 0.05.
func Validate(raw RawRow, date time.Time, dateErr error) (vitals.Record, error) {
	if dateErr != nil || date.IsZero() {
		return vitals.Record{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw.DateToken)
	}
	lcp, ok := leadingInt(raw.LCP)
	if !ok || lcp < 0 {
		return vitals.Record{}, fmt.Errorf("%w: %q", ErrInvalidLCP, raw.LCP)
	}
	cls, ok := leadingFloat(raw.CLS)
	if !ok || cls < 0 {
		return vitals.Record{}, fmt.Errorf("%w: %q", ErrInvalidCLS, raw.CLS)
	}
	return vitals.NewRecord(date, raw.DateToken, lcp, cls, raw.Release, raw.Brand), nil
}

func leadingInt(s string) (int, bool) {
	m := leadingIntRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

func leadingFloat(s string) (float64, bool) {
	m := leadingFloatRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
