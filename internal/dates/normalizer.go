// Package dates turns the date tokens found in web-vitals exports into
// calendar instants.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnrecognized is returned when no known encoding matches a token.
var ErrUnrecognized = errors.New("unrecognized date")

var (
	// 19-Nov-25
	shortFormRe = regexp.MustCompile(`^(\d{1,2})-([A-Za-z]{3})-(\d{2})$`)
	// 19 Nov 12 am
	hourLabelRe = regexp.MustCompile(`(?i)^(\d{1,2})\s+([a-z]{3})\s+(\d{1,2})\s+(am|pm)$`)
	// 12/08/2025 0:00
	numericTimeRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}):(\d{1,2})$`)
	// 12/08/2025
	numericRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// YearRule resolves the year for hour-label tokens, which carry none.
// Months from LateFrom through December belong to LateYear, the rest to
// EarlyYear. The exports this was written for span a Nov–Dec 2025 to 2026
// window; other datasets should configure their own window.
type YearRule struct {
	LateYear  int
	EarlyYear int
	LateFrom  time.Month
}

// DefaultYearRule maps November/December to 2025 and every other month to 2026.
func DefaultYearRule() YearRule {
	return YearRule{LateYear: 2025, EarlyYear: 2026, LateFrom: time.November}
}

// YearFor returns the year assigned to month m.
func (r YearRule) YearFor(m time.Month) int {
	if m >= r.LateFrom {
		return r.LateYear
	}
	return r.EarlyYear
}

// Normalizer parses date tokens. The zero value is not usable; call New.
type Normalizer struct {
	// Location is used to build wall-clock instants.
	Location *time.Location
	// HourLabelYears resolves the year of "D MMM H am|pm" tokens.
	HourLabelYears YearRule
}

// New returns a Normalizer using local time and the default year rule.
func New() *Normalizer {
	return &Normalizer{Location: time.Local, HourLabelYears: DefaultYearRule()}
}

var defaultNormalizer = New()

// Parse parses token with the default Normalizer.
func Parse(token string) (time.Time, error) { return defaultNormalizer.Parse(token) }

// Parse tries, in order: D-MMM-YY, D MMM H am|pm, D/M/YYYY H:mm, D/M/YYYY.
// The first encoding that matches and survives calendar validation wins.
func (n *Normalizer) Parse(token string) (time.Time, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty token", ErrUnrecognized)
	}

	if m := shortFormRe.FindStringSubmatch(s); m != nil {
		if t, ok := n.shortForm(m); ok {
			return t, nil
		}
	}
	if m := hourLabelRe.FindStringSubmatch(s); m != nil {
		if t, ok := n.hourLabel(m); ok {
			return t, nil
		}
	}
	if m := numericTimeRe.FindStringSubmatch(s); m != nil {
		day, month, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if t, ok := n.build(year, month, day, atoi(m[4]), atoi(m[5])); ok {
			return t, nil
		}
	}
	if m := numericRe.FindStringSubmatch(s); m != nil {
		day, month, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if t, ok := n.build(year, month, day, 0, 0); ok {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognized, token)
}

// ParseValue accepts native date values (e.g. spreadsheet date cells) as
// they are and routes text through Parse.
func (n *Normalizer) ParseValue(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, fmt.Errorf("%w: zero time", ErrUnrecognized)
		}
		return x, nil
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, fmt.Errorf("%w: zero time", ErrUnrecognized)
		}
		return *x, nil
	case string:
		return n.Parse(x)
	case fmt.Stringer:
		return n.Parse(x.String())
	case nil:
		return time.Time{}, fmt.Errorf("%w: empty cell", ErrUnrecognized)
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported value %T", ErrUnrecognized, v)
	}
}

func (n *Normalizer) shortForm(m []string) (time.Time, bool) {
	month, ok := months[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	yy := atoi(m[3])
	year := 1900 + yy
	if yy < 50 {
		year = 2000 + yy
	}
	return n.build(year, int(month), atoi(m[1]), 0, 0)
}

func (n *Normalizer) hourLabel(m []string) (time.Time, bool) {
	month, ok := months[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	hour12 := atoi(m[3])
	if hour12 < 1 || hour12 > 12 {
		return time.Time{}, false
	}
	hour := hour12
	switch strings.ToLower(m[4]) {
	case "am":
		if hour12 == 12 {
			hour = 0
		}
	case "pm":
		if hour12 != 12 {
			hour = hour12 + 12
		}
	}
	return n.build(n.HourLabelYears.YearFor(month), int(month), atoi(m[1]), hour, 0)
}

// build constructs the instant and rejects anything time.Date had to
// normalize (31/02 rolling into March, 25:00 rolling into the next day).
func (n *Normalizer) build(year, month, day, hour, minute int) (time.Time, bool) {
	if month < 1 || month > 12 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}
	loc := n.Location
	if loc == nil {
		loc = time.Local
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
