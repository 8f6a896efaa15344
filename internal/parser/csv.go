package parser

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

// Layout names the column positions used for CSV data rows. A negative
// index means the column is absent.
type Layout struct {
	Name    string
	Date    int
	LCP     int
	CLS     int
	Release int
}

var (
	// LayoutAdjacent is date, lcp, cls, release in the first four columns.
	LayoutAdjacent = Layout{Name: "adjacent", Date: 0, LCP: 1, CLS: 2, Release: 3}
	// LayoutWide is the raw dashboard export with lcp at column 10 and cls
	// at column 12. It has no release column.
	LayoutWide = Layout{Name: "wide", Date: 0, LCP: 10, CLS: 12, Release: -1}
)

// LayoutByName resolves a configured layout name.
func LayoutByName(name string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LayoutAdjacent.Name:
		return LayoutAdjacent, nil
	case LayoutWide.Name:
		return LayoutWide, nil
	default:
		return Layout{}, fmt.Errorf("unknown csv layout: %s (use adjacent or wide)", name)
	}
}

// CSVText is a decoded CSV upload.
type CSVText struct {
	Filename string
	Text     string
}

func (s CSVText) Name() string { return s.Filename }

const brandPrefix = "# Brand:"

func (s CSVText) extract(p *pipeline) (string, []vitals.Record, error) {
	lines := strings.Split(strings.ReplaceAll(strings.TrimRight(s.Text, "\r\n"), "\r\n", "\n"), "\n")

	brand := brandFromComments(lines)
	header := headerIndex(lines)
	if header < 0 {
		return "", nil, ErrHeaderNotFound
	}

	for i := header + 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields, err := splitFields(line)
		if err != nil {
			p.reject(i+1, line, fmt.Errorf("%w: %v", ErrMalformedLine, err))
			continue
		}
		raw := RawRow{
			Line:      i + 1,
			DateToken: field(fields, p.layout.Date),
			LCP:       field(fields, p.layout.LCP),
			CLS:       field(fields, p.layout.CLS),
			Release:   field(fields, p.layout.Release),
			Brand:     brand,
		}
		p.row(raw, raw.DateToken)
	}
	return brand, p.records, nil
}

// brandFromComments returns the text after "# Brand:" up to the first comma
// on the first such line, or "" when there is none.
func brandFromComments(lines []string) string {
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if !strings.HasPrefix(l, brandPrefix) {
			continue
		}
		name, _, _ := strings.Cut(l[len(brandPrefix):], ",")
		return vitals.Sanitize(name)
	}
	return ""
}

// headerIndex finds the first non-comment line naming a date or LCP column.
func headerIndex(lines []string) int {
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "#") {
			continue
		}
		lower := strings.ToLower(t)
		if strings.Contains(lower, "date") || strings.Contains(lower, "largestcontentfulpaint") {
			return i
		}
	}
	return -1
}

func splitFields(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r.Read()
}

func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[idx])
}
