package analysis

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

// Report is the text rendering of one view for the CLI.
type Report struct {
	Source   string
	Total    int
	View     *View
	Brands   []string
	Releases []vitals.Record
}

// NewReport assembles a report for view over ds.
func NewReport(ds *vitals.Dataset, view *View) *Report {
	r := &Report{View: view}
	if ds != nil {
		r.Source = ds.Source
		r.Total = ds.Len()
		r.Brands = ds.Brands()
	}
	if view != nil {
		r.Releases = vitals.Releases(view.Records)
	}
	return r
}

// Markdown renders the report as bracketed sections.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Source != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Source))
	}
	b.WriteString(fmt.Sprintf("Records: %d\n", r.Total))
	if len(r.Brands) > 0 {
		b.WriteString(fmt.Sprintf("Brands: %s\n", strings.Join(r.Brands, ", ")))
	}
	b.WriteString("\n")

	v := r.View
	if v == nil {
		v = &View{}
	}
	b.WriteString("[FILTER]\n")
	b.WriteString(fmt.Sprintf("Range: %s to %s\n", dayOrOpen(v.Criteria.Start.IsZero(), v.Criteria.Start.Format(vitals.DisplayLayout)),
		dayOrOpen(v.Criteria.End.IsZero(), v.Criteria.End.Format(vitals.DisplayLayout))))
	brand := v.Criteria.Brand
	if v.Criteria.AnyBrand() {
		brand = "All brands"
	}
	b.WriteString(fmt.Sprintf("Brand: %s\n", brand))
	b.WriteString(fmt.Sprintf("Matching records: %d\n\n", len(v.Records)))

	s := v.Stats
	b.WriteString("[LCP]\n")
	b.WriteString(fmt.Sprintf("- P80: %dms\n- Min: %dms\n- Max: %dms\n\n", s.LCP.P80, s.LCP.Min, s.LCP.Max))
	b.WriteString("[CLS]\n")
	b.WriteString(fmt.Sprintf("- P80: %s\n- Min: %s\n- Max: %s\n\n", s.CLS.P80, s.CLS.Min, s.CLS.Max))
	b.WriteString("[LAST 7 DAYS]\n")
	b.WriteString(fmt.Sprintf("- LCP avg: %dms\n- CLS avg: %s\n- Samples: %d\n", s.LastWeek.LCPAvg, s.LastWeek.CLSAvg, s.LastWeek.SampleCount))

	if len(r.Releases) > 0 {
		b.WriteString("\n[RELEASES]\n")
		for _, rel := range r.Releases {
			b.WriteString(fmt.Sprintf("- %s: %s\n", rel.DisplayDate, rel.Release))
		}
	}
	return b.String()
}

func dayOrOpen(open bool, s string) string {
	if open {
		return "*"
	}
	return s
}
