// Package export writes filtered records out as CSV files and PNG charts.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

// Row is one line of the filtered CSV export.
type Row struct {
	Date      string `csv:"Date"`
	LCP       int    `csv:"LCP"`
	CLS       string `csv:"CLS"`
	Release   string `csv:"Release"`
	BrandName string `csv:"BrandName"`
}

// Rows maps records to export rows. Dates use the DD/MM/YYYY display form.
func Rows(records []vitals.Record) []*Row {
	out := make([]*Row, 0, len(records))
	for _, r := range records {
		out = append(out, &Row{
			Date:      r.DisplayDate,
			LCP:       r.LCP,
			CLS:       strconv.FormatFloat(r.CLS, 'f', -1, 64),
			Release:   r.Release,
			BrandName: r.Brand,
		})
	}
	return out
}

// WriteCSV writes the header Date,LCP,CLS,Release,BrandName followed by one
// line per record.
func WriteCSV(w io.Writer, records []vitals.Record) error {
	rows := Rows(records)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// CSVFileName is web-vitals-filtered-<start>-to-<end>.csv.
func CSVFileName(c vitals.Criteria) string {
	return fmt.Sprintf("web-vitals-filtered-%s-to-%s.csv", isoOrAll(c.Start), isoOrAll(c.End))
}

// ChartFileName is <METRIC>-chart-<start>-to-<end>.png.
func ChartFileName(m vitals.Metric, c vitals.Criteria) string {
	return fmt.Sprintf("%s-chart-%s-to-%s.png", strings.ToUpper(string(m)), isoOrAll(c.Start), isoOrAll(c.End))
}

func isoOrAll(t time.Time) string {
	if t.IsZero() {
		return "all"
	}
	return t.Format(vitals.ISODate)
}
