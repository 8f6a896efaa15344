package vitals

import (
	"fmt"
	"strings"
	"time"
)

// AllBrands disables brand filtering.
const AllBrands = "all"

// ISODate is the layout used for criteria dates at the storage and API
// boundaries.
const ISODate = "2006-01-02"

// Criteria restricts a Dataset to a date range and optionally one brand.
// A zero Start or End leaves that side unbounded.
type Criteria struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
	Brand string    `json:"brand"`
}

// AnyBrand reports whether the criteria select every brand.
func (c Criteria) AnyBrand() bool {
	return c.Brand == "" || c.Brand == AllBrands
}

// Key identifies the criteria by calendar day, which is the granularity
// Apply compares at.
func (c Criteria) Key() string {
	brand := c.Brand
	if c.AnyBrand() {
		brand = AllBrands
	}
	return fmt.Sprintf("%s|%s|%s", isoOrEmpty(c.Start), isoOrEmpty(c.End), brand)
}

// Match reports whether r falls inside the criteria.
func (c Criteria) Match(r Record) bool {
	day := civil(r.Date)
	if !c.Start.IsZero() && day < civil(c.Start) {
		return false
	}
	if !c.End.IsZero() && day > civil(c.End) {
		return false
	}
	if !c.AnyBrand() && r.Brand != c.Brand {
		return false
	}
	return true
}

// Apply returns the records of d matching c, in dataset order. The result is
// never nil and d is left untouched.
func Apply(d *Dataset, c Criteria) []Record {
	out := []Record{}
	if d == nil {
		return out
	}
	for _, r := range d.Records {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// ParseCriteria builds criteria from ISO dates; empty strings are unbounded.
func ParseCriteria(start, end, brand string) (Criteria, error) {
	var c Criteria
	var err error
	if c.Start, err = parseISO(start); err != nil {
		return Criteria{}, fmt.Errorf("start date: %w", err)
	}
	if c.End, err = parseISO(end); err != nil {
		return Criteria{}, fmt.Errorf("end date: %w", err)
	}
	if !c.Start.IsZero() && !c.End.IsZero() && c.End.Before(c.Start) {
		return Criteria{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	c.Brand = strings.TrimSpace(brand)
	if c.Brand == "" {
		c.Brand = AllBrands
	}
	return c, nil
}

// civil collapses t to an ordered yyyymmdd integer in its own location.
func civil(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

func parseISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(ISODate, s)
}

func isoOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(ISODate)
}
