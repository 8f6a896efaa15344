package vitals

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Dataset is the ordered collection produced by one load. It is replaced
// wholesale on every upload, never merged.
type Dataset struct {
	ID       string    `json:"id"`
	Source   string    `json:"source,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
	Records  []Record  `json:"records"`
}

// FromRecords copies records into a new Dataset sorted ascending by date.
func FromRecords(records []Record) *Dataset {
	cp := make([]Record, len(records))
	copy(cp, records)
	SortByDate(cp)
	return &Dataset{
		ID:       uuid.NewString(),
		LoadedAt: time.Now(),
		Records:  cp,
	}
}

// SortByDate sorts records ascending by date, keeping input order for ties.
func SortByDate(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
}

// Len returns the number of records; a nil Dataset is empty.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Bounds returns the first and last record dates.
func (d *Dataset) Bounds() (first, last time.Time, ok bool) {
	if d.Len() == 0 {
		return time.Time{}, time.Time{}, false
	}
	return d.Records[0].Date, d.Records[len(d.Records)-1].Date, true
}

// DefaultCriteria spans the whole dataset for every brand.
func (d *Dataset) DefaultCriteria() Criteria {
	first, last, _ := d.Bounds()
	return Criteria{Start: first, End: last, Brand: AllBrands}
}

// Brands returns the distinct non-empty brands, sorted.
func (d *Dataset) Brands() []string {
	if d == nil {
		return []string{}
	}
	return Brands(d.Records)
}

// Brands returns the distinct non-empty brands in records, sorted.
func Brands(records []Record) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range records {
		if r.Brand == "" {
			continue
		}
		if _, ok := seen[r.Brand]; ok {
			continue
		}
		seen[r.Brand] = struct{}{}
		out = append(out, r.Brand)
	}
	sort.Strings(out)
	return out
}

// Releases returns the records that carry a release label, in input order.
func Releases(records []Record) []Record {
	out := []Record{}
	for _, r := range records {
		if r.HasRelease() {
			out = append(out, r)
		}
	}
	return out
}
