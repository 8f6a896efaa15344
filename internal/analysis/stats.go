// Package analysis computes summary statistics over web-vitals records.
package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

// DefaultRecentWindow is the number of most recent records averaged for
// the "last week" figures.
const DefaultRecentWindow = 7

// Fixed4 is a CLS value presented with exactly four decimals, in text and
// in JSON.
type Fixed4 float64

func (f Fixed4) String() string {
	return strconv.FormatFloat(float64(f), 'f', 4, 64)
}

func (f Fixed4) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(f.String())), nil
}

func (f *Fixed4) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse fixed4: %w", err)
		}
		*f = Fixed4(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("parse fixed4: %w", err)
	}
	*f = Fixed4(v)
	return nil
}

// LCPStats are in milliseconds.
type LCPStats struct {
	P80 int `json:"p80"`
	Min int `json:"min"`
	Max int `json:"max"`
}

type CLSStats struct {
	P80 Fixed4 `json:"p80"`
	Min Fixed4 `json:"min"`
	Max Fixed4 `json:"max"`
}

// RecentStats averages the most recent records by date.
type RecentStats struct {
	LCPAvg      int    `json:"lcpAvg"`
	CLSAvg      Fixed4 `json:"clsAvg"`
	SampleCount int    `json:"sampleCount"`
}

// Stats is the summary for one filtered view.
type Stats struct {
	LCP      LCPStats    `json:"lcp"`
	CLS      CLSStats    `json:"cls"`
	LastWeek RecentStats `json:"lastWeek"`
}

// Percentile returns the nearest-rank percentile of values: the element at
// ceil(p/100*n)-1 in sorted order. p is clamped to [0,100]; empty input
// yields 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	p = math.Max(0, math.Min(100, p))
	v, err := stats.PercentileNearestRank(values, p)
	if err != nil {
		return 0
	}
	return v
}

// Engine computes Stats. The zero value uses DefaultRecentWindow.
type Engine struct {
	RecentWindow int
}

// NewEngine returns an Engine averaging the window most recent records.
func NewEngine(window int) *Engine {
	return &Engine{RecentWindow: window}
}

func (e *Engine) window() int {
	if e == nil || e.RecentWindow <= 0 {
		return DefaultRecentWindow
	}
	return e.RecentWindow
}

// Compute summarizes records. The input is not modified. An empty input
// yields zero values throughout.
func (e *Engine) Compute(records []vitals.Record) Stats {
	if len(records) == 0 {
		return Stats{}
	}
	lcp := make([]float64, len(records))
	cls := make([]float64, len(records))
	for i, r := range records {
		lcp[i] = float64(r.LCP)
		cls[i] = r.CLS
	}

	var s Stats
	s.LCP = LCPStats{
		P80: int(Percentile(lcp, 80)),
		Min: int(minOf(lcp)),
		Max: int(maxOf(lcp)),
	}
	s.CLS = CLSStats{
		P80: Fixed4(Percentile(cls, 80)),
		Min: Fixed4(minOf(cls)),
		Max: Fixed4(maxOf(cls)),
	}
	s.LastWeek = e.recent(records)
	return s
}

func (e *Engine) recent(records []vitals.Record) RecentStats {
	desc := make([]vitals.Record, len(records))
	copy(desc, records)
	sort.SliceStable(desc, func(i, j int) bool { return desc[i].Date.After(desc[j].Date) })
	if n := e.window(); len(desc) > n {
		desc = desc[:n]
	}

	lcp := make([]float64, len(desc))
	cls := make([]float64, len(desc))
	for i, r := range desc {
		lcp[i] = float64(r.LCP)
		cls[i] = r.CLS
	}
	lcpMean, _ := stats.Mean(lcp)
	clsMean, _ := stats.Mean(cls)
	return RecentStats{
		LCPAvg:      int(math.Round(lcpMean)),
		CLSAvg:      Fixed4(clsMean),
		SampleCount: len(desc),
	}
}

func minOf(v []float64) float64 {
	m, err := stats.Min(v)
	if err != nil {
		return 0
	}
	return m
}

func maxOf(v []float64) float64 {
	m, err := stats.Max(v)
	if err != nil {
		return 0
	}
	return m
}
