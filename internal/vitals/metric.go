package vitals

import (
	"fmt"
	"strings"
)

// Metric is the selected chart view.
type Metric string

const (
	MetricBoth Metric = "both"
	MetricLCP  Metric = "lcp"
	MetricCLS  Metric = "cls"
)

// ParseMetric accepts both|lcp|cls, case-insensitively.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case MetricBoth, MetricLCP, MetricCLS:
		return m, nil
	case "":
		return MetricBoth, nil
	default:
		return "", fmt.Errorf("invalid metric: %s (use both, lcp or cls)", s)
	}
}
