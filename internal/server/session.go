package server

import (
	"sync"

	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

// Session is the server's single current dataset with its selections.
type Session struct {
	mu       sync.RWMutex
	dataset  *vitals.Dataset
	criteria vitals.Criteria
	metric   vitals.Metric
}

// NewSession starts from a restored state; ds may be nil.
func NewSession(ds *vitals.Dataset, c vitals.Criteria, m vitals.Metric) *Session {
	if m == "" {
		m = vitals.MetricBoth
	}
	return &Session{dataset: ds, criteria: c, metric: m}
}

// Snapshot returns the current state. The dataset is shared and must not be
// mutated.
func (s *Session) Snapshot() (*vitals.Dataset, vitals.Criteria, vitals.Metric) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset, s.criteria, s.metric
}

// Replace swaps in a freshly loaded dataset and resets criteria to its
// bounds.
func (s *Session) Replace(ds *vitals.Dataset) vitals.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = ds
	s.criteria = ds.DefaultCriteria()
	return s.criteria
}

func (s *Session) SetCriteria(c vitals.Criteria) {
	s.mu.Lock()
	s.criteria = c
	s.mu.Unlock()
}

func (s *Session) SetMetric(m vitals.Metric) {
	s.mu.Lock()
	s.metric = m
	s.mu.Unlock()
}

// Clear drops the dataset and selections.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = nil
	s.criteria = vitals.Criteria{Brand: vitals.AllBrands}
	s.metric = vitals.MetricBoth
}
