package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

// Fixed storage keys.
const (
	KeyData      = "webVitalsData"
	KeyStartDate = "webVitalsStartDate"
	KeyEndDate   = "webVitalsEndDate"
	KeyMetric    = "webVitalsSelectedMetric"
	KeyBrand     = "webVitalsSelectedBrand"
)

// Keys lists every key the Store owns.
var Keys = []string{KeyData, KeyStartDate, KeyEndDate, KeyMetric, KeyBrand}

// DefaultQuota is the largest serialized value the Store will write.
const DefaultQuota = 5 * 1024 * 1024

var (
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrCorrupt       = errors.New("corrupt stored value")
)

// State is the persisted session.
type State struct {
	Dataset  *vitals.Dataset
	Criteria vitals.Criteria
	Metric   vitals.Metric
}

// Store reads and writes the session through a Backend.
type Store struct {
	backend Backend
	quota   int
	logger  *slog.Logger
}

// New returns a Store. quota <= 0 uses DefaultQuota; a nil logger uses
// slog.Default().
func New(b Backend, quota int, logger *slog.Logger) *Store {
	if quota <= 0 {
		quota = DefaultQuota
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: b, quota: quota, logger: logger}
}

// set JSON-encodes v under key. A value over the quota removes the key
// and fails with ErrQuotaExceeded.
func (s *Store) set(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if len(b) > s.quota {
		_ = s.backend.Remove(key)
		s.logger.Warn("storage quota exceeded",
			slog.String("key", key),
			slog.Int("bytes", len(b)),
			slog.Int("quota", s.quota))
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrQuotaExceeded, key, len(b), s.quota)
	}
	if err := s.backend.Set(key, b); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// get decodes key into v. It reports false when the key is absent. A value
// that does not decode is removed and reported as ErrCorrupt.
func (s *Store) get(key string, v any) (bool, error) {
	b, err := s.backend.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		_ = s.backend.Remove(key)
		s.logger.Warn("removed corrupt stored value", slog.String("key", key), slog.String("error", err.Error()))
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// SaveDataset persists ds. A nil dataset removes the key.
func (s *Store) SaveDataset(ds *vitals.Dataset) error {
	if ds == nil {
		return s.backend.Remove(KeyData)
	}
	return s.set(KeyData, ds)
}

// LoadDataset returns the persisted dataset or nil when there is none.
func (s *Store) LoadDataset() (*vitals.Dataset, error) {
	var ds vitals.Dataset
	ok, err := s.get(KeyData, &ds)
	if !ok {
		return nil, err
	}
	if ds.ID == "" {
		ds.ID = uuid.NewString()
	}
	if ds.Records == nil {
		ds.Records = []vitals.Record{}
	}
	vitals.SortByDate(ds.Records)
	return &ds, nil
}

// SaveCriteria persists the date range and brand. Zero dates remove
// their key.
func (s *Store) SaveCriteria(c vitals.Criteria) error {
	if err := s.saveDate(KeyStartDate, c.Start); err != nil {
		return err
	}
	if err := s.saveDate(KeyEndDate, c.End); err != nil {
		return err
	}
	brand := c.Brand
	if c.AnyBrand() {
		brand = vitals.AllBrands
	}
	return s.set(KeyBrand, brand)
}

func (s *Store) saveDate(key string, t time.Time) error {
	if t.IsZero() {
		return s.backend.Remove(key)
	}
	return s.set(key, t.Format(vitals.ISODate))
}

// SaveMetric persists the selected metric view.
func (s *Store) SaveMetric(m vitals.Metric) error {
	return s.set(KeyMetric, string(m))
}

// LoadState reads the whole session. Problems with individual keys are
// returned as warnings and the affected part falls back to its default:
// dataset bounds for dates, "all" for brand, both for metric.
func (s *Store) LoadState() (State, []error) {
	var st State
	var warnings []error

	ds, err := s.LoadDataset()
	if err != nil {
		warnings = append(warnings, err)
	}
	st.Dataset = ds
	st.Criteria = ds.DefaultCriteria()
	st.Metric = vitals.MetricBoth

	if t, ok, err := s.loadDate(KeyStartDate); err != nil {
		warnings = append(warnings, err)
	} else if ok {
		st.Criteria.Start = t
	}
	if t, ok, err := s.loadDate(KeyEndDate); err != nil {
		warnings = append(warnings, err)
	} else if ok {
		st.Criteria.End = t
	}

	var brand string
	if ok, err := s.get(KeyBrand, &brand); err != nil {
		warnings = append(warnings, err)
	} else if ok && brand != "" {
		st.Criteria.Brand = brand
	}

	var metric string
	if ok, err := s.get(KeyMetric, &metric); err != nil {
		warnings = append(warnings, err)
	} else if ok {
		m, err := vitals.ParseMetric(metric)
		if err != nil {
			_ = s.backend.Remove(KeyMetric)
			warnings = append(warnings, fmt.Errorf("%w: %s: %v", ErrCorrupt, KeyMetric, err))
		} else {
			st.Metric = m
		}
	}
	return st, warnings
}

func (s *Store) loadDate(key string) (time.Time, bool, error) {
	var raw string
	ok, err := s.get(key, &raw)
	if !ok || err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(vitals.ISODate, raw)
	if err != nil {
		_ = s.backend.Remove(key)
		return time.Time{}, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return t, true, nil
}

// Reset removes every key the Store owns.
func (s *Store) Reset() error {
	for _, k := range Keys {
		if err := s.backend.Remove(k); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return nil
}
