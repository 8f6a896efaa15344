package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vitals-cli/internal/analysis"
	"github.com/KaramelBytes/vitals-cli/internal/dates"
	"github.com/KaramelBytes/vitals-cli/internal/parser"
	"github.com/KaramelBytes/vitals-cli/internal/store"
	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

var errNoData = errors.New("no data loaded; run 'vitals load <file>' first")

// openStore opens the file-backed store under data_dir.
func openStore() (*store.Store, error) {
	if err := requireConfig(); err != nil {
		return nil, err
	}
	b, err := store.NewFileBackend(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return store.New(b, cfg.StorageQuotaBytes, logger), nil
}

// loadState restores the persisted session, printing recoverable problems
// as warnings.
func loadState() (*store.Store, store.State, error) {
	st, err := openStore()
	if err != nil {
		return nil, store.State{}, err
	}
	state, warnings := st.LoadState()
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", w)
	}
	return st, state, nil
}

// parseOptions builds parser options from the effective config.
func parseOptions() (parser.Options, error) {
	if err := requireConfig(); err != nil {
		return parser.Options{}, err
	}
	layout, err := parser.LayoutByName(cfg.CSVLayout)
	if err != nil {
		return parser.Options{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return parser.Options{}, err
	}
	n := dates.New()
	n.Location = loc
	n.HourLabelYears = dates.YearRule{
		LateYear:  cfg.HourLabelLateYear,
		EarlyYear: cfg.HourLabelEarlyYear,
		LateFrom:  time.Month(cfg.HourLabelLateFromMonth),
	}
	return parser.Options{Layout: layout, Normalizer: n, Logger: logger}, nil
}

func newEngine() *analysis.Engine {
	return analysis.NewEngine(cfg.RecentWindow)
}

// criteriaFlags are the --start/--end/--brand overrides shared by the
// read commands.
type criteriaFlags struct {
	start, end, brand string
}

func (f *criteriaFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "start date YYYY-MM-DD (saved for later commands)")
	cmd.Flags().StringVar(&f.end, "end", "", "end date YYYY-MM-DD (saved for later commands)")
	cmd.Flags().StringVar(&f.brand, "brand", "", "brand name, or 'all' (saved for later commands)")
}

func (f *criteriaFlags) reset() {
	f.start, f.end, f.brand = "", "", ""
}

// apply overlays the changed flags on c. When any flag changed the result
// is persisted.
func (f *criteriaFlags) apply(cmd *cobra.Command, st *store.Store, c vitals.Criteria) (vitals.Criteria, error) {
	fl := cmd.Flags()
	changed := false
	if fl.Changed("start") {
		t, err := parseDay(f.start)
		if err != nil {
			return c, fmt.Errorf("--start: %w", err)
		}
		c.Start, changed = t, true
	}
	if fl.Changed("end") {
		t, err := parseDay(f.end)
		if err != nil {
			return c, fmt.Errorf("--end: %w", err)
		}
		c.End, changed = t, true
	}
	if fl.Changed("brand") {
		c.Brand, changed = strings.TrimSpace(f.brand), true
		if c.Brand == "" {
			c.Brand = vitals.AllBrands
		}
	}
	if !c.Start.IsZero() && !c.End.IsZero() && c.End.Before(c.Start) {
		return c, fmt.Errorf("end date %s is before start date %s", c.End.Format(vitals.ISODate), c.Start.Format(vitals.ISODate))
	}
	if changed {
		if err := st.SaveCriteria(c); err != nil {
			return c, err
		}
	}
	return c, nil
}

// parseDay accepts YYYY-MM-DD; an empty value clears the bound.
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(vitals.ISODate, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return t, nil
}

// currentView loads the session and filters it under the effective criteria.
func currentView(cmd *cobra.Command, f *criteriaFlags) (*vitals.Dataset, *analysis.View, error) {
	st, state, err := loadState()
	if err != nil {
		return nil, nil, err
	}
	if state.Dataset.Len() == 0 {
		return nil, nil, errNoData
	}
	c, err := f.apply(cmd, st, state.Criteria)
	if err != nil {
		return nil, nil, err
	}
	records := vitals.Apply(state.Dataset, c)
	return state.Dataset, &analysis.View{Criteria: c, Records: records, Stats: newEngine().Compute(records)}, nil
}
