package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const acmeExport = "# Brand: Acme,,,\n" +
	"date,largestContentfulPaint,cumulativeLayoutShift,Release\n" +
	"1/3/2025,2000,0.05,\n" +
	"2/3/2025,3000,0.1,v1.0\n" +
	"3/3/2025,1000,0.2,\n" +
	"someday,1,1,\n"

// resetFlags clears values and Changed state left by earlier invocations.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns stdout.
func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("VITALS_TIMEZONE", "UTC")
	return home
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestCLI_LoadStatsFilterExport(t *testing.T) {
	home := setupHome(t)
	src := writeFile(t, home, "acme.csv", acmeExport)

	out := runCmd(t, "load", src)
	if !strings.Contains(out, "Successfully loaded 3 data points!") {
		t.Fatalf("unexpected load output: %s", out)
	}
	if !strings.Contains(out, "Date range: 01/03/2025 to 03/03/2025") {
		t.Fatalf("missing date range: %s", out)
	}
	if !strings.Contains(out, `line 6 ("someday")`) {
		t.Fatalf("missing rejected row: %s", out)
	}

	out = runCmd(t, "stats", "--json")
	var got struct {
		Count int `json:"count"`
		Stats struct {
			LCP struct {
				P80 int `json:"p80"`
				Min int `json:"min"`
			} `json:"lcp"`
			CLS struct {
				Max string `json:"max"`
			} `json:"cls"`
		} `json:"stats"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode stats: %v\n%s", err, out)
	}
	if got.Count != 3 || got.Stats.LCP.P80 != 3000 || got.Stats.LCP.Min != 1000 || got.Stats.CLS.Max != "0.2000" {
		t.Fatalf("unexpected stats: %+v", got)
	}

	// Criteria flags persist for later commands.
	out = runCmd(t, "stats", "--start", "2025-03-02")
	if !strings.Contains(out, "Range: 02/03/2025 to 03/03/2025") || !strings.Contains(out, "Matching records: 2") {
		t.Fatalf("unexpected report: %s", out)
	}
	out = runCmd(t, "records")
	if strings.Contains(out, "01/03/2025") || !strings.Contains(out, "02/03/2025") {
		t.Fatalf("records ignored saved criteria: %s", out)
	}
	out = runCmd(t, "releases")
	if strings.TrimSpace(out) != "- 02/03/2025: v1.0" {
		t.Fatalf("unexpected releases: %q", out)
	}
	out = runCmd(t, "brands")
	if !strings.Contains(out, "Acme") {
		t.Fatalf("unexpected brands: %s", out)
	}

	outDir := filepath.Join(home, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	runCmd(t, "export", "csv", "-o", outDir)
	body, err := os.ReadFile(filepath.Join(outDir, "web-vitals-filtered-2025-03-02-to-2025-03-03.csv"))
	if err != nil {
		t.Fatalf("csv export missing: %v", err)
	}
	if !strings.HasPrefix(string(body), "Date,LCP,CLS,Release,BrandName\n02/03/2025,3000,0.1,v1.0,Acme\n") {
		t.Fatalf("unexpected csv: %s", body)
	}
	runCmd(t, "export", "chart", "--metric", "cls", "-o", outDir)
	png, err := os.ReadFile(filepath.Join(outDir, "CLS-chart-2025-03-02-to-2025-03-03.png"))
	if err != nil {
		t.Fatalf("chart export missing: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("chart is not a PNG")
	}
	if _, err := execCmd("export", "chart", "--metric", "both"); err == nil {
		t.Fatalf("expected error for --metric both")
	}
}

func TestCLI_MetricAndReset(t *testing.T) {
	home := setupHome(t)
	runCmd(t, "load", writeFile(t, home, "acme.csv", acmeExport))

	if out := runCmd(t, "metric"); strings.TrimSpace(out) != "both" {
		t.Fatalf("default metric = %q", out)
	}
	runCmd(t, "metric", "LCP")
	if out := runCmd(t, "metric"); strings.TrimSpace(out) != "lcp" {
		t.Fatalf("metric after set = %q", out)
	}
	if _, err := execCmd("metric", "fid"); err == nil {
		t.Fatalf("expected error for unknown metric")
	}

	runCmd(t, "reset")
	_, err := execCmd("stats")
	if err == nil || !strings.Contains(err.Error(), "no data loaded") {
		t.Fatalf("expected no-data error after reset, got %v", err)
	}
}

func TestCLI_FailedLoadKeepsPreviousData(t *testing.T) {
	home := setupHome(t)
	runCmd(t, "load", writeFile(t, home, "acme.csv", acmeExport))

	bad := writeFile(t, home, "notes.csv", "just some notes\n")
	_, err := execCmd("load", bad)
	if err == nil || !strings.Contains(err.Error(), "Expected format") {
		t.Fatalf("expected header error with format hint, got %v", err)
	}
	out := runCmd(t, "stats", "--json")
	if !strings.Contains(out, `"count": 3`) {
		t.Fatalf("previous data lost: %s", out)
	}
}

func TestCLI_CheckReportsEachFile(t *testing.T) {
	home := setupHome(t)
	d1 := filepath.Join(home, "d1")
	d2 := filepath.Join(home, "d2")
	for _, d := range []string{d1, d2} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	writeFile(t, d1, "export.csv", acmeExport)
	writeFile(t, d2, "export.csv", "date,lcp,cls,release\nnope,1,1,\n")

	out, err := execCmd("check", filepath.Join(home, "d*", "export.csv"))
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if !strings.Contains(out, "[1/2] ✓ export.csv: 3 rows accepted, 1 skipped (brand Acme)") {
		t.Fatalf("missing success line: %s", out)
	}
	if !strings.Contains(out, "[2/2] ✗ export.csv") {
		t.Fatalf("missing failure line: %s", out)
	}

	// check never persists.
	if _, err := execCmd("stats"); err == nil {
		t.Fatalf("check must not load data")
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	setupHome(t)
	runCmd(t, "config", "set", "csv_layout", "wide")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "csv_layout: wide") {
		t.Fatalf("config not saved: %s", out)
	}
	if _, err := execCmd("config", "set", "csv_layout", "tall"); err == nil {
		t.Fatalf("expected validation error")
	}
}
