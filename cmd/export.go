package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vitals-cli/internal/export"
	"github.com/KaramelBytes/vitals-cli/internal/utils"
	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

var (
	exportCrit   criteriaFlags
	exportOutput string
	exportMetric string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the filtered records as CSV or a chart PNG",
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Write the filtered records to web-vitals-filtered-<start>-to-<end>.csv",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, view, err := currentView(cmd, &exportCrit)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, view.Records); err != nil {
			return err
		}
		path, err := outputPath(exportOutput, export.CSVFileName(view.Criteria))
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d records to %s\n", len(view.Records), path)
		return nil
	},
}

var exportChartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render the LCP or CLS trend with release markers as a PNG",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := vitals.ParseMetric(exportMetric)
		if err != nil {
			return err
		}
		if m == vitals.MetricBoth {
			return fmt.Errorf("--metric must be lcp or cls")
		}
		_, view, err := currentView(cmd, &exportCrit)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		opt := export.ChartOptions{Width: cfg.ChartWidth, Height: cfg.ChartHeight}
		if err := export.WriteChart(&buf, view.Records, m, opt); err != nil {
			return err
		}
		path, err := outputPath(exportOutput, export.ChartFileName(m, view.Criteria))
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s chart to %s\n", m, path)
		return nil
	},
}

// outputPath resolves --output: empty means the default name in the working
// directory, an existing directory receives the default name.
func outputPath(flag, name string) (string, error) {
	if flag == "" {
		return name, nil
	}
	p := utils.ExpandHome(flag)
	if fi, err := os.Stat(p); err == nil && fi.IsDir() {
		return filepath.Join(p, name), nil
	}
	if err := utils.EnsureDir(filepath.Dir(p)); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return p, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportCSVCmd)
	exportCmd.AddCommand(exportChartCmd)
	exportCrit.bind(exportCSVCmd)
	exportCrit.bind(exportChartCmd)
	exportCmd.PersistentFlags().StringVarP(&exportOutput, "output", "o", "", "file or directory to write (default: dashboard file name in the current directory)")
	exportChartCmd.Flags().StringVar(&exportMetric, "metric", "lcp", "metric to chart: lcp | cls")
}
