package cmd

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vitals-cli/internal/utils"
	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

var (
	recordsCrit  criteriaFlags
	recordsJSON  bool
	releasesCrit criteriaFlags
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List the records matching the current date range and brand",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, view, err := currentView(cmd, &recordsCrit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if recordsJSON {
			b, err := utils.PrettyJSON(view.Records)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if len(view.Records) == 0 {
			fmt.Fprintln(out, "(no records)")
			return nil
		}
		return writeRecords(out, view.Records)
	},
}

var brandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "List the distinct brands in the loaded data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, state, err := loadState()
		if err != nil {
			return err
		}
		if state.Dataset.Len() == 0 {
			return errNoData
		}
		out := cmd.OutOrStdout()
		brands := state.Dataset.Brands()
		if len(brands) == 0 {
			fmt.Fprintln(out, "(no brands)")
			return nil
		}
		for _, b := range brands {
			marker := " "
			if b == state.Criteria.Brand {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s\n", marker, b)
		}
		return nil
	},
}

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "List releases within the current date range and brand",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, view, err := currentView(cmd, &releasesCrit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		rel := vitals.Releases(view.Records)
		if len(rel) == 0 {
			fmt.Fprintln(out, "(no releases in period)")
			return nil
		}
		for _, r := range rel {
			fmt.Fprintf(out, "- %s: %s\n", r.DisplayDate, r.Release)
		}
		return nil
	},
}

func writeRecords(w io.Writer, records []vitals.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tLCP\tCLS\tRELEASE\tBRAND")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", r.DisplayDate, r.LCP, strconv.FormatFloat(r.CLS, 'f', -1, 64), r.Release, r.Brand)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(brandsCmd)
	rootCmd.AddCommand(releasesCmd)
	recordsCrit.bind(recordsCmd)
	recordsCmd.Flags().BoolVar(&recordsJSON, "json", false, "print records as JSON")
	releasesCrit.bind(releasesCmd)
}
