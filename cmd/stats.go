package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vitals-cli/internal/analysis"
	"github.com/KaramelBytes/vitals-cli/internal/utils"
)

var (
	statsCrit   criteriaFlags
	statsJSON   bool
	statsOutput string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show LCP/CLS statistics for the current date range and brand",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, view, err := currentView(cmd, &statsCrit)
		if err != nil {
			return err
		}
		var body []byte
		if statsJSON {
			body, err = utils.PrettyJSON(map[string]any{
				"source":   ds.Source,
				"count":    len(view.Records),
				"criteria": view.Criteria,
				"stats":    view.Stats,
			})
			if err != nil {
				return err
			}
		} else {
			body = []byte(analysis.NewReport(ds, view).Markdown())
		}

		if statsOutput != "" {
			if err := utils.SafeWriteFile(utils.ExpandHome(statsOutput), body); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote statistics to %s\n", statsOutput)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCrit.bind(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print statistics as JSON")
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", "", "optional path to write the report")
}
