package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vitals-cli/internal/parser"
	"github.com/KaramelBytes/vitals-cli/internal/store"
	"github.com/KaramelBytes/vitals-cli/internal/utils"
)

var (
	loadShowRejected int
	loadJSON         bool
)

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load a web-vitals CSV or spreadsheet export, replacing the current data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := utils.ExpandHome(args[0])
		opt, err := parseOptions()
		if err != nil {
			return err
		}
		res, err := parser.ParseFile(path, opt)
		if err != nil {
			return err
		}
		res.Dataset.Source = filepath.Base(path)

		st, err := openStore()
		if err != nil {
			return err
		}
		crit := res.Dataset.DefaultCriteria()
		if err := st.SaveCriteria(crit); err != nil {
			return err
		}
		if err := st.SaveDataset(res.Dataset); err != nil {
			if !errors.Is(err, store.ErrQuotaExceeded) {
				return err
			}
			fmt.Fprintf(os.Stderr, "⚠ Warning: %v; the data was parsed but not saved\n", err)
		}

		out := cmd.OutOrStdout()
		if loadJSON {
			b, err := utils.PrettyJSON(map[string]any{
				"dataset_id":  res.Dataset.ID,
				"source":      res.Dataset.Source,
				"brand":       res.Brand,
				"count":       res.Dataset.Len(),
				"diagnostics": res.Diagnostics,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "✓ %s\n", res.Summary())
		rej := res.Diagnostics.Rejections
		if n := loadShowRejected; n >= 0 && len(rej) > n {
			rej = rej[:n]
		}
		for _, r := range rej {
			fmt.Fprintf(out, "  line %d (%q): %s\n", r.Line, r.Token, r.Reason)
		}
		if hidden := res.Diagnostics.Rejected - len(rej); hidden > 0 && len(rej) > 0 {
			fmt.Fprintf(out, "  ... and %d more (use --debug to log every row)\n", hidden)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().IntVar(&loadShowRejected, "show-rejected", 10, "number of skipped rows to list (-1 = all kept)")
	loadCmd.Flags().BoolVar(&loadJSON, "json", false, "print the load result as JSON")
}
