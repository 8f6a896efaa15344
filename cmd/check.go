package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/vitals-cli/internal/parser"
)

var (
	checkJobs  int
	checkQuiet bool
)

type checkResult struct {
	path string
	res  *parser.Result
	err  error
}

var checkCmd = &cobra.Command{
	Use:   "check <files...>",
	Short: "Parse one or more exports and report what would load, without saving anything",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		seen := map[string]struct{}{}
		for _, arg := range args {
			matches, _ := filepath.Glob(arg)
			if len(matches) == 0 {
				// treat as literal path if exists
				if _, err := os.Stat(arg); err == nil {
					matches = []string{arg}
				}
			}
			for _, m := range matches {
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		sort.Strings(files)

		opt, err := parseOptions()
		if err != nil {
			return err
		}

		results := make([]checkResult, len(files))
		var g errgroup.Group
		g.SetLimit(max(checkJobs, 1))
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				res, err := parser.ParseFile(path, opt)
				results[i] = checkResult{path: path, res: res, err: err}
				return nil
			})
		}
		_ = g.Wait()

		out := cmd.OutOrStdout()
		failed := 0
		total := len(results)
		for i, r := range results {
			name := filepath.Base(r.path)
			if r.err != nil {
				failed++
				fmt.Fprintf(out, "[%d/%d] ✗ %s: %v\n", i+1, total, name, r.err)
				continue
			}
			d := r.res.Diagnostics
			fmt.Fprintf(out, "[%d/%d] ✓ %s: %d rows accepted, %d skipped", i+1, total, name, d.Accepted, d.Rejected)
			if r.res.Brand != "" {
				fmt.Fprintf(out, " (brand %s)", r.res.Brand)
			}
			fmt.Fprintln(out)
			if checkQuiet {
				continue
			}
			for _, rej := range d.Rejections {
				fmt.Fprintf(out, "    line %d (%q): %s\n", rej.Line, rej.Token, rej.Reason)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed to parse", failed, total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().IntVarP(&checkJobs, "jobs", "j", 4, "files parsed in parallel")
	checkCmd.Flags().BoolVar(&checkQuiet, "quiet", false, "suppress per-row rejection details")
}
