package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vitals-cli/internal/vitals"
)

var metricCmd = &cobra.Command{
	Use:   "metric [both|lcp|cls]",
	Short: "Show or set the selected metric view",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, state, err := loadState()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), state.Metric)
			return nil
		}
		m, err := vitals.ParseMetric(args[0])
		if err != nil {
			return err
		}
		if err := st.SaveMetric(m); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Metric view set to %s\n", m)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the loaded data and saved selections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		if err := st.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared stored data")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(metricCmd)
	rootCmd.AddCommand(resetCmd)
}
