package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vitals-cli/internal/analysis"
	"github.com/KaramelBytes/vitals-cli/internal/export"
	"github.com/KaramelBytes/vitals-cli/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload, filter, stats and export API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, state, err := loadState()
		if err != nil {
			return err
		}
		opt, err := parseOptions()
		if err != nil {
			return err
		}
		addr := cfg.ServeAddr
		if cmd.Flags().Changed("addr") && serveAddr != "" {
			addr = serveAddr
		}

		sess := server.NewSession(state.Dataset, state.Criteria, state.Metric)
		srv := server.New(server.Options{
			Addr:           addr,
			MaxUploadBytes: cfg.MaxUploadBytes,
			UploadRate:     cfg.UploadRateLimit,
			Parse:          opt,
			Chart:          export.ChartOptions{Width: cfg.ChartWidth, Height: cfg.ChartHeight},
			Logger:         logger,
		}, sess, st, analysis.NewCache(newEngine(), analysis.DefaultCacheSize))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving on http://%s (Ctrl+C to stop)\n", addr)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address host:port (overrides config)")
}
