package main

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"GenAIMonitor/internal/app"
	"GenAIMonitor/internal/config"
	"GenAIMonitor/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "genaimonitor",
		Short: "Monitor company websites for generative AI announcements",
		Long: `genaimonitor fetches a fixed list of company pages, keeps the ones that
discuss generative AI and reports every pass.

  genaimonitor run        # one monitoring pass
  genaimonitor serve      # scheduled passes plus the dashboard API
  genaimonitor sources    # print the configured sources`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			opts.cfg = cfg
			opts.logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the YAML config (default $GENAI_MONITOR_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(newRunCmd(opts), newServeCmd(opts), newSourcesCmd(opts))
	return root
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one monitoring pass and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			application, err := app.New(ctx, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer application.Close()

			report, err := application.RunOnce(ctx)
			if err != nil {
				opts.logger.Error("run failed", "error", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d attempted, %d succeeded, %d unchanged, %d failed, %d new articles\n",
				report.RunID, report.SourcesAttempted, report.SourcesSucceeded, report.SourcesUnchanged,
				len(report.SourcesFailed), report.ArticlesFound)
			return nil
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled passes and serve the dashboard API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			application, err := app.New(ctx, opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Serve(ctx); err != nil {
				opts.logger.Error("application stopped", "error", err)
				return err
			}
			opts.logger.Info("application stopped")
			return nil
		},
	}
}

func newSourcesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := opts.cfg.DomainSources()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSECTOR\tENABLED\tURL\tKEYWORDS")
			for _, s := range sources {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", s.ID, s.Sector, s.Enabled, s.URL, strings.Join(s.KeywordHints, ","))
			}
			return w.Flush()
		},
	}
}
