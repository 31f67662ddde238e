package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ResearchBriefing/internal/app"
	"ResearchBriefing/internal/config"
	"ResearchBriefing/internal/logging"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "researchbriefing",
		Short: "Collect AI research papers and blog posts, deliver a daily briefing",
		Long: `Without a subcommand the MODE environment variable selects the run:
  MODE=collect  fetch sources and buffer new items (default)
  MODE=brief    deliver the buffered items and acknowledge them`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode := strings.ToLower(strings.TrimSpace(os.Getenv("MODE")))
			switch mode {
			case "", "collect":
				return withApp(cmd, configPath, (*app.Application).Collect)
			case "brief":
				return withApp(cmd, configPath, (*app.Application).Brief)
			default:
				return fmt.Errorf("unknown MODE %q (expected collect or brief)", mode)
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yml")

	root.AddCommand(collectCmd(&configPath))
	root.AddCommand(briefCmd(&configPath))
	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(stateCmd(&configPath))
	return root
}

func collectCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Fetch sources once and buffer new items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, (*app.Application).Collect)
		},
	}
}

func briefCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "brief",
		Short: "Deliver the buffered items and acknowledge them on success",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, (*app.Application).Brief)
		},
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run collect on an interval and brief once a day",
		Long: `Run as a daemon.

Collect runs every scheduler.collectInterval (first run at start-up), brief runs
daily at scheduler.briefAt in the configured timezone. Metrics are served on
metrics.listen when set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, (*app.Application).Serve)
		},
	}
}

func stateCmd(configPath *string) *cobra.Command {
	state := &cobra.Command{
		Use:   "state",
		Short: "Work with the persisted state",
	}
	state.AddCommand(&cobra.Command{
		Use:   "inspect",
		Short: "Print counts of the notified sets, cross-references and buffer as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, *configPath, func(a *app.Application, ctx context.Context) error {
				in, err := a.Inspect(ctx)
				if err != nil {
					return err
				}
				return app.WriteInspection(cmd.OutOrStdout(), in)
			})
		},
	})
	return state
}

// withApp loads configuration, builds the application and runs fn until SIGINT/SIGTERM.
func withApp(cmd *cobra.Command, configPath string, fn func(*app.Application, context.Context) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load(configPath)
	logger := logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	if cfg.Source != "" {
		logger.Debug("config loaded", "path", cfg.Source)
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close state backend", "error", err)
		}
	}()

	return fn(application, ctx)
}
