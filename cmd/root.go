// Package cmd defines and implements the CLI commands for the scraper executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/polite-scraper/internal/app"
	"github.com/JakeFAU/polite-scraper/internal/config"
	"github.com/JakeFAU/polite-scraper/internal/logging"
	"github.com/JakeFAU/polite-scraper/internal/results"
	"github.com/JakeFAU/polite-scraper/internal/scraper"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use, so tests can
// inject a fake.
type App interface {
	Close()
	Logger() *zap.Logger
	Config() config.Config
	Strategies() []string
	Scrape(ctx context.Context, name, origin string) (app.Outcome, error)
	ScrapeBatch(ctx context.Context, names []string, origin string) []app.BatchOutcome
	Recent(ctx context.Context, limit int) ([]results.Record, error)
}

// newApp is the application factory. It is a variable so tests can replace it.
var newApp = func(ctx context.Context, cfgPath string) (App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return app.New(ctx, cfg, app.WithLogger(logger))
}

type rootOptions struct {
	cfgFile string
	origin  string
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "scraper",
		Short: "A polite fetch-and-parse scraper.",
		Long: `scraper fetches pages while honouring robots.txt, caches every response
on disk and retries transient failures with exponential backoff, then hands
the page to a named extraction strategy.`,
		SilenceUsage: true,

		// Builds the application and stores it in the context for subcommands.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), opts.cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.origin, "origin", "", "override the origin the strategy targets")

	cmd.AddCommand(
		newScrapeCmd(opts),
		newWatersCmd(opts),
		newStrategiesCmd(),
		newResultsCmd(),
		newServeCmd(),
	)
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrUnknownStrategy), errors.Is(err, scraper.ErrInvalidTarget),
		errors.Is(err, app.ErrOriginNotAllowed):
		return 2
	case errors.Is(err, scraper.ErrPolicyDenied):
		return 3
	case errors.Is(err, scraper.ErrNetworkExhausted):
		return 4
	case errors.Is(err, scraper.ErrStrategyFailed):
		return 5
	default:
		return 1
	}
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}
