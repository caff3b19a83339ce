package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newScrapeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scrape NAME [NAME...]",
		Short: "Runs one or more strategies and prints their results as JSON",
		Long: `Fetches each strategy's target page (from the cache when present) and
prints the extracted result. A strategy that finds nothing prints null.
Several names are scraped concurrently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				out, err := appInstance.Scrape(cmd.Context(), args[0], opts.origin)
				if err != nil {
					return fmt.Errorf("scrape %s: %w", args[0], err)
				}
				return writeIndented(cmd.OutOrStdout(), out)
			}

			outcomes := appInstance.ScrapeBatch(cmd.Context(), args, opts.origin)
			var firstErr error
			for _, o := range outcomes {
				if o.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", o.Strategy, o.Err)
					if firstErr == nil {
						firstErr = fmt.Errorf("scrape %s: %w", o.Strategy, o.Err)
					}
					continue
				}
				if err := writeIndented(cmd.OutOrStdout(), o.Outcome); err != nil {
					return err
				}
			}
			return firstErr
		},
	}
}

func newStrategiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "Lists the registered strategies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range appInstance.Strategies() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// errNoResultsStore is returned by results when no Postgres store is
// configured; the in-memory store starts empty on every invocation.
var errNoResultsStore = errors.New("results needs a Postgres store: set results.dsn or SCRAPER_RESULTS_DSN")

func newResultsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Prints recently recorded scrapes",
		Long: "Prints recently recorded scrapes from the Postgres result store.\n" +
			"Requires results.dsn; without it each run starts with an empty in-memory store.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if strings.TrimSpace(appInstance.Config().Results.DSN) == "" {
				return errNoResultsStore
			}
			recs, err := appInstance.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), recs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	return cmd
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
