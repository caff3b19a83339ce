package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/polite-scraper/internal/regions"
)

func newWatersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "waters",
		Short: "Scrapes New Brunswick bodies of water and maps them to tourism regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			out, err := appInstance.Scrape(cmd.Context(), "waters", opts.origin)
			if err != nil {
				return fmt.Errorf("scrape waters: %w", err)
			}
			if out.Absent {
				appInstance.Logger().Warn("no waters table found", zap.String("url", out.URL))
				fmt.Fprintln(cmd.ErrOrStderr(), "no data found")
				return nil
			}

			entries := regions.ProcessWaters(out.Result.Records(), appInstance.Logger())
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tWATER TYPE\tREGION")
			for _, row := range regions.Rows(entries) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", row[0], row[1], row[2])
			}
			if err := tw.Flush(); err != nil {
				return fmt.Errorf("write waters table: %w", err)
			}
			appInstance.Logger().Info("waters processed", zap.Int("entries", len(entries)))
			return nil
		},
	}
}
