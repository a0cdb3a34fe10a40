package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scrolldoc/internal/fetcher"
	"scrolldoc/internal/progress"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Resolve and validate every region's content",
	Long:  `Walks the manifest, resolves each region's content through the configured environment and validates it against the content schema. Exits non-zero if any region fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		man, err := loadManifest(cfg)
		if err != nil {
			return fmt.Errorf("loading manifest: %w", err)
		}
		if len(man.Regions) == 0 {
			return fmt.Errorf("no regions found in %s", cfg.ContentDir)
		}

		f := buildFetcher(cfg)
		reporter := progress.NewReporter()
		reporter.Start(len(man.Regions))

		type failure struct {
			id  string
			err error
		}
		var failures []failure
		ctx := context.Background()

		for i, entry := range man.Regions {
			reporter.Update(i+1, entry.ID)
			res := f.Fetch(ctx, fetcher.Request{
				ID:             entry.ID,
				SourceTemplate: entry.SourceTemplate(),
				Legacy:         entry.Legacy(),
			})
			if res.Err != nil {
				failures = append(failures, failure{id: entry.ID, err: res.Err})
			} else if verbose {
				fmt.Fprintf(os.Stderr, "ok %s (%s)\n", entry.ID, res.WinningPath)
			}
		}
		reporter.Finish()

		if len(failures) > 0 {
			fmt.Fprintf(os.Stderr, "\n%d of %d regions failed validation:\n", len(failures), len(man.Regions))
			for _, f := range failures {
				fmt.Fprintf(os.Stderr, "  %s: %v\n", f.id, f.err)
			}
			return fmt.Errorf("%d regions failed validation", len(failures))
		}

		fmt.Fprintf(os.Stderr, "All %d regions valid.\n", len(man.Regions))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
