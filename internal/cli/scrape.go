// internal/cli/scrape.go
package cli

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/celltrack/crawler/internal/models"
	"github.com/celltrack/crawler/internal/output"
	"github.com/celltrack/crawler/internal/ui"
)

var scrapeOut string

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run the full crawl: discover, extract, and sync with the backend",
	Long: `Runs the complete pipeline for every brand the backend tracks:
search-result discovery, per-product detail extraction across the
worker pool, and reconciliation of the results with the catalog
backend.

Use --out to additionally dump the extracted records to a JSON file.`,
	Example: `  # Full crawl with defaults
  crawler scrape

  # Eight parallel browser sessions against a remote hub
  crawler scrape -w 8 --selenium-url=http://hub:4444/wd/hub

  # Crawl two brands only and keep a local copy of the records
  crawler scrape --brands=apple,samsung --out=records.json`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&scrapeOut, "out", "o", "", "File path to save extracted records (.json or .csv)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	ctx := cmd.Context()

	manager := a.Manager
	var bar *progressbar.ProgressBar
	manager.OnBrandStart = func(brand string, items int) {
		if bar != nil {
			_ = bar.Finish()
		}
		bar = progressbar.NewOptions(items,
			progressbar.OptionSetDescription(brand),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	manager.OnItem = func() {
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if scrapeOut == "" {
		if err := manager.Run(ctx, a.Config.Brands); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, ui.Success("crawl complete"))
		return nil
	}

	// With --out the per-brand flow is driven here so every extracted
	// record can be captured before reconciliation.
	brands := a.Config.Brands
	if len(brands) == 0 {
		var err error
		brands, err = manager.Brands(ctx)
		if err != nil {
			return err
		}
	}
	discovered, err := manager.Discover(ctx, brands)
	if err != nil {
		return err
	}

	var all []models.ProductRecord
	for brand, identifiers := range discovered {
		manager.OnBrandStart(brand, len(identifiers))
		if len(identifiers) == 0 {
			continue
		}
		records, err := manager.ExtractDetails(ctx, identifiers)
		if err != nil {
			return err
		}
		all = append(all, records...)
		if err := manager.Reconcile(ctx, brand, records); err != nil {
			return err
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := output.Save(all, scrapeOut); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s %d records written to %s\n", ui.Success("crawl complete:"), len(all), scrapeOut)
	return nil
}

