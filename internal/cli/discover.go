// internal/cli/discover.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/celltrack/crawler/internal/ui"
)

var discoverOut string

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Collect candidate product identifiers without extracting details",
	Long: `Walks the search results for each brand and prints the identifiers
of products the backend does not know yet. No product pages are opened
and nothing is written to the backend.`,
	Example: `  # Identifiers for the backend's brand list
  crawler discover

  # A single brand, saved to a file
  crawler discover --brands=motorola --out=motorola.json`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringVarP(&discoverOut, "out", "o", "", "File path to save the identifier map as JSON")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	ctx := cmd.Context()

	brands := a.Config.Brands
	if len(brands) == 0 {
		var err error
		brands, err = a.Manager.Brands(ctx)
		if err != nil {
			return err
		}
	}

	discovered, err := a.Manager.Discover(ctx, brands)
	if err != nil {
		return err
	}

	if discoverOut != "" {
		raw, err := json.MarshalIndent(discovered, "", "  ")
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		if err := os.WriteFile(discoverOut, raw, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(os.Stdout, "%s %d identifiers written to %s\n",
			ui.Success("discovery complete:"), discovered.Total(), discoverOut)
		return nil
	}

	raw, err := json.MarshalIndent(discovered, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(raw))
	return nil
}
