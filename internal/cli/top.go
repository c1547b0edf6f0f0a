// internal/cli/top.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/celltrack/crawler/internal/ui"
)

var topJSON bool

// topCmd represents the top command
var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Read the bestseller grid and print identifier rankings",
	Long: `Opens the bestseller page on a single browser session, scrolls each
page until its lazy-loaded grid is complete, and prints the product
identifiers with their rank.`,
	Example: `  # Human-readable ranking table
  crawler top

  # Machine-readable output
  crawler top --json-output`,
	Args: cobra.NoArgs,
	RunE: runTop,
}

func init() {
	rootCmd.AddCommand(topCmd)

	topCmd.Flags().BoolVar(&topJSON, "json-output", false, "Print the ranking as JSON")
}

func runTop(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)

	rankings, err := a.Manager.TopRankings(cmd.Context())
	if err != nil {
		return err
	}

	if topJSON {
		raw, err := json.MarshalIndent(rankings, "", "  ")
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(raw))
		return nil
	}

	type entry struct {
		id   string
		rank int
	}
	ordered := make([]entry, 0, len(rankings))
	for id, rank := range rankings {
		ordered = append(ordered, entry{id, rank})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].rank < ordered[j].rank })

	for _, e := range ordered {
		fmt.Fprintf(os.Stdout, "  %s%3d%s  %s\n", ui.ColorCyan, e.rank, ui.ColorReset, e.id)
	}
	if len(ordered) == 0 {
		fmt.Fprintln(os.Stdout, ui.Info("no rankings collected (page may be throttled)"))
	}
	return nil
}
