// internal/cli/brands.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/celltrack/crawler/internal/ui"
)

// brandsCmd represents the brands command
var brandsCmd = &cobra.Command{
	Use:   "brands",
	Short: "List the brands the backend wants crawled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetAppFromCmd(cmd)

		brands, err := a.Manager.Brands(cmd.Context())
		if err != nil {
			return err
		}
		for _, brand := range brands {
			fmt.Fprintf(os.Stdout, "  %s%s%s\n", ui.ColorCyan, brand, ui.ColorReset)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(brandsCmd)
}
