package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	flowio "github.com/flowpanel/flowpanel/pkg/io"
)

// checkCommand creates the check command validating node-link JSON files.
func (c *CLI) checkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [file...]",
		Short: "Validate node-link JSON graph files",
		Long: `Check parses each file as node-link JSON and validates its structure:
node ids must be unique and non-empty, and every edge must reference
existing nodes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				g, err := flowio.ImportJSON(path)
				if err != nil {
					printError("%s: %v", path, err)
					failed++
					continue
				}
				printSuccess("%s", path)
				printGraphSummary(g)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files invalid", failed, len(args))
			}
			return nil
		},
	}
	return cmd
}
