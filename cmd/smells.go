package cmd

import (
	"github.com/huangsam/smellscan/core"
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/spf13/cobra"
)

// smellsCmd displays the smell catalogue.
var smellsCmd = &cobra.Command{
	Use:   "smells",
	Short: "Display every smell type with its trigger and recommended refactoring",
	Long: `Show the smell catalogue under the active configuration:
- smell code, type and category
- trigger rendered from the configured thresholds
- recommended refactor pattern
- whether the detector is disabled by --skip

No ChangeSet is analyzed - this is purely informational.

Examples:
  # Show the stock thresholds
  smellscan smells

  # View with custom thresholds from a config file
  smellscan smells --config .smellscan.yaml --format json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSmells(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot display smells", err)
		}
	},
}
