package cmd

import (
	"github.com/huangsam/smellscan/core"
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/spf13/cobra"
)

// scanSetup runs the shared setup and then resolves the ChangeSet source.
func scanSetup(cmd *cobra.Command, args []string) error {
	if err := sharedSetup(rootCtx, cmd, args); err != nil {
		return err
	}
	return contract.ProcessChangeSetSource(rootCtx, cfg, contract.NewLocalGitClient(), input)
}

// scanCmd analyzes one ChangeSet and reports its smells.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a ChangeSet for layered-architecture code smells",
	Long: `Classify every file of a ChangeSet into a layer, extract unit metrics, build the
dependency graph and run all detectors. Findings are scored and sorted by priority:

  Total = Impact*3 + Risk*2 + Velocity   (High > 20, Medium 10-20, Low < 10)

A ChangeSet comes from exactly one source:
- a JSON or YAML descriptor (--changeset)
- a unified diff (--diff), optionally with ticket metadata (--ticket)
- two Git references (--base-ref, --target-ref)

With --fail-on-high the exit code gates CI pipelines:
  0 - no findings
  1 - Medium or Low findings only
  2 - at least one High finding
  3 - configuration or runtime error

Examples:
  # Scan a ticket descriptor and print a table
  smellscan scan --changeset ticket-142.yaml

  # Gate a pull request on High findings
  smellscan scan --base-ref origin/main --target-ref HEAD --ticket ticket.yaml --fail-on-high

  # Markdown report for a review comment
  smellscan scan --diff change.patch --diff-content --format markdown --output-file smells.md

  # SARIF for code scanning, without the dead-code detector
  smellscan scan --changeset cs.json --format sarif --skip DeadCode`,
	Args:    cobra.NoArgs,
	PreRunE: scanSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteScan(rootCtx, cfg, cacheManager)
	},
}
