// Package cmd defines the command-line interface for smellscan.
package cmd

import (
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(smellsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default .smellscan.yaml in . or $HOME)")
	rootCmd.PersistentFlags().String("format", string(schema.TextOut), "Output format: text or json or csv or markdown or sarif")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().String("skip", "", "Comma-separated detectors to disable (names or codes, e.g. DeadCode,C2)")
	rootCmd.PersistentFlags().String("exclude", "", "Comma-separated list of path prefixes or patterns to ignore")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log phase timings and diagnostics to stderr")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Unit cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Findings history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for findings history (must differ from cache-db-connect)")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of scanCmd to Viper
	scanCmd.Flags().String("changeset", "", "Path to a ChangeSet descriptor (JSON or YAML, '-' for stdin)")
	scanCmd.Flags().String("diff", "", "Path to a unified diff ('-' for stdin)")
	scanCmd.Flags().Bool("diff-content", false, "Reconstruct file content from the diff hunks")
	scanCmd.Flags().String("ticket", "", "Ticket YAML merged onto a diff or git-ref ChangeSet")
	scanCmd.Flags().String("repo", ".", "Repository path used with --base-ref")
	scanCmd.Flags().String("base-ref", "", "Base Git reference of the ChangeSet")
	scanCmd.Flags().String("target-ref", "", "Target Git reference of the ChangeSet (default HEAD)")
	scanCmd.Flags().String("unused-feed", "", "Unused-symbol feed from a static analyzer (JSON or YAML)")
	scanCmd.Flags().String("coverage-feed", "", "Coverage feed (JSON or YAML)")
	scanCmd.Flags().Bool("fail-on-high", false, "Exit 2 on any High finding, 1 on Medium/Low findings")
	scanCmd.Flags().String("file-timeout", contract.DefaultFileTimeout.String(), "Deadline for extracting one file")
	scanCmd.Flags().String("timeout", contract.DefaultScanTimeout.String(), "Deadline for the whole ChangeSet")
	if err := viper.BindPFlags(scanCmd.Flags()); err != nil {
		contract.LogFatal("Error binding scan flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
