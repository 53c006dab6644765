// Package cli wires vigil's cobra command tree: the primary daemon
// command plus validate and version subcommands (SPEC_FULL.md §6.1),
// grounded on re-cinq-detergent's per-subcommand-file layout.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var configPath string
var commitRef string

var rootCmd = &cobra.Command{
	Use:   "vigil <target-dir>",
	Short: "Continuously re-audit a Git working tree with a local LLM",
	Long: `vigil is a long-running daemon that watches a Git working tree for
uncommitted changes, runs user-defined review prompts against the files
that changed, and maintains a live Markdown report of what it finds.

Issues are tracked by fuzzy identity across re-scans: a fix that makes an
issue stop reproducing marks it resolved; an issue that keeps reproducing
stays open with its line number kept current.`,
	Args: cobra.ExactArgs(1),
	RunE: runDaemon,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "vigil.toml", "Path to vigil config file")
	rootCmd.Flags().StringVar(&commitRef, "commit", "", "Base commit to diff against instead of the worktree/index")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vigil %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
