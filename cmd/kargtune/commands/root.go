package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath  string
	jsonOutput  bool
	metricsAddr string
)

// toolVersion is the release string recorded in state files, set from main.
var toolVersion = "dev"

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	toolVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kargtune",
		Short: "kargtune - persistent kernel command-line performance profiles",
		Long: `kargtune applies named performance profiles as persistent kernel
command-line parameters, on both mutable systems (bootloader config) and
immutable image-based systems (transactional kernel argument layering).

Features:
  - One-shot platform detection with a safe bootloader-config fallback
  - Coalesced transactional batches with stuck-transaction recovery
  - Minimal remove/add transitions between profiles
  - Legacy parameter cleanup on every apply
  - Apply-run history journal and drift watching`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")

	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newResetCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newParamsCommand())
	rootCmd.AddCommand(newProfilesCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
