package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newResetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove the active profile's kernel parameters",
		Long: `Remove the last applied profile's parameters plus any legacy
parameters from earlier releases, then clear the saved profile state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, journal, err := buildOptimizer(cmd.Context(), true)
			if err != nil {
				return err
			}
			if journal != nil {
				defer journal.Close()
			}

			result := opt.Reset(cmd.Context())

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else if result.Failed() {
				fmt.Printf("Reset failed at step %q: %s\n", result.FailedStep, result.Reason)
			} else {
				fmt.Printf("Reset complete: removed %d parameters\n", len(result.Removed))
				if len(result.Removed) > 0 && result.RequiresReboot {
					fmt.Println("Reboot required for changes to take effect")
				}
			}

			if result.Failed() {
				return fmt.Errorf("reset failed: %s", result.Reason)
			}
			return nil
		},
	}

	return cmd
}
