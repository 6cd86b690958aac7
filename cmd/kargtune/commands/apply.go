package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newApplyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <profile>",
		Short: "Apply a performance profile's kernel parameters",
		Long: `Apply a named profile as persistent kernel command-line parameters.

This command:
  - Detects the platform and selects the matching backend
  - Computes the minimal remove/add transition from the last applied profile
  - Removes legacy parameters left by earlier releases
  - Executes one coalesced removal batch and one coalesced addition batch
  - Persists the new profile state on full success`,
		Example: `  # Apply the competitive profile
  kargtune apply competitive

  # Apply with a site config
  kargtune apply balanced --config /etc/kargtune/config.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := args[0]

			opt, journal, err := buildOptimizer(cmd.Context(), true)
			if err != nil {
				return err
			}
			if journal != nil {
				defer journal.Close()
			}

			result := opt.ApplyProfile(cmd.Context(), profile)

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				switch {
				case result.Failed():
					fmt.Printf("Apply failed at step %q: %s\n", result.FailedStep, result.Reason)
				case len(result.Removed) == 0 && len(result.Added) == 0:
					fmt.Printf("Profile %q already in force, no changes\n", profile)
				default:
					fmt.Printf("Applied profile %q: removed %d, added %d parameters\n",
						profile, len(result.Removed), len(result.Added))
				}
				if !result.Failed() && result.RequiresReboot {
					fmt.Println("Reboot required for changes to take effect")
				}
			}

			if result.Failed() {
				log.Error().
					Str("profile", profile).
					Str("step", string(result.FailedStep)).
					Msg("Profile apply failed")
				return fmt.Errorf("apply failed: %s", result.Reason)
			}
			return nil
		},
	}

	return cmd
}
