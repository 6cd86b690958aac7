package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show platform, active profile and reboot state",
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, _, err := buildOptimizer(cmd.Context(), false)
			if err != nil {
				return err
			}

			desc := opt.Descriptor()
			last, err := opt.LastApplied()
			if err != nil {
				return err
			}

			if jsonOutput {
				out := map[string]any{
					"platform":        desc,
					"requires_reboot": opt.RequiresReboot(),
				}
				if last != nil {
					out["active_profile"] = last.Profile
					out["applied_at"] = last.Timestamp
					out["tool_version"] = last.ToolVersion
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Printf("Distro:          %s\n", desc.Distro)
			fmt.Printf("Immutable:       %v\n", desc.Immutable)
			fmt.Printf("Backend:         %s\n", desc.Backend)
			if last != nil {
				fmt.Printf("Active profile:  %s (applied %s)\n", last.Profile, last.Timestamp.Format("2006-01-02 15:04:05"))
			} else {
				fmt.Println("Active profile:  none")
			}
			fmt.Printf("Reboot required: %v\n", opt.RequiresReboot())
			return nil
		},
	}

	return cmd
}
