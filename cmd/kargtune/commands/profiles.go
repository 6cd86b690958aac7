package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newProfilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List available performance profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, _, err := buildOptimizer(cmd.Context(), false)
			if err != nil {
				return err
			}

			list := opt.Catalog().List()

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			for _, p := range list {
				fmt.Printf("%-14s %s\n", p.Name, p.Description)
				fmt.Printf("%-14s   %s\n", "", strings.Join(p.Params, " "))
			}
			return nil
		},
	}

	return cmd
}
