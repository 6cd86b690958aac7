package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newParamsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "List the kernel parameters effective at next boot",
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, _, err := buildOptimizer(cmd.Context(), false)
			if err != nil {
				return err
			}

			params, err := opt.ActiveParams(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(params.Strings())
			}

			for _, p := range params.Strings() {
				fmt.Println(p)
			}
			return nil
		},
	}

	return cmd
}
