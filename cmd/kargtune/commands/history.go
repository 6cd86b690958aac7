package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kargtune/kargtune/pkg/config"
	"github.com/kargtune/kargtune/pkg/history"
)

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past apply runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			journal := history.NewStore(cfg.HistoryPath)
			if err := journal.Init(cmd.Context()); err != nil {
				return err
			}
			defer journal.Close()

			runs, err := journal.ListRuns(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Println("No recorded runs")
				return nil
			}
			for _, run := range runs {
				line := fmt.Sprintf("%s  %-12s %-10s -%d +%d",
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Profile, run.Status, run.ParamsRemoved, run.ParamsAdded)
				if run.Status == history.RunStatusFailed && run.FailedStep != nil {
					line += fmt.Sprintf("  (failed at %s)", *run.FailedStep)
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to show")

	return cmd
}
