package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kargtune/kargtune/pkg/config"
	"github.com/kargtune/kargtune/pkg/driftwatch"
	"github.com/kargtune/kargtune/pkg/kargs"
	"github.com/kargtune/kargtune/pkg/state"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch for out-of-band changes to owned files",
		Long: `Watch the bootloader config file and the profile state record for
modifications made outside kargtune, and log each one. With --metrics-addr,
drift and apply counters are exposed for Prometheus scraping.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			grubPath := cfg.GrubConfigPath
			if grubPath == "" {
				grubPath = kargs.DefaultGrubConfigPath
			}
			statePath := cfg.StatePath
			if statePath == "" {
				statePath = state.DefaultStatePath
			}

			metrics := setupMetrics()

			watcher := driftwatch.NewWatcher(metrics, grubPath, statePath)
			changes := make(chan driftwatch.Change, 16)

			go func() {
				for change := range changes {
					fmt.Printf("%s: %s changed outside kargtune\n", change.Kind, change.Path)
				}
			}()

			err = watcher.Watch(cmd.Context(), changes)
			close(changes)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	return cmd
}
