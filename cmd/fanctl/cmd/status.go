package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/fanctl/internal/config"
	"github.com/oshokin/fanctl/internal/domain/thermal"
	"github.com/oshokin/fanctl/internal/repository/status"
)

var errNoStatusFile = errors.New("status_file is not configured")

// newStatusCommand prints the last cycle saved by the daemon.
func newStatusCommand() *cobra.Command {
	var statusFile string

	command := &cobra.Command{
		Use:   "status",
		Short: "Show the last control cycle.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := statusFile
			if path == "" {
				cfg, err := config.LoadOrDefault(configPath)
				if err != nil {
					return err
				}

				path = cfg.StatusFile
			}

			if path == "" {
				return errNoStatusFile
			}

			cycle, err := status.NewFileRepository(path).Load(cmd.Context())
			if err != nil {
				return err
			}

			printStatus(cmd.OutOrStdout(), cycle)

			return nil
		},
	}

	command.Flags().StringVarP(&statusFile, "status-file", "s", "", "status file written by the daemon")

	return command
}

func printStatus(w io.Writer, cycle *thermal.CycleStatus) {
	_, _ = fmt.Fprintf(w, "Cycle at %s\n", cycle.Timestamp.Local().Format(time.DateTime))

	if cycle.Skipped != "" {
		_, _ = fmt.Fprintf(w, "Skipped: %s\n", cycle.Skipped)
	} else {
		_, _ = fmt.Fprintf(w, "Temperature: %.1f (%s), fan speed: %d%%\n",
			cycle.Hottest.Value, cycle.Hottest.SourceID, cycle.Percent)
	}

	for _, r := range cycle.Readings {
		_, _ = fmt.Fprintf(w, "  %-12s %6.1f  %s\n",
			r.SourceID, r.Value, r.ObservedAt.Local().Format(time.TimeOnly))
	}

	for _, z := range cycle.Zones {
		result := "ok"
		if z.Error != "" {
			result = z.Error
		}

		_, _ = fmt.Fprintf(w, "  zone %s -> %d%%: %s\n", z.Zone, z.Percent, result)
	}
}
