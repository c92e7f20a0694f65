package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/fanctl/internal/config"
)

var errConfigExists = errors.New("config file already exists, use --force to overwrite")

// newInitConfigCommand writes the reference settings to --config.
func newInitConfigCommand() *cobra.Command {
	var (
		withGPU bool
		force   bool
	)

	command := &cobra.Command{
		Use:   "init-config",
		Short: "Write a config file with the reference settings.",
		Long: `Writes the default settings to the --config path: ipmitool baseboard
sensors, the (2x - 60)% curve and both Supermicro fan zones. With --gpu the
nvidia-smi dmon stream is added as a second source.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				if _, err := os.Stat(configPath); err == nil {
					return fmt.Errorf("%s: %w", configPath, errConfigExists)
				}
			}

			cfg := config.Default()
			if withGPU {
				cfg.Sources = append(cfg.Sources, config.AcceleratorSource(cfg.Interval))
			}

			if err := config.Save(configPath, cfg); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)

			return nil
		},
	}

	command.Flags().BoolVar(&withGPU, "gpu", false, "also stream NVIDIA GPU temperatures")
	command.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	return command
}
