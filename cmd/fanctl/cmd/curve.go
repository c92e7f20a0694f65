package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oshokin/fanctl/internal/config"
	"github.com/oshokin/fanctl/internal/domain/thermal"
)

// newCurveCommand prints the duty cycle the configured curve gives for each temperature.
func newCurveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "curve <temperature>...",
		Short: "Evaluate the fan curve for the given temperatures.",
		Long: `Prints the fan speed the configured curve produces for each temperature
in degrees Celsius, without touching the hardware.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}

			for _, arg := range args {
				temperature, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("temperature %q: %w", arg, err)
				}

				percent, err := cfg.Curve.Evaluate(temperature)
				if err != nil {
					return err
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%.1f°C -> %d%% (%s)\n",
					temperature, percent, thermal.ActuationCommand{Percent: percent}.Hex())
			}

			return nil
		},
	}
}
