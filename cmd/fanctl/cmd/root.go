package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/fanctl/internal/config"
	"github.com/oshokin/fanctl/internal/domain/thermal"
	"github.com/oshokin/fanctl/internal/service/controller"
	"github.com/oshokin/fanctl/internal/version"
)

// ExitCodeNoPermission is returned when fanctl is not allowed to drive the fans (EX_NOPERM).
const ExitCodeNoPermission = 77

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// dryRun logs fan commands instead of sending them.
	dryRun bool

	// rootCmd represents the fan control daemon.
	rootCmd = &cobra.Command{
		Use:   "fanctl",
		Short: "Drive server fan zones from the hottest temperature sensor.",
		Long: `Runs the closed-loop fan controller.

Sensor probes poll the BMC through "ipmitool sensor" and, when configured,
stream GPU temperatures from "nvidia-smi dmon". Every interval the controller
takes the hottest reading, maps it through the fan curve (by default
(2x - 60)% clamped to 20-100%) and sets every fan zone through "ipmitool raw".

Must run as root. The BMC is switched to full fan mode at startup so it does
not override the speeds fanctl sets. Without a config file the reference
setup is used.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &controller.Options{
				ConfigPath: configPath,
				LogLevel:   logLevel,
				DryRun:     dryRun,
			}

			return controller.Run(ctx, options)
		},
	}
)

// Execute runs the fanctl CLI. A privilege failure exits with
// ExitCodeNoPermission, any other error with 1.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, thermal.ErrStartupPrivilege) {
		return ExitCodeNoPermission
	}

	return 1
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	// Hidden dry-run flag for trying a config on a machine without a BMC.
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log fan commands instead of sending them")

	err := rootCmd.Flags().MarkHidden("dry-run")
	if err != nil {
		panic(err)
	}

	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(newCurveCommand(), newStatusCommand(), newHealthCommand(), newInitConfigCommand())
}
