package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/fanctl/internal/api/grpc/health"
	"github.com/oshokin/fanctl/internal/config"
	"github.com/oshokin/fanctl/internal/service/common"
)

var (
	errNoHealthAddress = errors.New("health_address is not configured")
	errNotServing      = errors.New("control loop is not serving")
)

// newHealthCommand asks a running daemon whether its control loop is actuating.
func newHealthCommand() *cobra.Command {
	var timeout time.Duration

	command := &cobra.Command{
		Use:   "health [address]",
		Short: "Check that a running fanctl is setting fan speeds.",
		Long: `Queries the gRPC health endpoint of a running fanctl daemon.
Exits non-zero unless the control loop reports SERVING.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var address string
			if len(args) > 0 {
				address = args[0]
			} else {
				cfg, err := config.LoadOrDefault(configPath)
				if err != nil {
					return err
				}

				address = cfg.HealthAddress
			}

			if address == "" {
				return errNoHealthAddress
			}

			client, err := common.Dial(cmd.Context(), address, common.WithCallTimeout(timeout))
			if err != nil {
				return err
			}

			defer func() {
				_ = client.Close()
			}()

			serving, err := client.Check(cmd.Context(), health.ServiceName)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), serving.String())

			if serving != healthpb.HealthCheckResponse_SERVING {
				return errNotServing
			}

			return nil
		},
	}

	command.Flags().DurationVarP(&timeout, "timeout", "t", common.DefaultCallTimeout, "health check timeout")

	return command
}
