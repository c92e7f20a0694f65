package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/oshokin/fanctl/internal/api/grpc/health"
	"github.com/oshokin/fanctl/internal/config"
	"github.com/oshokin/fanctl/internal/domain/thermal"
	"github.com/oshokin/fanctl/internal/ipmi"
	"github.com/oshokin/fanctl/internal/logger"
	"github.com/oshokin/fanctl/internal/repository/readings"
	"github.com/oshokin/fanctl/internal/repository/status"
	"github.com/oshokin/fanctl/internal/sensor"
	"github.com/oshokin/fanctl/internal/service/common"
	"github.com/oshokin/fanctl/internal/tools"
)

// Options controls the fanctl daemon.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// LogLevel overrides the configured log level when set.
	LogLevel string
	// DryRun logs fan commands instead of sending them and skips the privilege check.
	DryRun bool
	// Runner executes external tools; tools.ExecRunner when nil.
	Runner sensor.Runner
}

// Run starts the probes and the control loop and blocks until ctx is
// cancelled. It returns early only for startup failures, such as missing
// root privileges (thermal.ErrStartupPrivilege).
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "fanctl")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err = applyLogLevel(cfg, opts.LogLevel); err != nil {
		return err
	}

	runner := opts.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}

	if opts.DryRun {
		logger.Info(ctx, "Dry run: fan commands are logged, not sent")
	} else {
		actor, err := common.VerifyPrivilege()
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Running with fan control privileges", "user", actor.Username, "host", actor.Hostname)
	}

	warnCompetingControllers(ctx, cfg.CompetingControllers)

	client := ipmi.NewClient(runner,
		ipmi.WithPath(cfg.IPMITool.Path),
		ipmi.WithZonePrefix(cfg.IPMITool.ZonePrefix),
		ipmi.WithFullMode(cfg.IPMITool.FullMode),
		ipmi.WithCallTimeout(cfg.CommandTimeout),
	)

	var actuator Actuator = client
	if opts.DryRun {
		actuator = dryRunActuator{}
	} else if err = client.SetFullMode(ctx); err != nil {
		// The BMC may still override our speeds, but any cooling decision beats none.
		logger.ErrorKV(ctx, "Failed to switch BMC to full fan mode", "error", err)
	}

	probes, err := BuildProbes(cfg, runner)
	if err != nil {
		return err
	}

	table := readings.NewTable()
	reporters := make([]Reporter, 0, 2)

	var wg sync.WaitGroup

	if cfg.HealthAddress != "" {
		healthServer := health.NewServer()
		reporters = append(reporters, healthServer)

		wg.Go(func() {
			if err := healthServer.ListenAndServe(logger.WithName(ctx, "health"), cfg.HealthAddress); err != nil {
				logger.ErrorKV(ctx, "Health endpoint stopped", "error", err)
			}
		})
	}

	if cfg.StatusFile != "" {
		reporters = append(reporters, &statusReporter{repo: status.NewFileRepository(cfg.StatusFile)})
	}

	probeCtx := logger.WithName(ctx, "probe")

	for _, probe := range probes {
		wg.Go(func() {
			sensor.Supervise(probeCtx, probe, table, sensor.NewBackoff(cfg.Interval))
		})
	}

	logger.InfoKV(ctx, "Fan controller started",
		"interval", cfg.Interval.String(),
		"zones", cfg.IPMITool.Zones,
		"probes", len(probes),
		"stale_after", cfg.StaleAfter.String(),
	)

	loop := NewLoop(table, actuator, LoopOptions{
		Interval:   cfg.Interval,
		Curve:      cfg.Curve,
		Zones:      cfg.IPMITool.Zones,
		StaleAfter: cfg.StaleAfter,
		Reporters:  reporters,
	})

	loop.Run(logger.WithName(ctx, "loop"))

	// Probes and the health endpoint observe the same ctx.
	wg.Wait()

	logger.Info(ctx, "Fan controller stopped")

	return nil
}

// BuildProbes creates one probe per configured source.
func BuildProbes(cfg *config.Config, runner sensor.Runner) ([]sensor.Probe, error) {
	probes := make([]sensor.Probe, 0, len(cfg.Sources))

	for _, source := range cfg.Sources {
		parser, err := sensor.NewParser(source.Parser, source.Labels, source.Prefix)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", source.Name, err)
		}

		interval := source.Interval
		if interval <= 0 {
			interval = cfg.Interval
		}

		probe, err := sensor.New(sensor.Options{
			Name:        source.Name,
			Kind:        sensor.Kind(source.Kind),
			Command:     source.Command,
			Args:        source.Args,
			Parser:      parser,
			Interval:    interval,
			Timeout:     cfg.CommandTimeout,
			IdleTimeout: source.IdleTimeout,
		}, runner)
		if err != nil {
			return nil, fmt.Errorf("build probe: %w", err)
		}

		probes = append(probes, probe)
	}

	return probes, nil
}

// applyLogLevel sets the global level from the override or the config.
func applyLogLevel(cfg *config.Config, override string) error {
	raw := cfg.LogLevel
	if override != "" {
		raw = override
	}

	level, ok := logger.ParseLogLevel(raw)
	if !ok {
		return fmt.Errorf("unknown log level %q", raw)
	}

	logger.SetLevel(level)

	return nil
}

// warnCompetingControllers logs other fan daemons that could fight over the fans.
func warnCompetingControllers(ctx context.Context, names []string) {
	found, err := common.FindProcesses(names)
	if err != nil {
		logger.WarnKV(ctx, "Unable to inspect process table", "error", err)

		return
	}

	for _, p := range found {
		logger.WarnKV(ctx, "Another fan controller is running", "pid", p.PID, "executable", p.Executable)
	}
}

// statusReporter writes every cycle to the status file.
type statusReporter struct {
	repo status.Repository
}

func (r *statusReporter) Report(ctx context.Context, cycle *thermal.CycleStatus) {
	if err := r.repo.Save(ctx, cycle); err != nil {
		logger.ErrorKV(ctx, "Failed to save status", "error", err)
	}
}

// dryRunActuator logs commands instead of sending them.
type dryRunActuator struct{}

func (dryRunActuator) SetZoneSpeed(ctx context.Context, zone string, percent int) error {
	logger.InfoKV(ctx, "Dry run: would set zone", "zone", zone, "percent", percent)

	return nil
}
