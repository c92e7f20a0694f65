package controller

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/fanctl/internal/domain/thermal"
	"github.com/oshokin/fanctl/internal/logger"
)

// Snapshotter is the read side of the shared temperature table.
type Snapshotter interface {
	Snapshot() map[string]thermal.Reading
}

// Actuator sets one fan zone.
type Actuator interface {
	SetZoneSpeed(ctx context.Context, zone string, percent int) error
}

// Reporter receives every finished cycle.
type Reporter interface {
	Report(ctx context.Context, status *thermal.CycleStatus)
}

// LoopOptions configures a Loop.
type LoopOptions struct {
	// Interval is the fixed cycle period.
	Interval time.Duration
	// Curve maps the hottest reading to a duty cycle.
	Curve thermal.FanCurve
	// Zones are set in this order every cycle.
	Zones []string
	// StaleAfter excludes older readings from the max; zero keeps them.
	StaleAfter time.Duration
	// Reporters observe finished cycles.
	Reporters []Reporter
	// Now is the loop clock; time.Now when nil.
	Now func() time.Time
}

// Loop is the control loop.
type Loop struct {
	table    Snapshotter
	actuator Actuator
	opts     LoopOptions
}

// NewLoop creates a control loop reading table and driving actuator.
func NewLoop(table Snapshotter, actuator Actuator, opts LoopOptions) *Loop {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	opts.Zones = slices.Clone(opts.Zones)

	return &Loop{
		table:    table,
		actuator: actuator,
		opts:     opts,
	}
}

// Run executes a cycle immediately and then once per interval until ctx is
// cancelled. A cycle already in progress finishes before Run returns.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()

	// Commands of the last cycle must reach the BMC even if shutdown starts mid-cycle.
	cycleCtx := context.WithoutCancel(ctx)

	for {
		l.Cycle(cycleCtx)

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Control loop stopped")

			return
		case <-ticker.C:
		}
	}
}

// Cycle runs one snapshot-compute-actuate step and returns its summary.
func (l *Loop) Cycle(ctx context.Context) *thermal.CycleStatus {
	now := l.opts.Now()
	status := &thermal.CycleStatus{Timestamp: now}

	defer l.report(ctx, status)

	snapshot := l.table.Snapshot()
	if len(snapshot) == 0 {
		status.Skipped = thermal.SkipNoReadings
		logger.DebugKV(ctx, "Skipping cycle", "reason", status.Skipped)

		return status
	}

	status.Readings = sortedReadings(snapshot)

	fresh := thermal.Fresh(snapshot, l.opts.StaleAfter, now)
	if dropped := len(snapshot) - len(fresh); dropped > 0 {
		logger.WarnKV(ctx, "Ignoring stale readings", "stale", staleIDs(snapshot, fresh), "stale_after", l.opts.StaleAfter)
	}

	hottest, ok := thermal.Max(fresh)
	if !ok {
		status.Skipped = thermal.SkipStaleReadings
		logger.WarnKV(ctx, "Skipping cycle", "reason", status.Skipped)

		return status
	}

	status.Hottest = hottest

	percent, err := l.opts.Curve.Evaluate(hottest.Value)
	if err != nil {
		status.Skipped = thermal.SkipInvalid
		logger.ErrorKV(ctx, "Skipping cycle", "reason", status.Skipped, "source", hottest.SourceID, "error", err)

		return status
	}

	status.Percent = percent

	l.logStatus(ctx, hottest, percent)

	status.Zones = l.actuate(ctx, thermal.CommandsFor(l.opts.Zones, percent))

	return status
}

// actuate sends the commands one by one. A failing zone does not stop the rest.
func (l *Loop) actuate(ctx context.Context, commands []thermal.ActuationCommand) []thermal.ZoneOutcome {
	outcomes := make([]thermal.ZoneOutcome, 0, len(commands))

	for _, cmd := range commands {
		outcome := thermal.ZoneOutcome{Zone: cmd.ZoneID, Percent: cmd.Percent}

		if err := l.actuator.SetZoneSpeed(ctx, cmd.ZoneID, cmd.Percent); err != nil {
			actErr := &thermal.ActuationError{Zone: cmd.ZoneID, Err: err}
			outcome.Error = actErr.Error()

			logger.ErrorKV(ctx, "Fan command failed", "zone", cmd.ZoneID, "percent", cmd.Percent, "error", actErr)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

// logStatus prints the per-cycle status line. It stays at info even when the
// configured level hides other info lines.
func (l *Loop) logStatus(ctx context.Context, hottest thermal.Reading, percent int) {
	statusLogger := logger.FromContext(ctx).WithOptions(logger.WithLevel(zapcore.InfoLevel))

	statusLogger.Infow(
		fmt.Sprintf("Temperature: %.1f, fan speed: %d (%s)",
			hottest.Value, percent, thermal.ActuationCommand{Percent: percent}.Hex()),
		"temperature", hottest.Value,
		"source", hottest.SourceID,
		"percent", percent,
	)
}

// report hands the status to every reporter; reporters must not block for long.
func (l *Loop) report(ctx context.Context, status *thermal.CycleStatus) {
	for _, r := range l.opts.Reporters {
		r.Report(ctx, status.Clone())
	}
}

func sortedReadings(snapshot map[string]thermal.Reading) []thermal.Reading {
	ids := slices.Sorted(maps.Keys(snapshot))
	result := make([]thermal.Reading, 0, len(ids))

	for _, id := range ids {
		result = append(result, snapshot[id])
	}

	return result
}

func staleIDs(snapshot, fresh map[string]thermal.Reading) string {
	var ids []string

	for id := range snapshot {
		if _, ok := fresh[id]; !ok {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)

	return strings.Join(ids, ",")
}
