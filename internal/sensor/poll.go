package sensor

import (
	"context"
	"time"

	"github.com/oshokin/fanctl/internal/domain/thermal"
	"github.com/oshokin/fanctl/internal/logger"
	"github.com/oshokin/fanctl/internal/tools"
)

// PollingProbe runs a snapshot command on a fixed interval.
type PollingProbe struct {
	opts   Options
	runner tools.CommandRunner
}

// NewPollingProbe creates a polling probe. Options are expected to be valid.
func NewPollingProbe(opts Options, runner tools.CommandRunner) *PollingProbe {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &PollingProbe{
		opts:   opts,
		runner: runner,
	}
}

// Name returns the source name.
func (p *PollingProbe) Name() string {
	return p.opts.Name
}

// Run polls until ctx is cancelled. Query failures are logged and retried on
// the next interval; the table keeps the last good readings meanwhile.
func (p *PollingProbe) Run(ctx context.Context, table Publisher) error {
	for {
		if err := p.Poll(ctx, table); err != nil && ctx.Err() == nil {
			logger.ErrorKV(ctx, "Sensor query failed", "source", p.opts.Name, "error", err)
		}

		if err := sleep(ctx, p.opts.Interval); err != nil {
			return err
		}
	}
}

// Poll runs the command once and publishes every parseable reading.
// It returns a *thermal.SensorQueryError when the whole query failed.
func (p *PollingProbe) Poll(ctx context.Context, table Publisher) error {
	queryCtx, cancel := p.queryContext(ctx)
	defer cancel()

	out, err := tools.Output(queryCtx, p.runner, p.opts.Command, p.opts.Args...)
	if err != nil {
		return &thermal.SensorQueryError{Source: p.opts.Name, Err: err}
	}

	readings, parseErrs := ParseOutput(p.opts.Name, out, p.opts.Parser, p.opts.Now())
	for _, parseErr := range parseErrs {
		logger.WarnKV(ctx, "Skipping malformed sensor line", "source", p.opts.Name, "error", parseErr)
	}

	for _, r := range readings {
		table.Set(r)
	}

	logger.DebugKV(ctx, "Sensor polled", "source", p.opts.Name, "readings", len(readings))

	return nil
}

// queryContext bounds one poll by the configured timeout.
func (p *PollingProbe) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, p.opts.Timeout)
}
