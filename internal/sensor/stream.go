package sensor

import (
	"bufio"
	"context"
	"errors"
	"time"

	"github.com/oshokin/fanctl/internal/domain/thermal"
	"github.com/oshokin/fanctl/internal/logger"
	"github.com/oshokin/fanctl/internal/tools"
)

// idleIntervals is how many silent intervals a stream gets by default.
const idleIntervals = 3

var (
	errStreamIdle  = errors.New("no output within idle timeout")
	errStreamEnded = errors.New("stream ended")
)

// StreamingProbe keeps a line-emitting daemon running and publishes every
// reading it prints. A daemon that exits or goes silent is killed and
// restarted with backoff.
type StreamingProbe struct {
	opts    Options
	runner  tools.StreamRunner
	backoff Backoff
}

// NewStreamingProbe creates a streaming probe. Options are expected to be valid.
func NewStreamingProbe(opts Options, runner tools.StreamRunner) *StreamingProbe {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = idleIntervals * opts.Interval
	}

	return &StreamingProbe{
		opts:    opts,
		runner:  runner,
		backoff: NewBackoff(opts.Interval),
	}
}

// Name returns the source name.
func (p *StreamingProbe) Name() string {
	return p.opts.Name
}

// Run restarts the stream until ctx is cancelled.
func (p *StreamingProbe) Run(ctx context.Context, table Publisher) error {
	attempt := 0

	for {
		received, err := p.session(ctx, table)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A session that produced readings was healthy; start backoff over.
		if received {
			attempt = 0
		}

		attempt++
		delay := p.backoff.Delay(attempt)

		logger.ErrorKV(ctx, "Sensor stream stopped, restarting",
			"source", p.opts.Name,
			"error", &thermal.SensorQueryError{Source: p.opts.Name, Err: err},
			"attempt", attempt,
			"delay", delay,
		)

		if err = sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// session runs the command once and reads it until it ends, goes idle or
// ctx is cancelled. received reports whether any reading was published.
func (p *StreamingProbe) session(ctx context.Context, table Publisher) (bool, error) {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := p.runner.Stream(sessionCtx, p.opts.Command, p.opts.Args...)
	if err != nil {
		return false, err
	}

	logger.InfoKV(ctx, "Sensor stream started", "source", p.opts.Name, "command", p.opts.Command)

	lines := make(chan string)
	readerDone := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(stream.Stdout())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-sessionCtx.Done():
				readerDone <- nil

				return
			}
		}

		readerDone <- scanner.Err()
	}()

	received, sessionErr := p.consume(ctx, lines, table)

	cancel()

	_ = stream.Kill()
	waitErr := stream.Wait()

	// The reader exits once the pipe is closed by Wait.
	readErr := <-readerDone

	switch {
	case sessionErr != nil:
		return received, sessionErr
	case readErr != nil:
		return received, readErr
	case waitErr != nil && ctx.Err() == nil:
		return received, waitErr
	default:
		return received, errStreamEnded
	}
}

// consume publishes lines until the channel closes, the idle timer fires or
// ctx is cancelled.
func (p *StreamingProbe) consume(ctx context.Context, lines <-chan string, table Publisher) (bool, error) {
	idle := time.NewTimer(p.opts.IdleTimeout)
	defer idle.Stop()

	received := false

	for {
		select {
		case <-ctx.Done():
			return received, ctx.Err()
		case <-idle.C:
			return received, errStreamIdle
		case line, ok := <-lines:
			if !ok {
				return received, nil
			}

			idle.Reset(p.opts.IdleTimeout)

			reading, parsed, err := ParseLineReading(p.opts.Name, p.opts.Parser, line, p.opts.Now())
			if err != nil {
				logger.WarnKV(ctx, "Skipping malformed sensor line", "source", p.opts.Name, "error", err)

				continue
			}

			if parsed {
				table.Set(reading)

				received = true
			}
		}
	}
}
