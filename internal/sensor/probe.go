package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/fanctl/internal/domain/thermal"
	"github.com/oshokin/fanctl/internal/tools"
)

// Kind selects how a probe talks to its source.
type Kind string

const (
	// KindPoll runs the command once per interval.
	KindPoll Kind = "poll"
	// KindStream keeps the command running and reads it line by line.
	KindStream Kind = "stream"
)

var (
	errNameRequired     = errors.New("probe name must be provided")
	errCommandRequired  = errors.New("probe command must be provided")
	errIntervalRequired = errors.New("probe interval must be positive")
	errParserRequired   = errors.New("probe parser must be provided")
	errUnknownKind      = errors.New("unknown probe kind")
)

// Publisher receives parsed readings. The shared table implements it.
type Publisher interface {
	Set(r thermal.Reading)
}

// Runner can both run and stream commands.
type Runner interface {
	tools.CommandRunner
	tools.StreamRunner
}

// Probe keeps one source's readings flowing into a Publisher.
// Run returns only when ctx is cancelled or the probe cannot continue.
type Probe interface {
	Name() string
	Run(ctx context.Context, table Publisher) error
}

// Options describes one probe.
type Options struct {
	// Name identifies the source in logs, e.g. "baseboard".
	Name string
	// Kind is KindPoll or KindStream.
	Kind Kind
	// Command and Args are the tool invocation.
	Command string
	Args    []string
	// Parser turns output lines into readings.
	Parser LineParser
	// Interval is the poll period, or the expected line period of a stream.
	Interval time.Duration
	// Timeout bounds one poll.
	Timeout time.Duration
	// IdleTimeout bounds the silence of a stream before it is restarted.
	IdleTimeout time.Duration
	// Now is the reading clock; time.Now when nil.
	Now func() time.Time
}

// New builds the probe described by opts.
//
//nolint:ireturn // Callers only need the Probe behaviour.
func New(opts Options, runner Runner) (Probe, error) {
	switch {
	case opts.Name == "":
		return nil, errNameRequired
	case opts.Command == "":
		return nil, fmt.Errorf("%s: %w", opts.Name, errCommandRequired)
	case opts.Interval <= 0:
		return nil, fmt.Errorf("%s: %w", opts.Name, errIntervalRequired)
	case opts.Parser == nil:
		return nil, fmt.Errorf("%s: %w", opts.Name, errParserRequired)
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	switch opts.Kind {
	case KindPoll, "":
		return NewPollingProbe(opts, runner), nil
	case KindStream:
		return NewStreamingProbe(opts, runner), nil
	default:
		return nil, fmt.Errorf("%s: %w %q", opts.Name, errUnknownKind, opts.Kind)
	}
}

// sleep waits for d or ctx, whichever ends first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
