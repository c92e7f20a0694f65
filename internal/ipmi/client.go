package ipmi

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/oshokin/fanctl/internal/domain/thermal"
	"github.com/oshokin/fanctl/internal/tools"
)

// DefaultPath is the ipmitool binary looked up in PATH.
const DefaultPath = "ipmitool"

var (
	// DefaultZonePrefix sets a zone's duty cycle on Supermicro boards.
	//nolint:gochecknoglobals // Read-only defaults, copied before use.
	DefaultZonePrefix = []string{"0x30", "0x70", "0x66", "0x01"}
	// DefaultFullMode switches Supermicro BMCs to "full" fan mode.
	//nolint:gochecknoglobals // Read-only defaults, copied before use.
	DefaultFullMode = []string{"0x30", "0x45", "0x01", "0x01"}
	// DefaultZones are the CPU (0x00) and peripheral (0x01) zones.
	//nolint:gochecknoglobals // Read-only defaults, copied before use.
	DefaultZones = []string{"0x01", "0x00"}

	errPercentRange = errors.New("percent must be within 0-100")
)

// Client issues raw fan commands.
type Client struct {
	// runner executes ipmitool.
	runner tools.CommandRunner
	// path is the ipmitool executable.
	path string
	// zonePrefix precedes the zone and percent bytes.
	zonePrefix []string
	// fullMode is the raw sequence sent once at startup.
	fullMode []string
	// timeout bounds every call.
	timeout time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithPath overrides the ipmitool executable.
func WithPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.path = path
		}
	}
}

// WithZonePrefix overrides the raw bytes preceding zone and percent.
func WithZonePrefix(prefix []string) Option {
	return func(c *Client) {
		if len(prefix) > 0 {
			c.zonePrefix = slices.Clone(prefix)
		}
	}
}

// WithFullMode overrides the raw sequence used to take over fan control.
func WithFullMode(sequence []string) Option {
	return func(c *Client) {
		if len(sequence) > 0 {
			c.fullMode = slices.Clone(sequence)
		}
	}
}

// WithCallTimeout bounds every ipmitool invocation.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient creates a client running ipmitool through runner.
func NewClient(runner tools.CommandRunner, opts ...Option) *Client {
	c := &Client{
		runner:     runner,
		path:       DefaultPath,
		zonePrefix: slices.Clone(DefaultZonePrefix),
		fullMode:   slices.Clone(DefaultFullMode),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetFullMode tells the BMC to stop adjusting fans on its own.
func (c *Client) SetFullMode(ctx context.Context) error {
	if err := c.raw(ctx, c.fullMode...); err != nil {
		return fmt.Errorf("set full fan mode: %w", err)
	}

	return nil
}

// SetZoneSpeed sets one zone's duty cycle.
func (c *Client) SetZoneSpeed(ctx context.Context, zone string, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: %d", errPercentRange, percent)
	}

	cmd := thermal.ActuationCommand{ZoneID: zone, Percent: percent}

	args := slices.Concat(c.zonePrefix, []string{cmd.ZoneID, cmd.Hex()})

	return c.raw(ctx, args...)
}

// raw runs `ipmitool raw <bytes...>`.
func (c *Client) raw(ctx context.Context, bytes ...string) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	args := append([]string{"raw"}, bytes...)

	_, err := tools.Output(callCtx, c.runner, c.path, args...)

	return err
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.timeout)
}
