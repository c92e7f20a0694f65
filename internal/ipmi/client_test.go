package ipmi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/fanctl/internal/tools"
)

// recordingRunner records invocations and fails on demand.
type recordingRunner struct {
	calls    [][]string
	err      error
	deadline bool
}

func (r *recordingRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	r.calls = append(r.calls, append([]string{name}, args...))

	_, r.deadline = ctx.Deadline()

	if r.err != nil {
		return nil, []byte("Unable to send RAW command"), 1, r.err
	}

	return nil, nil, 0, nil
}

// TestClient_SetZoneSpeed builds the Supermicro raw command with a hex percent.
func TestClient_SetZoneSpeed(t *testing.T) {
	t.Parallel()

	runner := new(recordingRunner)
	client := NewClient(runner, WithCallTimeout(time.Second))

	require.NoError(t, client.SetZoneSpeed(context.Background(), "0x01", 80))
	require.NoError(t, client.SetZoneSpeed(context.Background(), "0x00", 20))

	require.Equal(t, [][]string{
		{"ipmitool", "raw", "0x30", "0x70", "0x66", "0x01", "0x01", "0x50"},
		{"ipmitool", "raw", "0x30", "0x70", "0x66", "0x01", "0x00", "0x14"},
	}, runner.calls)
	require.True(t, runner.deadline)
}

// TestClient_SetZoneSpeedRejectsRange never sends an out-of-range duty cycle.
func TestClient_SetZoneSpeedRejectsRange(t *testing.T) {
	t.Parallel()

	runner := new(recordingRunner)
	client := NewClient(runner)

	require.Error(t, client.SetZoneSpeed(context.Background(), "0x00", 101))
	require.Error(t, client.SetZoneSpeed(context.Background(), "0x00", -1))
	require.Empty(t, runner.calls)
}

// TestClient_SetFullMode honours overrides and wraps failures.
func TestClient_SetFullMode(t *testing.T) {
	t.Parallel()

	runner := &recordingRunner{err: errors.New("exit status 1")}
	client := NewClient(runner,
		WithPath("/usr/local/bin/ipmitool"),
		WithFullMode([]string{"0x30", "0x45", "0x01", "0x04"}),
		WithZonePrefix(nil),
	)

	err := client.SetFullMode(context.Background())

	var cmdErr *tools.CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.Equal(t, 1, cmdErr.ExitCode)
	require.Contains(t, err.Error(), "Unable to send RAW command")
	require.Equal(t, []string{"/usr/local/bin/ipmitool", "raw", "0x30", "0x45", "0x01", "0x04"}, runner.calls[0])
	require.False(t, runner.deadline)

	// Nil prefix keeps the default.
	runner.err = nil
	require.NoError(t, client.SetZoneSpeed(context.Background(), "0x00", 100))
	require.Equal(t, []string{"/usr/local/bin/ipmitool", "raw", "0x30", "0x70", "0x66", "0x01", "0x00", "0x64"}, runner.calls[1])
}
