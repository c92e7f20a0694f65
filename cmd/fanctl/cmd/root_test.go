package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/fanctl/internal/config"
	"github.com/oshokin/fanctl/internal/domain/thermal"
	"github.com/oshokin/fanctl/internal/sensor"
)

// TestExitCode maps the privilege failure to EX_NOPERM.
func TestExitCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, ExitCodeNoPermission, exitCode(fmt.Errorf("startup: %w", thermal.ErrStartupPrivilege)))
	require.Equal(t, 1, exitCode(thermal.ErrInvalidReading))
}

// TestCurveCommand evaluates the reference curve without a config file.
func TestCurveCommand(t *testing.T) {
	configPath = filepath.Join(t.TempDir(), "missing.yaml")

	var out bytes.Buffer

	command := newCurveCommand()
	command.SetOut(&out)
	command.SetArgs([]string{"25", "45", "90"})

	require.NoError(t, command.Execute())
	require.Equal(t, "25.0°C -> 20% (0x14)\n45.0°C -> 30% (0x1e)\n90.0°C -> 100% (0x64)\n", out.String())

	command.SetArgs([]string{"hot"})
	require.Error(t, command.Execute())
}

// TestInitConfigCommand writes a loadable config and refuses to clobber it.
func TestInitConfigCommand(t *testing.T) {
	configPath = filepath.Join(t.TempDir(), "fanctl.yaml")

	command := newInitConfigCommand()
	command.SetOut(new(bytes.Buffer))
	command.SetArgs([]string{"--gpu"})
	require.NoError(t, command.Execute())

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 2)
	require.Equal(t, sensor.ParserAccelerator, cfg.Sources[1].Parser)

	command = newInitConfigCommand()
	command.SetOut(new(bytes.Buffer))
	command.SetArgs([]string{})
	require.ErrorIs(t, command.Execute(), errConfigExists)

	command = newInitConfigCommand()
	command.SetOut(new(bytes.Buffer))
	command.SetArgs([]string{"--force"})
	require.NoError(t, command.Execute())

	cfg, err = config.Load(configPath)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)
}

// TestPrintStatus renders readings and zone outcomes.
func TestPrintStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cpu, err := thermal.NewReading("cpu", 55, now)
	require.NoError(t, err)

	var out bytes.Buffer
	printStatus(&out, &thermal.CycleStatus{
		Timestamp: now,
		Hottest:   cpu,
		Percent:   50,
		Readings:  []thermal.Reading{cpu},
		Zones: []thermal.ZoneOutcome{
			{Zone: "0x00", Percent: 50},
			{Zone: "0x01", Percent: 50, Error: "exit status 1"},
		},
	})

	require.Contains(t, out.String(), "Temperature: 55.0 (cpu), fan speed: 50%")
	require.Contains(t, out.String(), "zone 0x00 -> 50%: ok")
	require.Contains(t, out.String(), "zone 0x01 -> 50%: exit status 1")

	out.Reset()
	printStatus(&out, &thermal.CycleStatus{Timestamp: now, Skipped: thermal.SkipNoReadings})
	require.Contains(t, out.String(), "Skipped: "+thermal.SkipNoReadings)
}
