package integration

import (
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// sensorTable is what the fake `ipmitool sensor` prints.
const sensorTable = `CPU Temp         | 48.000     | degrees C  | ok
System Temp      | 31.000     | degrees C  | ok
Peripheral Temp  | 39.000     | degrees C  | ok
FAN1             | 1400.000   | RPM        | ok
`

// reservePort returns a free loopback address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// requireShell skips the test on systems without a POSIX shell.
func requireShell(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh is not available")
	}
}

// writeScript creates an executable shell script in dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755)) //nolint:gosec // Test fixture must be executable.

	return path
}

// fakeIPMITool answers `sensor` with sensorTable and appends every other
// invocation to calls.
func fakeIPMITool(t *testing.T, dir, calls string) string {
	t.Helper()

	table := filepath.Join(dir, "sensor.txt")
	require.NoError(t, os.WriteFile(table, []byte(sensorTable), 0o600))

	return writeScript(t, dir, "ipmitool", `
if [ "$1" = "sensor" ]; then
	cat '`+table+`'
	exit 0
fi
echo "$@" >> '`+calls+`'
`)
}

// fakeNvidiaSMI streams dmon rows for two GPUs until killed.
func fakeNvidiaSMI(t *testing.T, dir string) string {
	t.Helper()

	return writeScript(t, dir, "nvidia-smi", `
echo "# gpu   pwr gtemp mtemp"
echo "# Idx     W     C     C"
while :; do
	echo "    0    71    66     -"
	echo "    1    80    84     -"
	sleep 0.05
done
`)
}
