//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

// TestFindProcesses_Self never reports the calling process.
func TestFindProcesses_Self(t *testing.T) {
	t.Parallel()

	self := filepath.Base(os.Args[0])

	found, err := FindProcesses([]string{self})
	require.NoError(t, err)

	for _, p := range found {
		require.NotEqual(t, os.Getpid(), p.PID)
	}

	found, err = FindProcesses(nil)
	require.NoError(t, err)
	require.Empty(t, found)
}

// fakeProcess implements ps.Process.
type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

// TestFindProcesses_Matches filters by executable name and skips this process.
func TestFindProcesses_Matches(t *testing.T) {
	t.Parallel()

	list := func() ([]ps.Process, error) {
		return []ps.Process{
			fakeProcess{pid: 10, name: "fancontrol"},
			fakeProcess{pid: 11, name: "sshd"},
			fakeProcess{pid: os.Getpid(), name: "fancontrol"},
			fakeProcess{pid: 12, name: "ipmi-fan-control"},
		}, nil
	}

	found, err := findProcesses([]string{"fancontrol", "ipmi-fan-control"}, list)
	require.NoError(t, err)
	require.Equal(t, []Process{{PID: 10, Executable: "fancontrol"}, {PID: 12, Executable: "ipmi-fan-control"}}, found)

	_, err = findProcesses([]string{"x"}, func() ([]ps.Process, error) { return nil, errors.New("no /proc") })
	require.Error(t, err)
}
