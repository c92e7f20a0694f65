//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"slices"

	"github.com/mitchellh/go-ps"
)

// Process is a running program found in the process table.
type Process struct {
	PID        int
	Executable string
}

// FindProcesses returns the processes, other than this one, whose executable
// name is in names.
func FindProcesses(names []string) ([]Process, error) {
	return findProcesses(names, ps.Processes)
}

func findProcesses(names []string, list func() ([]ps.Process, error)) ([]Process, error) {
	if len(names) == 0 {
		return nil, nil
	}

	processList, err := list()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	var found []Process

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if !slices.Contains(names, process.Executable()) {
			continue
		}

		found = append(found, Process{
			PID:        process.Pid(),
			Executable: process.Executable(),
		})
	}

	return found, nil
}
