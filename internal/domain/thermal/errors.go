package thermal

import (
	"errors"
	"fmt"
)

var (
	// ErrStartupPrivilege means the process cannot talk to the BMC. Fatal.
	ErrStartupPrivilege = errors.New("insufficient privileges to control fans")
	// ErrInvalidReading is returned for temperatures that cannot be acted upon.
	ErrInvalidReading = errors.New("invalid temperature reading")
)

// SensorQueryError wraps a failed query of a whole source.
// The source's last known reading stays in the table.
type SensorQueryError struct {
	Source string
	Err    error
}

func (e *SensorQueryError) Error() string {
	return fmt.Sprintf("query sensor %s: %v", e.Source, e.Err)
}

func (e *SensorQueryError) Unwrap() error {
	return e.Err
}

// SensorParseError reports one malformed line of a source's output.
type SensorParseError struct {
	Source string
	Line   string
	Err    error
}

func (e *SensorParseError) Error() string {
	return fmt.Sprintf("parse sensor %s line %q: %v", e.Source, e.Line, e.Err)
}

func (e *SensorParseError) Unwrap() error {
	return e.Err
}

// ActuationError wraps a failed fan command for one zone.
type ActuationError struct {
	Zone string
	Err  error
}

func (e *ActuationError) Error() string {
	return fmt.Sprintf("set zone %s: %v", e.Zone, e.Err)
}

func (e *ActuationError) Unwrap() error {
	return e.Err
}
