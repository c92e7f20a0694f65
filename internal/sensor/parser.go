package sensor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oshokin/fanctl/internal/domain/thermal"
)

const (
	// ParserBaseboard parses `ipmitool sensor` tables.
	ParserBaseboard = "baseboard"
	// ParserAccelerator parses `nvidia-smi dmon` rows.
	ParserAccelerator = "accelerator"

	// DefaultAcceleratorPrefix is prepended to the GPU index to form a table key.
	DefaultAcceleratorPrefix = "gpu"
	// DefaultAcceleratorColumn is the gtemp column of `nvidia-smi dmon -s p`.
	DefaultAcceleratorColumn = 2
)

var (
	errUnknownParser = errors.New("unknown parser")
	errShortRow      = errors.New("row has too few columns")
)

// DefaultBaseboardLabels maps ipmitool sensor names to table keys.
// Supermicro X9-X11 boards expose these three temperature sensors.
func DefaultBaseboardLabels() map[string]string {
	return map[string]string{
		"CPU Temp":        "cpu",
		"System Temp":     "system",
		"Peripheral Temp": "peripheral",
	}
}

// LineParser turns one line of raw tool output into a table entry.
// ok is false for lines that carry no reading (headers, unrelated sensors);
// err is set for lines that should carry one but are malformed.
type LineParser interface {
	ParseLine(line string) (sourceID string, value float64, ok bool, err error)
}

// BaseboardParser reads pipe-separated `ipmitool sensor` rows:
//
//	CPU Temp         | 45.000     | degrees C  | ok    | ...
//
// Only rows whose name is in Labels are considered.
type BaseboardParser struct {
	Labels map[string]string
}

// ParseLine implements LineParser.
func (p BaseboardParser) ParseLine(line string) (string, float64, bool, error) {
	columns := strings.Split(line, "|")

	sourceID, known := p.Labels[strings.TrimSpace(columns[0])]
	if !known {
		return "", 0, false, nil
	}

	if len(columns) < 2 {
		return "", 0, false, errShortRow
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(columns[1]), 64)
	if err != nil {
		return "", 0, false, fmt.Errorf("temperature: %w", err)
	}

	return sourceID, value, true, nil
}

// AcceleratorParser reads whitespace-separated `nvidia-smi dmon` rows:
//
//	# gpu   pwr  gtemp  mtemp
//	# Idx     W      C      C
//	    0    43     35      -
//
// Rows not starting with a GPU index (comments, banners, errors) are ignored.
type AcceleratorParser struct {
	// Prefix forms the table key with the GPU index, "gpu" -> "gpu0".
	Prefix string
	// Column is the zero-based index of the temperature field.
	Column int
}

// ParseLine implements LineParser.
func (p AcceleratorParser) ParseLine(line string) (string, float64, bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !isIndex(fields[0]) {
		return "", 0, false, nil
	}

	if len(fields) <= p.Column {
		return "", 0, false, errShortRow
	}

	value, err := strconv.ParseFloat(fields[p.Column], 64)
	if err != nil {
		return "", 0, false, fmt.Errorf("temperature: %w", err)
	}

	return p.Prefix + fields[0], value, true, nil
}

// Owns reports whether key has the form this parser writes, Prefix followed by
// a GPU index.
func (p AcceleratorParser) Owns(key string) bool {
	index, ok := strings.CutPrefix(key, p.Prefix)

	return ok && isIndex(index)
}

// isIndex reports whether s is a non-empty run of ASCII digits.
func isIndex(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return s != ""
}

// NewParser builds the parser registered under kind. labels applies to the
// baseboard parser and prefix to the accelerator parser; empty values select
// the defaults.
func NewParser(kind string, labels map[string]string, prefix string) (LineParser, error) {
	switch kind {
	case ParserBaseboard:
		if len(labels) == 0 {
			labels = DefaultBaseboardLabels()
		}

		return BaseboardParser{Labels: labels}, nil
	case ParserAccelerator:
		if prefix == "" {
			prefix = DefaultAcceleratorPrefix
		}

		return AcceleratorParser{
			Prefix: prefix,
			Column: DefaultAcceleratorColumn,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownParser, kind)
	}
}

// ParseLineReading parses a single line into a validated Reading.
func ParseLineReading(source string, parser LineParser, line string, now time.Time) (thermal.Reading, bool, error) {
	sourceID, value, ok, err := parser.ParseLine(line)
	if err != nil {
		return thermal.Reading{}, false, &thermal.SensorParseError{Source: source, Line: line, Err: err}
	}

	if !ok {
		return thermal.Reading{}, false, nil
	}

	reading, err := thermal.NewReading(sourceID, value, now)
	if err != nil {
		return thermal.Reading{}, false, &thermal.SensorParseError{Source: source, Line: line, Err: err}
	}

	return reading, true, nil
}

// ParseOutput parses every line of raw. Malformed lines are reported and
// skipped; they never abort the rest of the output.
func ParseOutput(source string, raw []byte, parser LineParser, now time.Time) ([]thermal.Reading, []error) {
	var (
		result  []thermal.Reading
		errs    []error
		scanner = bufio.NewScanner(bytes.NewReader(raw))
	)

	for scanner.Scan() {
		reading, ok, err := ParseLineReading(source, parser, scanner.Text(), now)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		if ok {
			result = append(result, reading)
		}
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, &thermal.SensorParseError{Source: source, Err: err})
	}

	return result, errs
}
