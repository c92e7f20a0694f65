package thermal

import (
	"errors"
	"fmt"
	"time"
)

// errEmptySourceID is returned when a reading is built without a source.
var errEmptySourceID = errors.New("source id must be provided")

// Reading is one temperature sample. It is a value type and is never mutated
// after construction; a newer Reading from the same source supersedes it.
type Reading struct {
	// SourceID is the table key, e.g. "cpu" or "gpu0".
	SourceID string
	// Value is the temperature in degrees Celsius.
	Value float64
	// ObservedAt is when the probe parsed the sample.
	ObservedAt time.Time
}

// NewReading validates and builds a Reading.
func NewReading(sourceID string, value float64, observedAt time.Time) (Reading, error) {
	if sourceID == "" {
		return Reading{}, errEmptySourceID
	}

	if err := CheckTemperature(value); err != nil {
		return Reading{}, fmt.Errorf("source %s: %w", sourceID, err)
	}

	return Reading{
		SourceID:   sourceID,
		Value:      value,
		ObservedAt: observedAt,
	}, nil
}

// Age returns how old the reading is at now.
func (r Reading) Age(now time.Time) time.Duration {
	return now.Sub(r.ObservedAt)
}

// String renders the reading for log lines.
func (r Reading) String() string {
	return fmt.Sprintf("%s=%.1f", r.SourceID, r.Value)
}

// Max returns the hottest reading. The second value is false for an empty input.
// Ties resolve to whichever reading is met first; only the value matters.
func Max(readings map[string]Reading) (Reading, bool) {
	var (
		hottest Reading
		found   bool
	)

	for _, r := range readings {
		if !found || r.Value > hottest.Value {
			hottest = r
			found = true
		}
	}

	return hottest, found
}

// Fresh returns the readings not older than maxAge at now.
// A non-positive maxAge disables the filter and returns readings unchanged.
func Fresh(readings map[string]Reading, maxAge time.Duration, now time.Time) map[string]Reading {
	if maxAge <= 0 {
		return readings
	}

	fresh := make(map[string]Reading, len(readings))

	for id, r := range readings {
		if r.Age(now) <= maxAge {
			fresh[id] = r
		}
	}

	return fresh
}
