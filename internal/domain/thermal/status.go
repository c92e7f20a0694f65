package thermal

import (
	"slices"
	"time"
)

// Skip reasons reported when a cycle issues no commands.
const (
	SkipNoReadings    = "no sensor has reported yet"
	SkipStaleReadings = "every reading is stale"
	SkipInvalid       = "invalid representative temperature"
)

// ZoneOutcome is the result of one zone's command in a cycle.
type ZoneOutcome struct {
	Zone    string
	Percent int
	// Error is empty on success.
	Error string
}

// CycleStatus summarises one control cycle.
type CycleStatus struct {
	Timestamp time.Time
	// Hottest is the representative reading; zero when the cycle was skipped early.
	Hottest Reading
	Percent int
	// Skipped explains why no command was issued; empty when zones were set.
	Skipped string
	// Readings is the snapshot the cycle worked on, sorted by source id.
	Readings []Reading
	Zones    []ZoneOutcome
}

// Actuated reports whether at least one zone accepted its command.
func (s *CycleStatus) Actuated() bool {
	if s == nil || s.Skipped != "" {
		return false
	}

	return slices.ContainsFunc(s.Zones, func(z ZoneOutcome) bool { return z.Error == "" })
}

// Clone returns a copy that shares no slices with s.
func (s *CycleStatus) Clone() *CycleStatus {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.Readings = slices.Clone(s.Readings)
	cloned.Zones = slices.Clone(s.Zones)

	return &cloned
}
