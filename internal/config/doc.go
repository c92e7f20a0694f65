// Package config defines the fan controller settings and provides helpers to
// load, validate and save them in YAML format.
//
// Everything is fixed at startup: cadence, fan curve, zones and the set of
// sensor sources. Validate fills in defaults for anything left out.
package config
