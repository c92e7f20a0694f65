// Package controller runs the fan control daemon.
//
// Loop is the only component that issues fan commands. Every interval it
// snapshots the shared temperature table, takes the hottest reading, evaluates
// the fan curve and sets every zone in order. Failures of a sensor, a zone or
// a whole cycle are logged and the loop carries on; only a failed privilege
// check at startup stops the daemon.
package controller
