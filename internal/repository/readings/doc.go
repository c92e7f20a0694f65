// Package readings holds the shared temperature table: the latest Reading per
// source id, written by probes and read by the control loop.
package readings
