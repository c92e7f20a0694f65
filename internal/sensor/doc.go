// Package sensor implements the probes that keep the shared temperature table
// fresh.
//
// A probe owns one source. Polling probes run a command every interval (e.g.
// `ipmitool sensor`); streaming probes keep a daemon such as `nvidia-smi dmon`
// running and publish every line it prints. Raw text is turned into readings
// by declarative line parsers, and Supervise restarts a probe that returns or
// panics so one broken source never takes the others down.
package sensor
