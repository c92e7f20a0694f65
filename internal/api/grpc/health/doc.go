// Package health exposes the control loop over the standard gRPC health
// protocol so supervisors and `fanctl health` can tell a live controller from
// one that has stopped actuating.
package health
