// Package thermal contains the core value types of the fan controller.
//
// Reading is one temperature sample from one source, ActuationCommand is the
// per-zone fan speed decided by a control cycle and FanCurve is the pure
// mapping between the two. Errors shared by probes and the control loop live
// here as well.
package thermal
