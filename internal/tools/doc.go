// Package tools runs the external binaries fanctl depends on (ipmitool,
// nvidia-smi) behind a small interface so probes and the actuator can be
// tested without them.
package tools
