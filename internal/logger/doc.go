// Package logger wraps zap to provide:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level switching,
//   - leveled key/value helpers (InfoKV, WarnKV, ErrorKV, ...).
//
// Probes and the control loop take a context and log through the logger it
// carries, so every line is tagged with the component that produced it.
package logger
