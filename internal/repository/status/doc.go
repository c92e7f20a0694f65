// Package status persists the latest control cycle.
//
// The FileRepository overwrites a JSON file on every cycle so operators (and
// `fanctl status`) can see what the controller last decided. Only the most
// recent cycle is kept.
package status
