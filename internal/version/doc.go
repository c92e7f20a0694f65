// Package version holds the fanctl build metadata injected with -ldflags.
package version
