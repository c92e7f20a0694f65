// Package common holds helpers shared by several fanctl commands.
//
// It detects who the process runs as (fan control needs root), finds other
// fan controllers in the process table, and wraps the gRPC health client used
// to probe a running daemon.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
