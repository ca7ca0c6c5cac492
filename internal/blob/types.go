// Package blob is the artifact store used by exporters and the CLI. It
// re-exports the core contract and selects a driver from configuration.
package blob

import (
	"trialviz/internal/blob/core"
)

type (
	Driver           = core.Driver
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	Info             = core.Info
	Store            = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
	ErrInvalidKey  = core.ErrInvalidKey
)

// ParseDriver validates a driver name; empty selects the filesystem.
func ParseDriver(s string) (Driver, error) { return core.ParseDriver(s) }
