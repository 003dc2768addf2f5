// Package blob opens the configured blob backend and layers the closetfit
// uses of it on top: the export archive and the item image source.
package blob

import (
	"context"
	"fmt"

	"closetfit/internal/blob/core"
	"closetfit/internal/infra/blob/fs"
	"closetfit/internal/infra/blob/memory"
	"closetfit/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// Info describes stored blob metadata.
	Info = core.Info
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// Config selects and parameterizes a backend.
type Config struct {
	Driver string
	FSRoot string
	S3     s3.Config
}

// Open builds the store named by cfg.Driver; fs is the default.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}
