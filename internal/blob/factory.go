package blob

import (
	"context"
	"fmt"

	"intactcore/internal/blob/core"
	"intactcore/internal/infra/blob/fs"
	memorystore "intactcore/internal/infra/blob/memory"
	infraS3 "intactcore/internal/infra/blob/s3"
)

// S3Config re-exports the S3 driver configuration.
type S3Config = infraS3.Config

// Config selects and configures a driver.
type Config struct {
	Driver string
	FSRoot string
	S3     S3Config
}

// Open builds the store selected by cfg; an empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver, err := core.ParseDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverS3:
		store, err := infraS3.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverMemory:
		return memorystore.New(), nil
	default:
		store, err := fs.New(cfg.FSRoot)
		if err != nil {
			return nil, fmt.Errorf("open fs blob store: %w", err)
		}
		return store, nil
	}
}

// NewMemory returns an in-memory store for tests.
func NewMemory() Store { return memorystore.New() }

// NewMockS3 returns an S3 store backed by an in-process fake endpoint.
func NewMockS3() Store { return infraS3.NewMock() }
