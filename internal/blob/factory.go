package blob

import (
	"context"
	"fmt"
)

// Config selects and configures a driver.
type Config struct {
	Driver string `yaml:"driver" envconfig:"DRIVER" validate:"omitempty,oneof=fs s3 memory"`
	// FSRoot is the directory used by the fs driver.
	FSRoot string   `yaml:"fs_root" envconfig:"FS_ROOT"`
	S3     S3Config `yaml:"s3" envconfig:"S3"`
}

// Open returns the store named by cfg.Driver (default fs).
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver, err := ParseDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unhandled blob driver %s", driver)
}
