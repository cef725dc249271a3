package cache

import (
	"context"
	"fmt"

	"github.com/rtlive/rtlive/internal/config"
)

// Open selects a Store implementation from the cache configuration.
func Open(ctx context.Context, cfg config.Cache) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem, "":
		return NewFS(cfg.Path)
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(cfg.Path)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}
