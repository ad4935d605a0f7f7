package blob

import (
	"context"
	"fmt"
	"time"
)

// Options selects and configures a blob driver.
type Options struct {
	Driver      Driver
	FSRoot      string
	S3          S3Config
	HTTPBaseURL string
	HTTPTimeout time.Duration
}

// Open constructs the blob.Store named by opts.Driver (default fs).
func Open(ctx context.Context, opts Options) (Store, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(opts.FSRoot)
	case DriverS3:
		return NewS3(ctx, opts.S3)
	case DriverMemory:
		return NewMemory(), nil
	case DriverHTTP:
		return NewHTTP(opts.HTTPBaseURL, opts.HTTPTimeout)
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
