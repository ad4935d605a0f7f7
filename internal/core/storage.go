package core

import (
	"context"
	"fmt"

	"dorkroom/internal/blob"
	"dorkroom/internal/infra/persistence/blobstore"
	"dorkroom/internal/infra/persistence/bolt"
	"dorkroom/internal/infra/persistence/memory"
	"dorkroom/internal/infra/persistence/postgres"
	"dorkroom/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete snapshot store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBolt     StorageDriver = "bolt"     // embedded bbolt file
	StorageBlob     StorageDriver = "blob"     // collection files through a blob driver
)

// StorageOptions selects and configures a snapshot store.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	BoltPath    string
	Blob        blob.Options
	BlobPrefix  string
}

// OpenSnapshotStore constructs the snapshot store named by opts.Driver,
// defaulting to the blob driver. Stores holding resources implement
// io.Closer.
func OpenSnapshotStore(ctx context.Context, opts StorageOptions) (SnapshotStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageBlob
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(nil), nil
	case StorageSQLite:
		return sqlite.NewStore(ctx, opts.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, opts.PostgresDSN)
	case StorageBolt:
		return bolt.NewStore(opts.BoltPath)
	case StorageBlob:
		blobs, err := blob.Open(ctx, opts.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		return blobstore.NewStore(blobs, opts.BlobPrefix), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
