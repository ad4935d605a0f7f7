// Package bolt persists dataset snapshots in an embedded bbolt file. A single
// bucket holds one JSON value per collection; Save rewrites all of them in
// one update transaction so a crash mid-write cannot leave a mixed dataset.
package bolt

import (
	"context"
	"fmt"
	"time"

	"dorkroom/internal/infra/persistence/buckets"
	"dorkroom/pkg/domain"

	bolt "go.etcd.io/bbolt"
)

var _ domain.SnapshotStore = (*Store)(nil)

// DefaultPath is used when no path is configured.
const DefaultPath = "dorkroom.bolt"

var bucketState = []byte("state")

// Store is a bbolt-backed snapshot store.
type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) a bbolt database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads every collection. A database without the state bucket is an
// empty dataset.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payloads := make(map[string][]byte, len(buckets.Names))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketState)
		if b == nil {
			return nil
		}
		for _, name := range buckets.Names {
			// bbolt slices are only valid within the transaction.
			if v := b.Get([]byte(name)); v != nil {
				payloads[name] = append([]byte(nil), v...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bbolt view: %w", err)
	}
	return buckets.Decode(payloads)
}

// Save writes every collection in one update transaction.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payloads, err := buckets.Encode(snap)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketState)
		if err != nil {
			return err
		}
		for _, name := range buckets.Names {
			if err := b.Put([]byte(name), payloads[name]); err != nil {
				return fmt.Errorf("put %s: %w", name, err)
			}
		}
		return nil
	})
}
