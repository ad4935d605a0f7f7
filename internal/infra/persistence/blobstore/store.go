// Package blobstore persists a snapshot as one JSON file per collection
// through a blob.Store, matching the layout of the published dataset.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"dorkroom/internal/blob"
	"dorkroom/internal/infra/persistence/buckets"
	"dorkroom/pkg/domain"
)

var _ domain.SnapshotStore = (*Store)(nil)

// Store reads and writes the collection files under prefix.
type Store struct {
	blobs  blob.Store
	prefix string
}

// NewStore wraps blobs. prefix is joined before every file name.
func NewStore(blobs blob.Store, prefix string) *Store {
	return &Store{blobs: blobs, prefix: strings.Trim(prefix, "/")}
}

// Blobs returns the underlying blob store.
func (s *Store) Blobs() blob.Store { return s.blobs }

func (s *Store) key(bucket string) string {
	name := bucket + ".json"
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Load fetches every collection file concurrently. When no file exists the
// dataset is empty; when only some exist the load fails.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	var (
		mu       sync.Mutex
		payloads = make(map[string][]byte, len(buckets.Names))
		missing  []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range buckets.Names {
		g.Go(func() error {
			data, err := s.fetch(gctx, name)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, blob.ErrNotFound):
				missing = append(missing, s.key(name))
				return nil
			case err != nil:
				return err
			}
			payloads[name] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(payloads) > 0 && len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("incomplete snapshot: missing %s", strings.Join(missing, ", "))
	}
	return buckets.Decode(payloads)
}

func (s *Store) fetch(ctx context.Context, bucket string) ([]byte, error) {
	_, rc, err := s.blobs.Get(ctx, s.key(bucket))
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key(bucket), err)
	}
	return data, nil
}

// Save writes every collection file, indented the way the published dataset
// is. Read-only drivers return blob.ErrReadOnly.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	encoded, err := buckets.Encode(snap)
	if err != nil {
		return err
	}
	for _, name := range buckets.Names {
		var buf bytes.Buffer
		if err := json.Indent(&buf, encoded[name], "", "  "); err != nil {
			return fmt.Errorf("format %s: %w", name, err)
		}
		buf.WriteByte('\n')
		opts := blob.PutOptions{ContentType: "application/json", Overwrite: true}
		if _, err := s.blobs.Put(ctx, s.key(name), &buf, opts); err != nil {
			return fmt.Errorf("write %s: %w", s.key(name), err)
		}
	}
	return nil
}
