package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dorkroom/internal/blob"
	"dorkroom/internal/infra/persistence/memory"
)

type recordingStore struct {
	snap    *Snapshot
	loadErr error
	saveErr error
	saves   int
	visible func() bool
	closed  bool
}

func (s *recordingStore) Load(context.Context) (*Snapshot, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.snap.Clone(), nil
}

func (s *recordingStore) Save(_ context.Context, snap *Snapshot) error {
	if s.visible != nil && s.visible() {
		return errors.New("snapshot visible before save")
	}
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.snap = snap.Clone()
	return nil
}

func (s *recordingStore) Close() error {
	s.closed = true
	return nil
}

func newTestService(t *testing.T, store SnapshotStore) *Service {
	t.Helper()
	svc := NewService(NewEngine(WithIDGenerator(sequentialIDs("svc"))), store)
	if _, err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	return svc
}

func TestServiceReload(t *testing.T) {
	store := &recordingStore{snap: fixtureSnapshot()}
	svc := newTestService(t, store)
	stats, err := svc.Engine().Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Counts[EntityFilm] != 4 || stats.Counts[EntityCombination] != 3 {
		t.Fatalf("unexpected counts %+v", stats.Counts)
	}
	if svc.Store() != SnapshotStore(store) {
		t.Fatalf("store accessor mismatch")
	}
}

func TestServiceReloadFailureKeepsState(t *testing.T) {
	store := &recordingStore{snap: fixtureSnapshot()}
	svc := newTestService(t, store)
	before, _ := svc.Engine().Snapshot()

	store.loadErr = errors.New("bucket gone")
	if _, err := svc.Reload(context.Background()); !errors.Is(err, store.loadErr) {
		t.Fatalf("expected load error, got %v", err)
	}
	if after, _ := svc.Engine().Snapshot(); after != before {
		t.Fatalf("failed reload replaced state")
	}

	if _, err := NewService(nil, nil).Reload(context.Background()); err == nil {
		t.Fatalf("expected error without store")
	}
}

func TestServiceAdmitPersistsBeforePublishing(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{snap: fixtureSnapshot()}
	svc := newTestService(t, store)
	store.visible = func() bool {
		_, found, _ := svc.Engine().GetFormat(ctx, "svc-1")
		return found
	}

	res, err := svc.Admit(ctx, Candidate{Kind: EntityFormat, Fields: map[string]any{"name": "4x5"}}, AdmitOptions{})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if store.saves != 1 || len(store.snap.Formats) != 3 {
		t.Fatalf("expected one save with the new format, got %d saves", store.saves)
	}
	if _, found, _ := svc.Engine().GetFormat(ctx, res.ID); !found {
		t.Fatalf("admitted format not visible")
	}

	if _, err := svc.Admit(ctx, Candidate{Kind: EntityFormat, Fields: map[string]any{"name": "6x7"}}, AdmitOptions{DryRun: true}); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if store.saves != 1 {
		t.Fatalf("dry run must not persist")
	}
}

func TestServiceAdmitSaveFailureLeavesEngineUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{snap: fixtureSnapshot()}
	svc := newTestService(t, store)
	before, _ := svc.Engine().Snapshot()

	store.saveErr = errors.New("read-only filesystem")
	_, err := svc.Admit(ctx, Candidate{Kind: EntityFormat, Fields: map[string]any{"name": "4x5"}}, AdmitOptions{})
	if !errors.Is(err, store.saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}
	if after, _ := svc.Engine().Snapshot(); after != before {
		t.Fatalf("engine state changed after failed save")
	}
}

func TestServiceExportAndClose(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{snap: fixtureSnapshot()}
	svc := newTestService(t, store)

	dst := memory.NewStore(nil)
	if err := svc.Export(ctx, dst); err != nil {
		t.Fatalf("export: %v", err)
	}
	got, err := dst.Load(ctx)
	if err != nil {
		t.Fatalf("load export: %v", err)
	}
	if len(got.Films) != 4 || len(got.Developers) != 2 || len(got.Formats) != 2 {
		t.Fatalf("unexpected export %+v", got.Counts())
	}

	if err := NewService(nil, store).Export(ctx, dst); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded exporting an unloaded engine, got %v", err)
	}

	if err := svc.Close(); err != nil || !store.closed {
		t.Fatalf("close did not reach the store: %v", err)
	}
	if err := NewService(nil, memory.NewStore(nil)).Close(); err != nil {
		t.Fatalf("close without closer: %v", err)
	}
}

func TestOpenSnapshotStoreDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cases := []struct {
		name string
		opts StorageOptions
	}{
		{"memory", StorageOptions{Driver: StorageMemory}},
		{"sqlite", StorageOptions{Driver: StorageSQLite, SQLitePath: filepath.Join(dir, "dorkroom.db")}},
		{"bolt", StorageOptions{Driver: StorageBolt, BoltPath: filepath.Join(dir, "dorkroom.bolt")}},
		{"blob-memory", StorageOptions{Driver: StorageBlob, Blob: blob.Options{Driver: blob.DriverMemory}, BlobPrefix: "data"}},
		{"blob-default-fs", StorageOptions{Blob: blob.Options{FSRoot: filepath.Join(dir, "blobs")}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, err := OpenSnapshotStore(ctx, tc.opts)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			svc := NewService(NewEngine(), store)
			t.Cleanup(func() { _ = svc.Close() })

			if err := store.Save(ctx, fixtureSnapshot()); err != nil {
				t.Fatalf("save: %v", err)
			}
			warnings, err := svc.Reload(ctx)
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			if len(warnings) != 0 {
				t.Fatalf("unexpected warnings %+v", warnings)
			}
			if hits, _ := svc.Engine().CombinationsForFilm(ctx, "f-trix"); len(hits) != 2 {
				t.Fatalf("expected 2 tri-x combinations after round trip, got %d", len(hits))
			}
		})
	}

	if _, err := OpenSnapshotStore(ctx, StorageOptions{Driver: "etcd"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
