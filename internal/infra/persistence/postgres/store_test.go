package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"dorkroom/internal/infra/persistence/postgres/testutil"
	"dorkroom/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != defaultDriver {
			t.Fatalf("unexpected driver %s", driverName)
		}
		if dsn != DefaultDSN {
			t.Fatalf("expected default dsn, got %s", dsn)
		}
		return db, nil
	})
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreCreatesStateTable(t *testing.T) {
	_, conn := openStub(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS state") && strings.Contains(stmt, "JSONB") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got %v", conn.Execs)
	}
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	snap := &domain.Snapshot{
		Films:   []domain.Film{{ID: "f1", Brand: "Ilford", Name: "Delta 3200", ISOSpeed: 3200, ColorType: domain.ColorBW}},
		Formats: []domain.Format{{ID: "35mm", Name: "35mm"}},
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := len(conn.Tables["state"]); got != 4 {
		t.Fatalf("expected 4 bucket rows, got %d", got)
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if got := len(conn.Tables["state"]); got != 4 {
		t.Fatalf("expected upsert to keep 4 rows, got %d", got)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Films) != 1 || loaded.Films[0].Name != "Delta 3200" || len(loaded.Formats) != 1 {
		t.Fatalf("unexpected snapshot: %+v", loaded)
	}
}

func TestSaveRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	conn.FailCommit = true
	if err := store.Save(ctx, &domain.Snapshot{}); err == nil || !strings.Contains(err.Error(), "commit") {
		t.Fatalf("expected commit failure, got %v", err)
	}
	if len(conn.Tables["state"]) != 0 {
		t.Fatalf("failed commit must not leave rows behind")
	}
	conn.FailCommit = false
	conn.FailBegin = true
	if err := store.Save(ctx, &domain.Snapshot{}); err == nil || !strings.Contains(err.Error(), "begin") {
		t.Fatalf("expected begin failure, got %v", err)
	}
}

func TestNewStorePingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://example"); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping failure, got %v", err)
	}
}

func TestNewStoreOpenFailure(t *testing.T) {
	boom := errors.New("boom")
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, boom })
	defer restore()
	if _, err := NewStore(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped open error, got %v", err)
	}
}
