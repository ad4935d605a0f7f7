package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"dorkroom/pkg/domain"
)

func sampleSnapshot() *domain.Snapshot {
	custom := "1+1+100"
	return &domain.Snapshot{
		Films: []domain.Film{{ID: "f1", Brand: "Kodak", Name: "Tri-X 400", ISOSpeed: 400, ColorType: domain.ColorBW, ManufacturerNotes: []string{}}},
		Developers: []domain.Developer{{
			ID: "d1", Name: "Rodinal", Manufacturer: "Adox", Type: domain.DeveloperConcentrate, FilmOrPaper: domain.UseFilm,
			Dilutions: []domain.Dilution{{ID: "1", Name: "1+50", Ratio: "1+50"}},
		}},
		Combinations: []domain.Combination{{ID: "c1", Name: "Tri-X in Rodinal", FilmStockID: "f1", DeveloperID: "d1", CustomDilution: &custom, TemperatureF: 68, TimeMinutes: 13, ShootingISO: 400}},
		Formats:      []domain.Format{{ID: "120", Name: "120"}},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dorkroom.db")
	store, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(empty.Films) != 0 {
		t.Fatalf("expected empty dataset, got %+v", empty)
	}

	if err := store.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Combinations) != 1 || got.Combinations[0].CustomDilution == nil || *got.Combinations[0].CustomDilution != "1+1+100" {
		t.Fatalf("combination not round-tripped: %+v", got.Combinations)
	}
	if got.Combinations[0].DilutionID != nil {
		t.Fatalf("expected nil dilution id")
	}
}

func TestStoreSaveOverwritesAndReopens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dorkroom.db")
	store, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	snap := sampleSnapshot()
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap.Formats = append(snap.Formats, domain.Format{ID: "35mm", Name: "35mm"})
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("second save: %v", err)
	}
	_ = store.Close()

	reopened, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Formats) != 2 {
		t.Fatalf("expected 2 formats after overwrite, got %d", len(got.Formats))
	}
}

func TestStoreLoadRejectsPartialState(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(ctx, filepath.Join(t.TempDir(), "partial.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if _, err := store.DB().ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES('film_stocks','[]')`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Load(ctx); err == nil || !strings.Contains(err.Error(), "incomplete") {
		t.Fatalf("expected incomplete snapshot error, got %v", err)
	}
}
