package core

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"dorkroom/pkg/domain"
)

func TestQueriesBeforeLoadReportNotLoaded(t *testing.T) {
	ctx := context.Background()
	e := NewEngine()
	if e.Loaded() {
		t.Fatalf("new engine must not be loaded")
	}
	if _, _, err := e.GetFilm(ctx, "f-trix"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("GetFilm: expected ErrNotLoaded, got %v", err)
	}
	if _, _, err := e.GetDeveloper(ctx, "d-d76"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("GetDeveloper: expected ErrNotLoaded, got %v", err)
	}
	if _, err := e.SearchFilms(ctx, "tri", ""); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("SearchFilms: expected ErrNotLoaded, got %v", err)
	}
	if _, err := e.FuzzySearchDevelopers(ctx, "d76", 5); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("FuzzySearchDevelopers: expected ErrNotLoaded, got %v", err)
	}
	if _, err := e.CombinationsForFilm(ctx, "f-trix"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("CombinationsForFilm: expected ErrNotLoaded, got %v", err)
	}
	if _, err := e.Snapshot(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Snapshot: expected ErrNotLoaded, got %v", err)
	}
	if _, err := e.Stats(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Stats: expected ErrNotLoaded, got %v", err)
	}
}

func TestGetFilmReturnsEveryLoadedFilm(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t)
	for _, want := range fixtureSnapshot().Films {
		got, found, err := e.GetFilm(ctx, want.ID)
		if err != nil || !found {
			t.Fatalf("GetFilm(%s): found=%v err=%v", want.ID, found, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("GetFilm(%s) = %+v, want %+v", want.ID, got, want)
		}
	}
	for _, want := range fixtureSnapshot().Developers {
		got, found, err := e.GetDeveloper(ctx, want.ID)
		if err != nil || !found || !reflect.DeepEqual(got, want) {
			t.Fatalf("GetDeveloper(%s) = %+v found=%v err=%v", want.ID, got, found, err)
		}
	}
}

func TestPointLookupMissIsNotAnError(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t)
	if _, found, err := e.GetFilm(ctx, "nope"); err != nil || found {
		t.Fatalf("expected clean miss, found=%v err=%v", found, err)
	}
	if _, found, err := e.GetFormat(ctx, "120"); err != nil || !found {
		t.Fatalf("expected format hit, found=%v err=%v", found, err)
	}
}

func TestCombinationsForFilmContainsEveryValidCombination(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t)
	for _, c := range fixtureSnapshot().Combinations {
		byFilm, err := e.CombinationsForFilm(ctx, c.FilmStockID)
		if err != nil {
			t.Fatalf("CombinationsForFilm: %v", err)
		}
		if !containsCombination(byFilm, c.ID) {
			t.Fatalf("combinations for %s missing %s", c.FilmStockID, c.ID)
		}
		byDev, err := e.CombinationsForDeveloper(ctx, c.DeveloperID)
		if err != nil {
			t.Fatalf("CombinationsForDeveloper: %v", err)
		}
		if !containsCombination(byDev, c.ID) {
			t.Fatalf("combinations for %s missing %s", c.DeveloperID, c.ID)
		}
	}
	trix, _ := e.CombinationsForFilm(ctx, "f-trix")
	if len(trix) != 2 || trix[0].ID != "c-trix-d76" || trix[1].ID != "c-trix-hc110" {
		t.Fatalf("expected collection order, got %+v", trix)
	}
}

func containsCombination(list []Combination, id string) bool {
	for _, c := range list {
		if c.ID == id {
			return true
		}
	}
	return false
}

func TestRelationshipLookupForUnknownIDIsEmpty(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t)
	out, err := e.CombinationsForFilm(ctx, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
	out, err = e.CombinationsForDeveloper(ctx, "missing")
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty result, got %v %v", out, err)
	}
}

func TestSearchFilmsSubstringAndColorFilter(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t)
	cases := []struct {
		text  string
		color domain.ColorType
		want  []string
	}{
		{"kodak", "", []string{"f-trix", "f-portra"}},
		{"KODAK", domain.ColorColor, []string{"f-portra"}},
		{"400", "", []string{"f-trix", "f-portra"}},
		{"", domain.ColorSlide, []string{"f-velvia"}},
		{"plus", "", []string{"f-hp5"}},
		{"tri-x", domain.ColorColor, []string{}},
	}
	for _, tc := range cases {
		got, err := e.SearchFilms(ctx, tc.text, tc.color)
		if err != nil {
			t.Fatalf("SearchFilms(%q): %v", tc.text, err)
		}
		ids := make([]string, 0, len(got))
		for _, f := range got {
			ids = append(ids, f.ID)
		}
		if !reflect.DeepEqual(ids, tc.want) {
			t.Fatalf("SearchFilms(%q, %q) = %v, want %v", tc.text, tc.color, ids, tc.want)
		}
	}
}

func TestSearchDevelopers(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t)
	got, err := e.SearchDevelopers(ctx, "kodak")
	if err != nil || len(got) != 2 {
		t.Fatalf("expected both kodak developers, got %v %v", got, err)
	}
	got, _ = e.SearchDevelopers(ctx, "hc-")
	if len(got) != 1 || got[0].ID != "d-hc110" {
		t.Fatalf("unexpected developers %+v", got)
	}
}

func TestFuzzySearchFilms(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t)
	got, err := e.FuzzySearchFilms(ctx, "tri-x", 5, "")
	if err != nil {
		t.Fatalf("fuzzy: %v", err)
	}
	if len(got) == 0 || got[0].Record.ID != "f-trix" {
		t.Fatalf("expected Tri-X first, got %+v", got)
	}
	if got[0].Score < 40 {
		t.Fatalf("expected score >= 40, got %v", got[0].Score)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("results not sorted by score: %+v", got)
		}
	}
	none, err := e.FuzzySearchFilms(ctx, "zzzznonexistent", 5, "")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no matches, got %+v %v", none, err)
	}
	filtered, _ := e.FuzzySearchFilms(ctx, "kodak", 5, domain.ColorColor)
	for _, m := range filtered {
		if m.Record.ColorType != domain.ColorColor {
			t.Fatalf("color filter not applied: %+v", m)
		}
	}
}

func TestFuzzySearchLimit(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t, WithDefaultLimit(1))
	got, err := e.FuzzySearchFilms(ctx, "kodak", 0, "")
	if err != nil {
		t.Fatalf("fuzzy: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected default limit of 1, got %d", len(got))
	}
	got, _ = e.FuzzySearchFilms(ctx, "kodak", 2, "")
	if len(got) != 2 {
		t.Fatalf("expected explicit limit of 2, got %d", len(got))
	}
	if e.DefaultLimit() != 1 {
		t.Fatalf("unexpected default limit %d", e.DefaultLimit())
	}
}

func TestFuzzySearchDevelopersAndCombinations(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t)
	devs, err := e.FuzzySearchDevelopers(ctx, "hc110", 3)
	if err != nil || len(devs) == 0 || devs[0].Record.ID != "d-hc110" {
		t.Fatalf("expected HC-110 first, got %+v %v", devs, err)
	}
	combos, err := e.FuzzySearchCombinations(ctx, "hp5", 3)
	if err != nil || len(combos) == 0 || combos[0].Record.ID != "c-hp5-hc110" {
		t.Fatalf("expected HP5 combination first, got %+v %v", combos, err)
	}
	all, err := e.SearchAll(ctx, "kodak", 10)
	if err != nil {
		t.Fatalf("SearchAll: %v", err)
	}
	if len(all.Films) == 0 || len(all.Developers) == 0 {
		t.Fatalf("expected films and developers, got %+v", all)
	}
}

func TestResolveCombination(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t)
	res, err := e.ResolveCombination(ctx, "c-hp5-hc110")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Film.ID != "f-hp5" || res.Developer.ID != "d-hc110" || res.Dilution == nil || res.Dilution.Ratio != "1+31" {
		t.Fatalf("unexpected resolution %+v", res)
	}
	custom, err := e.ResolveCombination(ctx, "c-trix-hc110")
	if err != nil || custom.Dilution != nil {
		t.Fatalf("custom dilution must not resolve a dilution: %+v %v", custom, err)
	}
	var nf ErrNotFound
	if _, err := e.ResolveCombination(ctx, "missing"); !errors.As(err, &nf) || nf.Entity != EntityCombination {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func danglingSnapshot() *Snapshot {
	snap := fixtureSnapshot()
	snap.Combinations = append(snap.Combinations, Combination{
		ID: "c-orphan", Name: "orphan", FilmStockID: "f-gone", DeveloperID: "d-d76",
		DilutionID: domain.NewLocalID("9"), TemperatureF: 68, TimeMinutes: 5, ShootingISO: 100,
	})
	return snap
}

func TestLoadPolicies(t *testing.T) {
	ctx := context.Background()

	exclude := NewEngine()
	warnings, err := exclude.Load(ctx, danglingSnapshot())
	if err != nil {
		t.Fatalf("exclude load: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected film and dilution warnings, got %+v", warnings)
	}
	if _, found, _ := exclude.GetCombination(ctx, "c-orphan"); found {
		t.Fatalf("exclude policy must not index dangling combinations")
	}
	stored, _ := exclude.Warnings()
	if len(stored) != 2 {
		t.Fatalf("warnings not retained: %+v", stored)
	}
	var excluded IntegrityError
	if _, err := exclude.ResolveCombination(ctx, "c-orphan"); !errors.As(err, &excluded) || len(excluded.Violations) != 2 {
		t.Fatalf("expected IntegrityError resolving excluded orphan, got %v", err)
	}
	for _, v := range excluded.Violations {
		if v.EntityID != "c-orphan" || v.Severity != SeverityBlock {
			t.Fatalf("unexpected violation %+v", v)
		}
	}
	if stored, _ := exclude.Warnings(); stored[0].Severity != SeverityWarn {
		t.Fatalf("resolving must not change retained warnings: %+v", stored)
	}
	var nf ErrNotFound
	if _, err := exclude.ResolveCombination(ctx, "c-never"); !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}

	keep := NewEngine(WithIndexPolicy(PolicyKeep))
	if _, err := keep.Load(ctx, danglingSnapshot()); err != nil {
		t.Fatalf("keep load: %v", err)
	}
	if _, found, _ := keep.GetCombination(ctx, "c-orphan"); !found {
		t.Fatalf("keep policy must index dangling combinations")
	}
	var integrity IntegrityError
	if _, err := keep.ResolveCombination(ctx, "c-orphan"); !errors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError resolving orphan, got %v", err)
	}

	strict := NewEngine(WithIndexPolicy(PolicyStrict))
	if _, err := strict.Load(ctx, fixtureSnapshot()); err != nil {
		t.Fatalf("strict load of clean snapshot: %v", err)
	}
	if _, err := strict.Load(ctx, danglingSnapshot()); !errors.As(err, &integrity) {
		t.Fatalf("expected strict load to fail, got %v", err)
	}
	snap, _ := strict.Snapshot()
	if len(snap.Combinations) != len(fixtureSnapshot().Combinations) {
		t.Fatalf("strict failure must keep the previous state")
	}
}

func TestBuildIndexesIsIdempotent(t *testing.T) {
	snap := fixtureSnapshot()
	a, _, err := BuildIndexes(snap, PolicyExclude)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b, _, err := BuildIndexes(snap, PolicyExclude)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !reflect.DeepEqual(a.Combinations(), b.Combinations()) {
		t.Fatalf("combination order differs between builds")
	}
	for _, f := range snap.Films {
		if !reflect.DeepEqual(a.CombinationsForFilm(f.ID), b.CombinationsForFilm(f.ID)) {
			t.Fatalf("adjacency differs for %s", f.ID)
		}
		fa, _ := a.FindFilm(f.ID)
		fb, _ := b.FindFilm(f.ID)
		if !reflect.DeepEqual(fa, fb) {
			t.Fatalf("lookup differs for %s", f.ID)
		}
	}
	// Results are copies; mutating them must not leak into the index.
	list := a.CombinationsForFilm("f-trix")
	list[0].Name = "mutated"
	if a.CombinationsForFilm("f-trix")[0].Name == "mutated" {
		t.Fatalf("index exposed internal state")
	}
}

func TestBuildIndexesReportsDuplicates(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Films = append(snap.Films, Film{ID: "f-trix", Brand: "x", Name: "y", ISOSpeed: 1, ColorType: domain.ColorBW})
	snap.Films = append(snap.Films, Film{ID: "f-trix2", Brand: "KODAK", Name: "tri-x 400", ISOSpeed: 400, ColorType: domain.ColorBW})
	_, warnings, err := BuildIndexes(snap, PolicyExclude)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var integrity, dup int
	for _, w := range warnings {
		switch w.Code {
		case domain.CodeIntegrity:
			integrity++
		case domain.CodeDuplicate:
			dup++
		}
	}
	if integrity != 1 || dup != 1 {
		t.Fatalf("expected one duplicate id and one duplicate key, got %+v", warnings)
	}
}

func TestParseIndexPolicy(t *testing.T) {
	for raw, want := range map[string]IndexPolicy{"": PolicyExclude, "Keep": PolicyKeep, " strict ": PolicyStrict} {
		got, err := ParseIndexPolicy(raw)
		if err != nil || got != want {
			t.Fatalf("ParseIndexPolicy(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseIndexPolicy("lenient"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestStatsAndLists(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t)
	stats, err := e.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Counts[EntityFilm] != 4 || stats.Counts[EntityFormat] != 2 || !stats.LoadedAt.Equal(fixedNow) {
		t.Fatalf("unexpected stats %+v", stats)
	}
	films, _ := e.ListFilms(ctx)
	devs, _ := e.ListDevelopers(ctx)
	combos, _ := e.ListCombinations(ctx)
	formats, _ := e.ListFormats(ctx)
	if len(films) != 4 || len(devs) != 2 || len(combos) != 3 || len(formats) != 2 {
		t.Fatalf("unexpected list sizes %d %d %d %d", len(films), len(devs), len(combos), len(formats))
	}
}

func TestConcurrentQueriesDuringAdmissions(t *testing.T) {
	ctx := context.Background()
	e := newLoadedEngine(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := e.FuzzySearchFilms(ctx, "kodak", 5, ""); err != nil {
					t.Errorf("fuzzy: %v", err)
					return
				}
				if _, err := e.CombinationsForFilm(ctx, "f-trix"); err != nil {
					t.Errorf("combos: %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		cand := Candidate{Kind: EntityFormat, Fields: map[string]any{"name": "sheet " + string(rune('A'+i))}}
		if _, err := e.Admit(ctx, cand, AdmitOptions{}); err != nil {
			t.Fatalf("admit format: %v", err)
		}
	}
	wg.Wait()
	formats, _ := e.ListFormats(ctx)
	if len(formats) != 7 {
		t.Fatalf("expected 7 formats, got %d", len(formats))
	}
}
