package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"dorkroom/pkg/domain"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixtureSnapshot() *Snapshot {
	custom := "1+63"
	return &Snapshot{
		Films: []Film{
			{ID: "f-trix", Brand: "Kodak", Name: "Tri-X 400", ISOSpeed: 400, ColorType: domain.ColorBW,
				Description: "Classic high speed black and white film", ManufacturerNotes: []string{"push friendly", "fine grain for speed"}},
			{ID: "f-hp5", Brand: "Ilford", Name: "HP5 Plus", ISOSpeed: 400, ColorType: domain.ColorBW, ManufacturerNotes: []string{}},
			{ID: "f-portra", Brand: "Kodak", Name: "Portra 400", ISOSpeed: 400, ColorType: domain.ColorColor, ManufacturerNotes: []string{}},
			{ID: "f-velvia", Brand: "Fujifilm", Name: "Velvia 50", ISOSpeed: 50, ColorType: domain.ColorSlide, ManufacturerNotes: []string{}},
		},
		Developers: []Developer{
			{ID: "d-d76", Name: "D-76", Manufacturer: "Kodak", Type: domain.DeveloperPowder, FilmOrPaper: domain.UseFilm,
				Notes: "Standard fine grain developer", DatasheetURL: domain.StringList{},
				Dilutions: []Dilution{{ID: "1", Name: "Stock", Ratio: "Stock"}, {ID: "2", Name: "1+1", Ratio: "1+1"}}},
			{ID: "d-hc110", Name: "HC-110", Manufacturer: "Kodak", Type: domain.DeveloperConcentrate, FilmOrPaper: domain.UseFilm,
				DatasheetURL: domain.StringList{}, Dilutions: []Dilution{{ID: "1", Name: "Dilution B", Ratio: "1+31"}}},
		},
		Combinations: []Combination{
			{ID: "c-trix-d76", Name: "Tri-X 400 in D-76 stock", FilmStockID: "f-trix", DeveloperID: "d-d76",
				DilutionID: domain.NewLocalID("1"), TemperatureF: 68, TimeMinutes: 6.75, ShootingISO: 400},
			{ID: "c-hp5-hc110", Name: "HP5 Plus at 800 in HC-110 B", FilmStockID: "f-hp5", DeveloperID: "d-hc110",
				DilutionID: domain.NewLocalID("1"), TemperatureF: 68, TimeMinutes: 7.5, ShootingISO: 800, PushPull: 1},
			{ID: "c-trix-hc110", Name: "Tri-X 400 in HC-110 1+63", FilmStockID: "f-trix", DeveloperID: "d-hc110",
				CustomDilution: &custom, TemperatureF: 68, TimeMinutes: 11, ShootingISO: 400},
		},
		Formats: []Format{{ID: "35mm", Name: "35mm"}, {ID: "120", Name: "120", Description: "Medium format roll film"}},
	}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newLoadedEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{WithClock(func() time.Time { return fixedNow }), WithIDGenerator(sequentialIDs("new"))}
	e := NewEngine(append(base, opts...)...)
	if _, err := e.Load(context.Background(), fixtureSnapshot()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return e
}

func filmCandidate(brand, name string) Candidate {
	return Candidate{Kind: EntityFilm, Fields: map[string]any{
		"brand":      brand,
		"name":       name,
		"iso_speed":  float64(320),
		"color_type": "bw",
	}}
}

func comboCandidate(filmID, devID string) Candidate {
	return Candidate{Kind: EntityCombination, Fields: map[string]any{
		"name":          "new recipe",
		"film_stock_id": filmID,
		"developer_id":  devID,
		"dilution_id":   float64(2),
		"temperature_f": float64(68),
		"time_minutes":  float64(9.75),
		"shooting_iso":  float64(400),
	}}
}
