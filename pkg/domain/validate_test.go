package domain

import "testing"

func fields(vs []Violation) map[string]bool {
	out := make(map[string]bool, len(vs))
	for _, v := range vs {
		out[v.Field] = true
	}
	return out
}

func TestFilmValidate(t *testing.T) {
	ok := Film{ID: "f", Brand: "Ilford", Name: "HP5 Plus", ISOSpeed: 400, ColorType: ColorBW}
	if vs := ok.Validate(); len(vs) != 0 {
		t.Fatalf("expected valid film, got %+v", vs)
	}
	bad := Film{ISOSpeed: -1, ColorType: "sepia"}
	got := fields(bad.Validate())
	for _, f := range []string{"brand", "name", "iso_speed", "color_type"} {
		if !got[f] {
			t.Fatalf("expected violation for %s, got %v", f, got)
		}
	}
}

func TestDeveloperValidateDilutions(t *testing.T) {
	neg := -1.0
	dev := Developer{
		Name: "D-76", Manufacturer: "Kodak", Type: DeveloperPowder, FilmOrPaper: UseFilm,
		WorkingLifeHours: &neg,
		Dilutions:        []Dilution{{ID: "1", Ratio: "1:1"}, {ID: "1", Ratio: "1:3"}, {ID: ""}},
	}
	got := fields(dev.Validate())
	for _, f := range []string{"working_life_hours", "dilutions[1].id", "dilutions[2].id", "dilutions[2]"} {
		if !got[f] {
			t.Fatalf("expected violation for %s, got %v", f, got)
		}
	}
}

func TestCombinationValidate(t *testing.T) {
	c := Combination{Name: "x", FilmStockID: "f", DeveloperID: "d", TimeMinutes: 9.5, ShootingISO: 400, PushPull: 0.5, TemperatureF: 68}
	if vs := c.Validate(); len(vs) != 0 {
		t.Fatalf("expected valid, got %+v", vs)
	}
	c.PushPull = 0.3
	c.TimeMinutes = 0
	got := fields(c.Validate())
	if !got["push_pull"] || !got["time_minutes"] {
		t.Fatalf("expected push_pull and time_minutes violations, got %v", got)
	}
}

func TestValidPushPull(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 1.5, -2.5} {
		if !ValidPushPull(v) {
			t.Fatalf("%v should be valid", v)
		}
	}
	for _, v := range []float64{0.25, 1.3} {
		if ValidPushPull(v) {
			t.Fatalf("%v should be invalid", v)
		}
	}
}

func TestFindDilutionByName(t *testing.T) {
	dev := Developer{Dilutions: []Dilution{{ID: "1", Name: "Stock", Ratio: "1:0"}, {ID: "2", Name: "1+1", Ratio: "1:1"}}}
	if d, ok := dev.FindDilutionByName("stock"); !ok || d.ID != "1" {
		t.Fatalf("name match failed")
	}
	if d, ok := dev.FindDilutionByName("1:1"); !ok || d.ID != "2" {
		t.Fatalf("ratio match failed")
	}
	if _, ok := dev.FindDilutionByName(""); ok {
		t.Fatalf("empty label must not match")
	}
}
