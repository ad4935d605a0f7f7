package core

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"dorkroom/pkg/domain"
)

func TestToFloat(t *testing.T) {
	cases := []struct {
		in      any
		want    float64
		wantErr bool
	}{
		{float64(1.5), 1.5, false},
		{float32(2), 2, false},
		{7, 7, false},
		{int64(9), 9, false},
		{json.Number("400"), 400, false},
		{" +1 ", 1, false},
		{"-0.5", -0.5, false},
		{"fast", 0, true},
		{true, 0, true},
		{math.Inf(1), 0, true},
		{"NaN", 0, true},
	}
	for _, tc := range cases {
		got, err := toFloat(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("toFloat(%#v) err = %v", tc.in, err)
		}
		if !tc.wantErr && got != tc.want {
			t.Fatalf("toFloat(%#v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDecodeFilmFields(t *testing.T) {
	rec, violations, err := decodeCandidate(Candidate{Kind: EntityFilm, Fields: map[string]any{
		"brand":               " Foma ",
		"name":                "Fomapan 100",
		"iso_speed":           "100",
		"color_type":          "BW",
		"discontinued":        "1",
		"reciprocity_failure": 1.31,
		"manufacturer_notes":  []any{"classic cubic grain"},
	}})
	if err != nil || len(violations) != 0 {
		t.Fatalf("decode: %v %+v", err, violations)
	}
	film := rec.(Film)
	if film.Brand != "Foma" || film.ISOSpeed != 100 || film.ColorType != domain.ColorBW || !bool(film.Discontinued) {
		t.Fatalf("unexpected film %+v", film)
	}
	if film.ReciprocityFailure == nil || !film.ReciprocityFailure.Numeric || film.ReciprocityFailure.Value != "1.31" {
		t.Fatalf("unexpected reciprocity %+v", film.ReciprocityFailure)
	}
	if !reflect.DeepEqual(film.ManufacturerNotes, []string{"classic cubic grain"}) {
		t.Fatalf("unexpected notes %v", film.ManufacturerNotes)
	}

	rec, _, _ = decodeCandidate(Candidate{Kind: EntityFilm, Fields: map[string]any{"reciprocity_failure": "see datasheet", "discontinued": float64(1)}})
	film = rec.(Film)
	if film.ReciprocityFailure == nil || film.ReciprocityFailure.Numeric || !bool(film.Discontinued) {
		t.Fatalf("text reciprocity not preserved: %+v", film)
	}
	if film.ManufacturerNotes == nil {
		t.Fatalf("manufacturer notes must default to an empty list")
	}
}

func TestDecodeDeveloperDilutions(t *testing.T) {
	rec, violations, err := decodeCandidate(Candidate{Kind: EntityDeveloper, Fields: map[string]any{
		"name":               "Rodinal",
		"manufacturer":       "Adox",
		"type":               "Concentrate",
		"film_or_paper":      "film",
		"working_life_hours": "",
		"stock_life_months":  24,
		"datasheet_url":      "https://example.com/rodinal.pdf",
		"dilutions": []any{
			map[string]any{"id": float64(1), "name": "1+25", "dilution": "1+25"},
			map[string]any{"id": "b", "dilution": "1+50"},
		},
	}})
	if err != nil || len(violations) != 0 {
		t.Fatalf("decode: %v %+v", err, violations)
	}
	dev := rec.(Developer)
	if dev.WorkingLifeHours != nil || dev.StockLifeMonths == nil || *dev.StockLifeMonths != 24 {
		t.Fatalf("unexpected optional numbers %+v", dev)
	}
	want := []Dilution{{ID: "1", Name: "1+25", Ratio: "1+25"}, {ID: "b", Ratio: "1+50"}}
	if !reflect.DeepEqual(dev.Dilutions, want) {
		t.Fatalf("dilutions = %+v", dev.Dilutions)
	}
	if !reflect.DeepEqual(dev.DatasheetURL, domain.StringList{"https://example.com/rodinal.pdf"}) {
		t.Fatalf("datasheet = %v", dev.DatasheetURL)
	}

	_, violations, _ = decodeCandidate(Candidate{Kind: EntityDeveloper, Fields: map[string]any{
		"name": "X", "manufacturer": "Y", "type": "powder", "film_or_paper": "film",
		"dilutions": []any{map[string]any{"id": 1, "dilution": "1+1"}, map[string]any{"id": 1, "dilution": "1+3"}, "1+1"},
	}})
	fields := violationFields(violations)
	if _, ok := fields["dilutions[2]"]; !ok {
		t.Fatalf("expected malformed dilution entry, got %+v", violations)
	}
	if _, ok := fields["dilutions[1].id"]; !ok {
		t.Fatalf("expected duplicate dilution id, got %+v", violations)
	}
}

func TestDecodeCombinationReferences(t *testing.T) {
	rec, violations, err := decodeCandidate(Candidate{Kind: EntityCombination, Fields: map[string]any{
		"name":            "HP5 in Rodinal",
		"film_stock_id":   "f-hp5",
		"developer_id":    "d-rod",
		"custom_dilution": " 1+100 ",
		"temperature_f":   "68",
		"time_minutes":    11,
		"shooting_iso":    400,
		"push_pull":       "-0.5",
	}})
	if err != nil || len(violations) != 0 {
		t.Fatalf("decode: %v %+v", err, violations)
	}
	combo := rec.(Combination)
	if combo.DilutionID != nil || combo.CustomDilution == nil || *combo.CustomDilution != "1+100" {
		t.Fatalf("unexpected dilution fields %+v", combo)
	}
	if combo.PushPull != -0.5 || combo.TemperatureF != 68 {
		t.Fatalf("unexpected numbers %+v", combo)
	}

	_, violations, _ = decodeCandidate(Candidate{Kind: EntityCombination, Fields: map[string]any{
		"name": "odd", "film_stock_id": "f", "developer_id": "d", "dilution_id": 1,
		"temperature_f": 68, "time_minutes": 5, "shooting_iso": 400, "push_pull": 0.3,
	}})
	if violationFields(violations)["push_pull"] != domain.CodeSchema {
		t.Fatalf("expected push_pull schema violation, got %+v", violations)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	if _, _, err := decodeCandidate(Candidate{Kind: "paper"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
