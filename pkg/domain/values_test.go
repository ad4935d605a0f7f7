package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFilmJSONRoundTripPreservesSentinelsAndShapes(t *testing.T) {
	raw := `{
		"id": "f1",
		"brand": "Kodak",
		"name": "Tri-X 400",
		"iso_speed": 400,
		"color_type": "bw",
		"reciprocity_failure": 2,
		"discontinued": 0,
		"manufacturer_notes": ["classic grain"]
	}`
	var film Film
	if err := json.Unmarshal([]byte(raw), &film); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if film.Discontinued {
		t.Fatalf("expected discontinued false")
	}
	if film.ReciprocityFailure == nil || !film.ReciprocityFailure.Numeric || film.ReciprocityFailure.Value != "2" {
		t.Fatalf("unexpected reciprocity %+v", film.ReciprocityFailure)
	}
	out, err := json.Marshal(film)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `"discontinued":0`) || !strings.Contains(s, `"reciprocity_failure":2`) {
		t.Fatalf("unexpected encoding %s", s)
	}
}

func TestFlagParsing(t *testing.T) {
	cases := map[string]Flag{"0": false, "1": true, "true": true, "false": false, `"1"`: true}
	for in, want := range cases {
		var f Flag
		if err := json.Unmarshal([]byte(in), &f); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if f != want {
			t.Fatalf("flag %s: want %v got %v", in, want, f)
		}
	}
	var f Flag
	if err := json.Unmarshal([]byte("2"), &f); err == nil {
		t.Fatalf("expected error for non-sentinel flag")
	}
}

func TestLocalIDAcceptsNumbersAndStrings(t *testing.T) {
	var dils []Dilution
	if err := json.Unmarshal([]byte(`[{"id":1,"name":"Stock","dilution":"1:0"},{"id":"b","name":"1+1","dilution":"1:1"},{"id":2.0,"name":"x","dilution":"1:3"}]`), &dils); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if dils[0].ID != "1" || dils[1].ID != "b" || dils[2].ID != "2" {
		t.Fatalf("unexpected ids %+v", dils)
	}
	out, err := json.Marshal(dils[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"id":1`) {
		t.Fatalf("numeric id should stay numeric: %s", out)
	}
	out, _ = json.Marshal(dils[1])
	if !strings.Contains(string(out), `"id":"b"`) {
		t.Fatalf("string id should stay quoted: %s", out)
	}
}

func TestStringListAcceptsSingleString(t *testing.T) {
	var dev Developer
	if err := json.Unmarshal([]byte(`{"datasheet_url":"https://example.com/d76.pdf"}`), &dev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(dev.DatasheetURL) != 1 {
		t.Fatalf("expected one url, got %v", dev.DatasheetURL)
	}
	if err := json.Unmarshal([]byte(`{"datasheet_url":null}`), &dev); err != nil || dev.DatasheetURL != nil {
		t.Fatalf("null should clear list: %v %v", err, dev.DatasheetURL)
	}
}

func TestParseEntityKind(t *testing.T) {
	for in, want := range map[string]EntityKind{"film-stock": EntityFilm, "Developer": EntityDeveloper, "combo": EntityCombination, "formats": EntityFormat} {
		got, err := ParseEntityKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseEntityKind(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseEntityKind("paper"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestCombinationNaturalKey(t *testing.T) {
	a := Combination{FilmStockID: "f", DeveloperID: "d", DilutionID: NewLocalID("1"), ShootingISO: 400}
	b := a
	b.ID = "other"
	b.Name = "different name"
	if a.NaturalKey() != b.NaturalKey() {
		t.Fatalf("id and name must not affect the natural key")
	}
	custom := "1+1"
	c := Combination{FilmStockID: "f", DeveloperID: "d", CustomDilution: &custom, ShootingISO: 400}
	if a.NaturalKey() == c.NaturalKey() {
		t.Fatalf("custom dilution must differ from dilution id")
	}
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	snap := &Snapshot{
		Films:      []Film{{ID: "f", ManufacturerNotes: []string{"a"}}},
		Developers: []Developer{{ID: "d", Dilutions: []Dilution{{ID: "1"}}}},
	}
	clone := snap.Clone()
	clone.Films[0].ManufacturerNotes[0] = "changed"
	clone.Developers[0].Dilutions[0].Name = "changed"
	if snap.Films[0].ManufacturerNotes[0] != "a" || snap.Developers[0].Dilutions[0].Name != "" {
		t.Fatalf("clone shares backing arrays with source")
	}
	if got := snap.Counts()[EntityFilm]; got != 1 {
		t.Fatalf("expected one film, got %d", got)
	}
}
