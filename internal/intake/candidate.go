package intake

import (
	"fmt"
	"strings"

	"dorkroom/pkg/domain"
)

// Lookup resolves the human-readable references a combination form carries.
type Lookup interface {
	FilmByName(brand, name string) (domain.Film, bool)
	DeveloperByName(manufacturer, name string) (domain.Developer, bool)
}

// SnapshotLookup resolves references against a loaded snapshot,
// case-insensitively.
type SnapshotLookup struct {
	Snapshot *domain.Snapshot
}

// FilmByName finds a film by brand and name.
func (l SnapshotLookup) FilmByName(brand, name string) (domain.Film, bool) {
	if l.Snapshot == nil {
		return domain.Film{}, false
	}
	for _, f := range l.Snapshot.Films {
		if strings.EqualFold(f.Brand, brand) && strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return domain.Film{}, false
}

// DeveloperByName finds a developer by manufacturer and name.
func (l SnapshotLookup) DeveloperByName(manufacturer, name string) (domain.Developer, bool) {
	if l.Snapshot == nil {
		return domain.Developer{}, false
	}
	for _, d := range l.Snapshot.Developers {
		if strings.EqualFold(d.Manufacturer, manufacturer) && strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return domain.Developer{}, false
}

// FromIssue parses body and builds a candidate of kind. Combinations need a
// lookup to resolve their film, developer and dilution.
func FromIssue(kind domain.EntityKind, body string, lookup Lookup) (domain.Candidate, error) {
	form := ParseIssueBody(body)
	if len(form) == 0 {
		return domain.Candidate{}, fmt.Errorf("issue body has no answered sections")
	}
	switch kind {
	case domain.EntityFilm:
		return FilmCandidate(form), nil
	case domain.EntityDeveloper:
		return DeveloperCandidate(form), nil
	case domain.EntityCombination:
		if lookup == nil {
			return domain.Candidate{}, fmt.Errorf("combination intake needs a lookup")
		}
		return CombinationCandidate(form, lookup), nil
	case domain.EntityFormat:
		return FormatCandidate(form), nil
	default:
		return domain.Candidate{}, fmt.Errorf("unsupported issue kind %q", kind)
	}
}

// FilmCandidate maps a film stock form.
func FilmCandidate(f Form) domain.Candidate {
	fields := map[string]any{
		"brand":        f.Get("brandmanufacturer", "brand_manufacturer", "brand"),
		"name":         f.Get("film_name", "name"),
		"color_type":   string(ColorType(f.Get("film_type", "color_type"))),
		"discontinued": discontinued(f),
	}
	setIf(fields, "iso_speed", f.Get("iso_speed"))
	setIf(fields, "grain_structure", f.Get("grain_structure"))
	setIf(fields, "reciprocity_failure", f.Get("reciprocity_failure_characteristics", "reciprocity_failure"))
	setIf(fields, "description", f.Get("description"))
	fields["manufacturer_notes"] = stringsAsAny(Lines(f.Get("manufacturer_notes")))
	return domain.Candidate{Kind: domain.EntityFilm, Fields: fields}
}

// DeveloperCandidate maps a developer form.
func DeveloperCandidate(f Form) domain.Candidate {
	fields := map[string]any{
		"name":          f.Get("developer_name", "name"),
		"manufacturer":  f.Get("manufacturer"),
		"type":          f.Get("developer_type", "type"),
		"film_or_paper": f.Get("intended_use", "film_or_paper"),
		"discontinued":  discontinued(f),
		"datasheet_url": stringsAsAny(URLs(f.Get("datasheet_urls", "datasheet_url"))),
		"dilutions":     Dilutions(f.Get("common_dilutions", "dilutions")),
	}
	setIf(fields, "working_life_hours", f.Get("working_life_hours"))
	setIf(fields, "stock_life_months", f.Get("stock_life_months"))
	setIf(fields, "notes", f.Get("notes"))
	setIf(fields, "mixing_instructions", f.Get("mixing_instructions"))
	setIf(fields, "safety_notes", f.Get("safety_notes"))
	return domain.Candidate{Kind: domain.EntityDeveloper, Fields: fields}
}

// CombinationCandidate maps a development combination form. References that
// do not resolve are passed through as written so the reference check
// reports them.
func CombinationCandidate(f Form, lookup Lookup) domain.Candidate {
	brand, filmName := f.Get("film_brand"), f.Get("film_name")
	manufacturer, devName := f.Get("developer_manufacturer"), f.Get("developer_name")
	dilution := f.Get("dilution_name", "dilution")

	fields := map[string]any{
		"name":          f.Get("combination_name", "name"),
		"film_stock_id": strings.TrimSpace(brand + " " + filmName),
		"developer_id":  strings.TrimSpace(manufacturer + " " + devName),
		"temperature_f": orDefault(f.Get("temperature_f", "temperature"), "68"),
		"push_pull":     PushPull(f.Get("push_pull_stops", "push_pull")),
	}
	setIf(fields, "time_minutes", f.Get("time_minutes"))
	setIf(fields, "shooting_iso", f.Get("shooting_iso"))
	setIf(fields, "agitation_schedule", f.Get("agitation_schedule"))
	setIf(fields, "notes", f.Get("notes"))

	if film, ok := lookup.FilmByName(brand, filmName); ok {
		fields["film_stock_id"] = film.ID
	}
	dev, devOK := lookup.DeveloperByName(manufacturer, devName)
	if devOK {
		fields["developer_id"] = dev.ID
	}
	if id, ok := matchDilution(dev, dilution); devOK && ok {
		fields["dilution_id"] = string(id)
	} else if dilution != "" {
		fields["custom_dilution"] = dilution
	}
	return domain.Candidate{Kind: domain.EntityCombination, Fields: fields}
}

// FormatCandidate maps a format form.
func FormatCandidate(f Form) domain.Candidate {
	fields := map[string]any{"name": f.Get("format_name", "name")}
	setIf(fields, "description", f.Get("description"))
	return domain.Candidate{Kind: domain.EntityFormat, Fields: fields}
}

func matchDilution(dev domain.Developer, text string) (domain.LocalID, bool) {
	if text == "" {
		return "", false
	}
	for _, dil := range dev.Dilutions {
		if strings.EqualFold(dil.Name, text) || strings.EqualFold(dil.Ratio, text) {
			return dil.ID, true
		}
	}
	return "", false
}

// ColorType maps the film type selection onto a color type. Unrecognized
// text is returned lower-cased so schema validation can report it.
func ColorType(text string) domain.ColorType {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case lower == "":
		return ""
	case strings.Contains(text, "Black & White") || strings.Contains(lower, "bw") || strings.Contains(lower, "black and white"):
		return domain.ColorBW
	case strings.Contains(lower, "slide") || strings.Contains(lower, "transparency"):
		return domain.ColorSlide
	case strings.Contains(lower, "color") || strings.Contains(lower, "colour"):
		return domain.ColorColor
	}
	return domain.ColorType(lower)
}

// Dilutions parses "Name:Ratio" lines, numbering them from 1. Lines without
// a colon are skipped.
func Dilutions(text string) []any {
	out := []any{}
	for _, line := range Lines(text) {
		name, ratio, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out = append(out, map[string]any{
			"id":       float64(len(out) + 1),
			"name":     strings.TrimSpace(name),
			"dilution": strings.TrimSpace(ratio),
		})
	}
	return out
}

// URLs returns the http(s) lines of text.
func URLs(text string) []string {
	var out []string
	for _, line := range Lines(text) {
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			out = append(out, line)
		}
	}
	return out
}

// PushPull normalizes a push/pull answer such as "+1", "-0.5 stops" or
// "none". The result is left for the decoder to parse.
func PushPull(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "stops"), "stop"))
	switch s {
	case "", "none", "0", "+0", "-0":
		return "0"
	}
	return strings.ReplaceAll(s, " ", "")
}

func discontinued(f Form) int {
	if strings.Contains(strings.ToLower(f.Get("current_production_status", "production_status")), "discontinued") {
		return 1
	}
	return 0
}

func setIf(fields map[string]any, key, value string) {
	if value != "" {
		fields[key] = value
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func stringsAsAny(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
