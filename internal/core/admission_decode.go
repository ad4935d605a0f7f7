package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"dorkroom/pkg/domain"
)

const ruleSchema = "schema"

// fieldReader pulls typed values out of a candidate's untyped fields and
// records a schema violation for every field it cannot interpret.
type fieldReader struct {
	kind       EntityKind
	id         string
	fields     map[string]any
	violations []Violation
}

func newFieldReader(c Candidate) *fieldReader {
	fields := c.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return &fieldReader{kind: c.Kind, id: c.ID, fields: fields}
}

func (r *fieldReader) fail(field, format string, args ...any) {
	r.violations = append(r.violations, Violation{
		Rule:     ruleSchema,
		Code:     domain.CodeSchema,
		Severity: SeverityBlock,
		Message:  fmt.Sprintf(format, args...),
		Entity:   r.kind,
		EntityID: r.id,
		Field:    field,
	})
}

func (r *fieldReader) lookup(name string) (any, bool) {
	v, ok := r.fields[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (r *fieldReader) str(name string, required bool) string {
	v, ok := r.lookup(name)
	if !ok {
		if required {
			r.fail(name, "%s is required", name)
		}
		return ""
	}
	s, isStr := v.(string)
	if !isStr {
		r.fail(name, "%s must be text, got %T", name, v)
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" && required {
		r.fail(name, "%s is required", name)
	}
	return s
}

func (r *fieldReader) optStr(name string) *string {
	s := r.str(name, false)
	if s == "" {
		return nil
	}
	return &s
}

func (r *fieldReader) num(name string, required bool) (float64, bool) {
	v, ok := r.lookup(name)
	if !ok {
		if required {
			r.fail(name, "%s is required", name)
		}
		return 0, false
	}
	f, err := toFloat(v)
	if err != nil {
		r.fail(name, "%s must be a number: %v", name, err)
		return 0, false
	}
	return f, true
}

func (r *fieldReader) optNum(name string) *float64 {
	if s, isStr := r.fields[name].(string); isStr && strings.TrimSpace(s) == "" {
		return nil
	}
	f, ok := r.num(name, false)
	if !ok {
		return nil
	}
	return &f
}

// flag accepts only the dataset's sentinels: the numbers 0 and 1 or their
// text forms. Booleans and words are schema violations.
func (r *fieldReader) flag(name string) domain.Flag {
	v, ok := r.lookup(name)
	if !ok {
		return false
	}
	var raw string
	switch t := v.(type) {
	case bool:
		r.fail(name, "%s must be 0 or 1, got %t", name, t)
		return false
	case string:
		raw = strings.TrimSpace(t)
	default:
		f, err := toFloat(v)
		if err != nil {
			r.fail(name, "%s must be 0 or 1", name)
			return false
		}
		raw = strconv.FormatFloat(f, 'f', -1, 64)
	}
	switch raw {
	case "0":
		return false
	case "1":
		return true
	}
	r.fail(name, "%s must be 0 or 1, got %q", name, raw)
	return false
}

func (r *fieldReader) strList(name string) []string {
	v, ok := r.lookup(name)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		if t = strings.TrimSpace(t); t != "" {
			return []string{t}
		}
		return nil
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, isStr := item.(string)
			if !isStr {
				r.fail(fmt.Sprintf("%s[%d]", name, i), "%s entries must be text", name)
				continue
			}
			out = append(out, s)
		}
		return out
	default:
		r.fail(name, "%s must be a list of text, got %T", name, v)
		return nil
	}
}

func (r *fieldReader) textOrNumber(name string) *domain.TextOrNumber {
	v, ok := r.lookup(name)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		if t = strings.TrimSpace(t); t == "" {
			return nil
		}
		return domain.Text(t)
	default:
		f, err := toFloat(v)
		if err != nil {
			r.fail(name, "%s must be text or a number", name)
			return nil
		}
		return &domain.TextOrNumber{Value: strconv.FormatFloat(f, 'f', -1, 64), Numeric: true}
	}
}

func (r *fieldReader) localID(name string) *domain.LocalID {
	v, ok := r.lookup(name)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case string:
		if t = strings.TrimSpace(t); t == "" {
			return nil
		}
		return domain.NewLocalID(t)
	default:
		f, err := toFloat(v)
		if err != nil {
			r.fail(name, "%s must be a number or text", name)
			return nil
		}
		return domain.NewLocalID(strconv.FormatFloat(f, 'f', -1, 64))
	}
}

func (r *fieldReader) dilutions(name string) []Dilution {
	v, ok := r.lookup(name)
	if !ok {
		return []Dilution{}
	}
	switch t := v.(type) {
	case []Dilution:
		return append([]Dilution{}, t...)
	case []any:
		out := make([]Dilution, 0, len(t))
		for i, item := range t {
			field := fmt.Sprintf("%s[%d]", name, i)
			m, isMap := item.(map[string]any)
			if !isMap {
				r.fail(field, "dilution must be an object")
				continue
			}
			sub := &fieldReader{kind: r.kind, id: r.id, fields: m}
			dil := Dilution{Name: sub.str("name", false), Ratio: sub.str("dilution", false)}
			if id := sub.localID("id"); id != nil {
				dil.ID = *id
			}
			for _, v := range sub.violations {
				v.Field = field + "." + v.Field
				r.violations = append(r.violations, v)
			}
			out = append(out, dil)
		}
		return out
	default:
		r.fail(name, "%s must be a list, got %T", name, v)
		return nil
	}
}

func toFloat(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "+")), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q", t)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not a finite number", f)
	}
	return f, nil
}

// decodeCandidate turns a candidate into a typed record. The returned
// violations cover both decoding problems and the record's own validation
// predicate; record is nil only for unknown kinds.
func decodeCandidate(c Candidate) (any, []Violation, error) {
	r := newFieldReader(c)
	var (
		record any
		checks []Violation
	)
	switch c.Kind {
	case EntityFilm:
		f := Film{
			ID:                 c.ID,
			Brand:              r.str("brand", true),
			Name:               r.str("name", true),
			ColorType:          domain.ColorType(strings.ToLower(r.str("color_type", true))),
			GrainStructure:     r.str("grain_structure", false),
			ReciprocityFailure: r.textOrNumber("reciprocity_failure"),
			Discontinued:       r.flag("discontinued"),
			Description:        r.str("description", false),
			ManufacturerNotes:  r.strList("manufacturer_notes"),
			StaticImageURL:     r.str("static_image_url", false),
			DateAdded:          r.str("date_added", false),
		}
		f.ISOSpeed, _ = r.num("iso_speed", true)
		if f.ManufacturerNotes == nil {
			f.ManufacturerNotes = []string{}
		}
		record, checks = f, f.Validate()
	case EntityDeveloper:
		d := Developer{
			ID:                 c.ID,
			Name:               r.str("name", true),
			Manufacturer:       r.str("manufacturer", true),
			Type:               domain.DeveloperType(strings.ToLower(r.str("type", true))),
			FilmOrPaper:        domain.FilmOrPaper(strings.ToLower(r.str("film_or_paper", true))),
			WorkingLifeHours:   r.optNum("working_life_hours"),
			StockLifeMonths:    r.optNum("stock_life_months"),
			Discontinued:       r.flag("discontinued"),
			Notes:              r.str("notes", false),
			MixingInstructions: r.str("mixing_instructions", false),
			SafetyNotes:        r.str("safety_notes", false),
			DatasheetURL:       domain.StringList(r.strList("datasheet_url")),
			Dilutions:          r.dilutions("dilutions"),
		}
		record, checks = d, d.Validate()
	case EntityCombination:
		cb := Combination{
			ID:                c.ID,
			Name:              r.str("name", true),
			FilmStockID:       r.str("film_stock_id", true),
			DeveloperID:       r.str("developer_id", true),
			DilutionID:        r.localID("dilution_id"),
			CustomDilution:    r.optStr("custom_dilution"),
			AgitationSchedule: r.str("agitation_schedule", false),
			Notes:             r.str("notes", false),
		}
		cb.TemperatureF, _ = r.num("temperature_f", true)
		cb.TimeMinutes, _ = r.num("time_minutes", true)
		cb.ShootingISO, _ = r.num("shooting_iso", true)
		cb.PushPull, _ = r.num("push_pull", false)
		record, checks = cb, cb.Validate()
	case EntityFormat:
		f := Format{ID: c.ID, Name: r.str("name", true), Description: r.str("description", false)}
		record, checks = f, f.Validate()
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
	return record, mergeSchema(r.violations, checks), nil
}

// mergeSchema appends validation findings for fields that did not already
// fail to decode, so a malformed field is reported once.
func mergeSchema(decoded, checks []Violation) []Violation {
	seen := make(map[string]struct{}, len(decoded))
	for _, v := range decoded {
		seen[v.Field] = struct{}{}
	}
	out := decoded
	for _, v := range checks {
		if _, dup := seen[v.Field]; dup {
			continue
		}
		out = append(out, v)
	}
	return out
}

// withID returns record with its identifier replaced.
func withID(record any, id string) any {
	switch r := record.(type) {
	case Film:
		r.ID = id
		return r
	case Developer:
		r.ID = id
		return r
	case Combination:
		r.ID = id
		return r
	case Format:
		r.ID = id
		return r
	}
	return record
}
