package domain

import (
	"fmt"
	"math"
	"strings"
)

const ruleSchema = "schema"

// Validate checks the film's field-level invariants.
func (f Film) Validate() []Violation {
	var out []Violation
	add := schemaAdder(&out, EntityFilm, f.ID)
	if strings.TrimSpace(f.Brand) == "" {
		add("brand", "brand is required")
	}
	if strings.TrimSpace(f.Name) == "" {
		add("name", "name is required")
	}
	if !positive(f.ISOSpeed) {
		add("iso_speed", fmt.Sprintf("iso_speed must be a positive number, got %v", f.ISOSpeed))
	}
	if !f.ColorType.Valid() {
		add("color_type", fmt.Sprintf("color_type must be one of bw, color, slide, got %q", f.ColorType))
	}
	return out
}

// Validate checks the developer's field-level invariants, including local
// uniqueness of dilution ids.
func (d Developer) Validate() []Violation {
	var out []Violation
	add := schemaAdder(&out, EntityDeveloper, d.ID)
	if strings.TrimSpace(d.Name) == "" {
		add("name", "name is required")
	}
	if strings.TrimSpace(d.Manufacturer) == "" {
		add("manufacturer", "manufacturer is required")
	}
	if !d.Type.Valid() {
		add("type", fmt.Sprintf("type must be one of concentrate, powder, liquid, one-shot, got %q", d.Type))
	}
	if !d.FilmOrPaper.Valid() {
		add("film_or_paper", fmt.Sprintf("film_or_paper must be one of film, paper, both, got %q", d.FilmOrPaper))
	}
	if d.WorkingLifeHours != nil && !nonNegative(*d.WorkingLifeHours) {
		add("working_life_hours", "working_life_hours must not be negative")
	}
	if d.StockLifeMonths != nil && !nonNegative(*d.StockLifeMonths) {
		add("stock_life_months", "stock_life_months must not be negative")
	}
	seen := make(map[LocalID]struct{}, len(d.Dilutions))
	for i, dil := range d.Dilutions {
		field := fmt.Sprintf("dilutions[%d]", i)
		if strings.TrimSpace(string(dil.ID)) == "" {
			add(field+".id", "dilution id is required")
		} else if _, dup := seen[dil.ID]; dup {
			add(field+".id", fmt.Sprintf("dilution id %s is not unique within the developer", dil.ID))
		}
		seen[dil.ID] = struct{}{}
		if strings.TrimSpace(dil.Ratio) == "" && strings.TrimSpace(dil.Name) == "" {
			add(field, "dilution needs a name or ratio")
		}
	}
	return out
}

// Validate checks the combination's field-level invariants. Reference
// resolution is a separate step because it needs the other collections.
func (c Combination) Validate() []Violation {
	var out []Violation
	add := schemaAdder(&out, EntityCombination, c.ID)
	if strings.TrimSpace(c.Name) == "" {
		add("name", "name is required")
	}
	if strings.TrimSpace(c.FilmStockID) == "" {
		add("film_stock_id", "film_stock_id is required")
	}
	if strings.TrimSpace(c.DeveloperID) == "" {
		add("developer_id", "developer_id is required")
	}
	if !positive(c.TimeMinutes) {
		add("time_minutes", fmt.Sprintf("time_minutes must be a positive number, got %v", c.TimeMinutes))
	}
	if !positive(c.ShootingISO) {
		add("shooting_iso", fmt.Sprintf("shooting_iso must be a positive number, got %v", c.ShootingISO))
	}
	if math.IsNaN(c.TemperatureF) || math.IsInf(c.TemperatureF, 0) {
		add("temperature_f", "temperature_f must be a number")
	}
	if !ValidPushPull(c.PushPull) {
		add("push_pull", fmt.Sprintf("push_pull must be a whole or half stop, got %v", c.PushPull))
	}
	return out
}

// Validate checks the format's field-level invariants.
func (f Format) Validate() []Violation {
	var out []Violation
	add := schemaAdder(&out, EntityFormat, f.ID)
	if strings.TrimSpace(f.Name) == "" {
		add("name", "name is required")
	}
	return out
}

// ValidPushPull reports whether stops is a whole or half stop offset.
func ValidPushPull(stops float64) bool {
	if math.IsNaN(stops) || math.IsInf(stops, 0) {
		return false
	}
	doubled := stops * 2
	return doubled == math.Trunc(doubled)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func schemaAdder(out *[]Violation, kind EntityKind, id string) func(field, msg string) {
	return func(field, msg string) {
		*out = append(*out, Violation{
			Rule:     ruleSchema,
			Code:     CodeSchema,
			Severity: SeverityBlock,
			Message:  msg,
			Entity:   kind,
			EntityID: id,
			Field:    field,
		})
	}
}
