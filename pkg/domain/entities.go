// Package domain defines the dataset records, value types, and rule
// evaluation primitives used by the dorkroom data engine.
package domain

import (
	"fmt"
	"strings"
)

// EntityKind identifies the type of record stored in the dataset.
type EntityKind string

// Supported entity kinds used in admissions, violations, and persistence buckets.
const (
	// EntityFilm identifies a film stock record.
	EntityFilm EntityKind = "film"
	// EntityDeveloper identifies a developer record.
	EntityDeveloper EntityKind = "developer"
	// EntityCombination identifies a film/developer development combination.
	EntityCombination EntityKind = "combination"
	// EntityFormat identifies a film format record.
	EntityFormat EntityKind = "format"
)

// ParseEntityKind maps user supplied kind names (including the issue-form
// spellings) onto an EntityKind.
func ParseEntityKind(raw string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "film", "films", "film-stock", "film_stock", "filmstock":
		return EntityFilm, nil
	case "developer", "developers", "dev":
		return EntityDeveloper, nil
	case "combination", "combinations", "combo", "development-combination":
		return EntityCombination, nil
	case "format", "formats":
		return EntityFormat, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", raw)
	}
}

// ColorType is the film emulsion family.
type ColorType string

const (
	ColorBW    ColorType = "bw"
	ColorColor ColorType = "color"
	ColorSlide ColorType = "slide"
)

// Valid reports whether c is one of the dataset's color types.
func (c ColorType) Valid() bool {
	switch c {
	case ColorBW, ColorColor, ColorSlide:
		return true
	}
	return false
}

// DeveloperType describes how a developer is supplied.
type DeveloperType string

const (
	DeveloperConcentrate DeveloperType = "concentrate"
	DeveloperPowder      DeveloperType = "powder"
	DeveloperLiquid      DeveloperType = "liquid"
	DeveloperOneShot     DeveloperType = "one-shot"
)

// Valid reports whether t is one of the dataset's developer types.
func (t DeveloperType) Valid() bool {
	switch t {
	case DeveloperConcentrate, DeveloperPowder, DeveloperLiquid, DeveloperOneShot:
		return true
	}
	return false
}

// FilmOrPaper describes the intended use of a developer.
type FilmOrPaper string

const (
	UseFilm  FilmOrPaper = "film"
	UsePaper FilmOrPaper = "paper"
	UseBoth  FilmOrPaper = "both"
)

// Valid reports whether u is one of the dataset's intended uses.
func (u FilmOrPaper) Valid() bool {
	switch u {
	case UseFilm, UsePaper, UseBoth:
		return true
	}
	return false
}

// Film represents a film stock.
type Film struct {
	ID                 string        `json:"id"`
	Brand              string        `json:"brand"`
	Name               string        `json:"name"`
	ISOSpeed           float64       `json:"iso_speed"`
	ColorType          ColorType     `json:"color_type"`
	GrainStructure     string        `json:"grain_structure,omitempty"`
	ReciprocityFailure *TextOrNumber `json:"reciprocity_failure,omitempty"`
	Discontinued       Flag          `json:"discontinued"`
	Description        string        `json:"description,omitempty"`
	ManufacturerNotes  []string      `json:"manufacturer_notes"`
	StaticImageURL     string        `json:"static_image_url,omitempty"`
	DateAdded          string        `json:"date_added,omitempty"`
}

// DisplayName joins brand and name the way the dataset presents films.
func (f Film) DisplayName() string { return joinNonEmpty(f.Brand, f.Name) }

// NaturalKey returns the case-insensitive uniqueness key (brand, name).
func (f Film) NaturalKey() string { return naturalKey(f.Brand, f.Name) }

// Dilution is a named dilution ratio local to its developer.
type Dilution struct {
	ID    LocalID `json:"id"`
	Name  string  `json:"name"`
	Ratio string  `json:"dilution"`
}

// Developer represents a film or paper developer and its dilutions.
type Developer struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Manufacturer       string        `json:"manufacturer"`
	Type               DeveloperType `json:"type"`
	FilmOrPaper        FilmOrPaper   `json:"film_or_paper"`
	WorkingLifeHours   *float64      `json:"working_life_hours,omitempty"`
	StockLifeMonths    *float64      `json:"stock_life_months,omitempty"`
	Discontinued       Flag          `json:"discontinued"`
	Notes              string        `json:"notes,omitempty"`
	MixingInstructions string        `json:"mixing_instructions,omitempty"`
	SafetyNotes        string        `json:"safety_notes,omitempty"`
	DatasheetURL       StringList    `json:"datasheet_url"`
	Dilutions          []Dilution    `json:"dilutions"`
}

// DisplayName joins manufacturer and name.
func (d Developer) DisplayName() string { return joinNonEmpty(d.Manufacturer, d.Name) }

// NaturalKey returns the case-insensitive uniqueness key (manufacturer, name).
func (d Developer) NaturalKey() string { return naturalKey(d.Manufacturer, d.Name) }

// FindDilution resolves a dilution by its local id.
func (d Developer) FindDilution(id LocalID) (Dilution, bool) {
	for _, dil := range d.Dilutions {
		if dil.ID == id {
			return dil, true
		}
	}
	return Dilution{}, false
}

// FindDilutionByName matches a dilution by name or ratio, case-insensitively.
func (d Developer) FindDilutionByName(label string) (Dilution, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Dilution{}, false
	}
	for _, dil := range d.Dilutions {
		if strings.EqualFold(dil.Name, label) || strings.EqualFold(dil.Ratio, label) {
			return dil, true
		}
	}
	return Dilution{}, false
}

// Combination is a tested development recipe for a film in a developer.
// Exactly one of DilutionID and CustomDilution is set.
type Combination struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	FilmStockID       string   `json:"film_stock_id"`
	DeveloperID       string   `json:"developer_id"`
	DilutionID        *LocalID `json:"dilution_id"`
	CustomDilution    *string  `json:"custom_dilution"`
	TemperatureF      float64  `json:"temperature_f"`
	TimeMinutes       float64  `json:"time_minutes"`
	AgitationSchedule string   `json:"agitation_schedule"`
	PushPull          float64  `json:"push_pull"`
	ShootingISO       float64  `json:"shooting_iso"`
	Notes             string   `json:"notes,omitempty"`
}

// CombinationKey identifies a recipe independent of its id and name.
type CombinationKey struct {
	FilmStockID string
	DeveloperID string
	Dilution    string
	ShootingISO float64
	PushPull    float64
}

// NaturalKey returns the recipe identity used for exact duplicate detection.
func (c Combination) NaturalKey() CombinationKey {
	key := CombinationKey{
		FilmStockID: c.FilmStockID,
		DeveloperID: c.DeveloperID,
		ShootingISO: c.ShootingISO,
		PushPull:    c.PushPull,
	}
	switch {
	case c.DilutionID != nil:
		key.Dilution = "id:" + string(*c.DilutionID)
	case c.CustomDilution != nil:
		key.Dilution = "custom:" + strings.ToLower(strings.TrimSpace(*c.CustomDilution))
	}
	return key
}

// Format is a film format such as 35mm or 120.
type Format struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func naturalKey(a, b string) string {
	return strings.ToLower(strings.TrimSpace(a)) + "\x00" + strings.ToLower(strings.TrimSpace(b))
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
