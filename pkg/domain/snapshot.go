package domain

import "slices"

// Snapshot is an immutable materialization of the four collections at a point
// in time. Callers must not mutate a snapshot once it has been handed to the
// engine; admissions produce a new snapshot instead.
type Snapshot struct {
	Films        []Film        `json:"film_stocks"`
	Developers   []Developer   `json:"developers"`
	Combinations []Combination `json:"development_combinations"`
	Formats      []Format      `json:"formats"`
}

// Counts returns the number of records per kind.
func (s *Snapshot) Counts() map[EntityKind]int {
	if s == nil {
		return map[EntityKind]int{}
	}
	return map[EntityKind]int{
		EntityFilm:        len(s.Films),
		EntityDeveloper:   len(s.Developers),
		EntityCombination: len(s.Combinations),
		EntityFormat:      len(s.Formats),
	}
}

// Clone returns a deep copy so the result can be modified without affecting s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return &Snapshot{}
	}
	out := &Snapshot{
		Films:        make([]Film, len(s.Films)),
		Developers:   make([]Developer, len(s.Developers)),
		Combinations: make([]Combination, len(s.Combinations)),
		Formats:      slices.Clone(s.Formats),
	}
	for i, f := range s.Films {
		out.Films[i] = CloneFilm(f)
	}
	for i, d := range s.Developers {
		out.Developers[i] = CloneDeveloper(d)
	}
	for i, c := range s.Combinations {
		out.Combinations[i] = CloneCombination(c)
	}
	return out
}

// CloneFilm copies a film including its slices and pointers.
func CloneFilm(f Film) Film {
	f.ManufacturerNotes = slices.Clone(f.ManufacturerNotes)
	if f.ReciprocityFailure != nil {
		v := *f.ReciprocityFailure
		f.ReciprocityFailure = &v
	}
	return f
}

// CloneDeveloper copies a developer including its dilutions.
func CloneDeveloper(d Developer) Developer {
	d.DatasheetURL = slices.Clone(d.DatasheetURL)
	d.Dilutions = slices.Clone(d.Dilutions)
	if d.WorkingLifeHours != nil {
		v := *d.WorkingLifeHours
		d.WorkingLifeHours = &v
	}
	if d.StockLifeMonths != nil {
		v := *d.StockLifeMonths
		d.StockLifeMonths = &v
	}
	return d
}

// CloneCombination copies a combination including its optional references.
func CloneCombination(c Combination) Combination {
	if c.DilutionID != nil {
		v := *c.DilutionID
		c.DilutionID = &v
	}
	if c.CustomDilution != nil {
		v := *c.CustomDilution
		c.CustomDilution = &v
	}
	return c
}
