package core

import (
	"fmt"
	"strings"

	"dorkroom/pkg/domain"
)

// IndexPolicy decides what happens to combinations with dangling references
// at load time.
type IndexPolicy string

const (
	// PolicyExclude indexes everything internally consistent and reports
	// dangling combinations as warnings.
	PolicyExclude IndexPolicy = "exclude"
	// PolicyKeep indexes every combination and reports dangling ones.
	PolicyKeep IndexPolicy = "keep"
	// PolicyStrict rejects the load when any integrity violation exists.
	PolicyStrict IndexPolicy = "strict"
)

// ParseIndexPolicy maps a config string onto an IndexPolicy.
func ParseIndexPolicy(raw string) (IndexPolicy, error) {
	switch p := IndexPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PolicyExclude, nil
	case PolicyExclude, PolicyKeep, PolicyStrict:
		return p, nil
	default:
		return "", fmt.Errorf("unknown index policy %q", raw)
	}
}

const ruleLoadIntegrity = "load_integrity"

// Indexes holds the lookup and adjacency structures built from one snapshot.
// Values are positions into the snapshot's collections, so iteration follows
// collection order. Indexes are never mutated after BuildIndexes returns.
type Indexes struct {
	snapshot    *Snapshot
	films       map[string]int
	developers  map[string]int
	combos      map[string]int
	formats     map[string]int
	comboOrder  []int
	byFilm      map[string][]int
	byDeveloper map[string][]int
}

// BuildIndexes indexes snap and reports integrity violations. Under
// PolicyStrict any violation turns into an IntegrityError; otherwise the
// violations are returned as warnings alongside a usable index.
func BuildIndexes(snap *Snapshot, policy IndexPolicy) (*Indexes, []Violation, error) {
	if snap == nil {
		snap = &Snapshot{}
	}
	if policy == "" {
		policy = PolicyExclude
	}
	idx := &Indexes{
		snapshot:    snap,
		films:       make(map[string]int, len(snap.Films)),
		developers:  make(map[string]int, len(snap.Developers)),
		combos:      make(map[string]int, len(snap.Combinations)),
		formats:     make(map[string]int, len(snap.Formats)),
		byFilm:      make(map[string][]int),
		byDeveloper: make(map[string][]int),
	}
	var violations []Violation
	report := func(code domain.ViolationCode, kind EntityKind, id, field, msg string) {
		violations = append(violations, Violation{
			Rule:     ruleLoadIntegrity,
			Code:     code,
			Severity: SeverityWarn,
			Message:  msg,
			Entity:   kind,
			EntityID: id,
			Field:    field,
		})
	}

	filmKeys := make(map[string]string, len(snap.Films))
	for i, f := range snap.Films {
		if _, dup := idx.films[f.ID]; dup {
			report(domain.CodeIntegrity, EntityFilm, f.ID, "id", fmt.Sprintf("duplicate film id %s", f.ID))
			continue
		}
		idx.films[f.ID] = i
		if other, dup := filmKeys[f.NaturalKey()]; dup {
			report(domain.CodeDuplicate, EntityFilm, f.ID, "name", fmt.Sprintf("film %q duplicates %s", f.DisplayName(), other))
		} else {
			filmKeys[f.NaturalKey()] = f.ID
		}
	}

	devKeys := make(map[string]string, len(snap.Developers))
	for i, d := range snap.Developers {
		if _, dup := idx.developers[d.ID]; dup {
			report(domain.CodeIntegrity, EntityDeveloper, d.ID, "id", fmt.Sprintf("duplicate developer id %s", d.ID))
			continue
		}
		idx.developers[d.ID] = i
		if other, dup := devKeys[d.NaturalKey()]; dup {
			report(domain.CodeDuplicate, EntityDeveloper, d.ID, "name", fmt.Sprintf("developer %q duplicates %s", d.DisplayName(), other))
		} else {
			devKeys[d.NaturalKey()] = d.ID
		}
		seen := make(map[domain.LocalID]struct{}, len(d.Dilutions))
		for _, dil := range d.Dilutions {
			if _, dup := seen[dil.ID]; dup {
				report(domain.CodeIntegrity, EntityDeveloper, d.ID, "dilutions", fmt.Sprintf("developer %s repeats dilution id %s", d.ID, dil.ID))
			}
			seen[dil.ID] = struct{}{}
		}
	}

	for i, f := range snap.Formats {
		if _, dup := idx.formats[f.ID]; dup {
			report(domain.CodeIntegrity, EntityFormat, f.ID, "id", fmt.Sprintf("duplicate format id %s", f.ID))
			continue
		}
		idx.formats[f.ID] = i
	}

	for i, c := range snap.Combinations {
		if _, dup := idx.combos[c.ID]; dup {
			report(domain.CodeIntegrity, EntityCombination, c.ID, "id", fmt.Sprintf("duplicate combination id %s", c.ID))
			continue
		}
		dangling := idx.danglingReferences(c)
		for _, v := range dangling {
			report(domain.CodeIntegrity, EntityCombination, c.ID, v.field, v.msg)
		}
		if c.DilutionID != nil && c.CustomDilution != nil {
			report(domain.CodeSchema, EntityCombination, c.ID, "dilution_id", fmt.Sprintf("combination %s sets both dilution_id and custom_dilution", c.ID))
		}
		if len(dangling) > 0 && policy == PolicyExclude {
			continue
		}
		idx.combos[c.ID] = i
		idx.comboOrder = append(idx.comboOrder, i)
		idx.byFilm[c.FilmStockID] = append(idx.byFilm[c.FilmStockID], i)
		idx.byDeveloper[c.DeveloperID] = append(idx.byDeveloper[c.DeveloperID], i)
	}

	if policy == PolicyStrict && len(violations) > 0 {
		for i := range violations {
			violations[i].Severity = SeverityBlock
		}
		return nil, violations, IntegrityError{Violations: violations}
	}
	return idx, violations, nil
}

type danglingRef struct {
	field string
	msg   string
}

// danglingReferences lists the references of c that do not resolve.
func (idx *Indexes) danglingReferences(c Combination) []danglingRef {
	var out []danglingRef
	if _, ok := idx.films[c.FilmStockID]; !ok {
		out = append(out, danglingRef{"film_stock_id", fmt.Sprintf("combination %s references missing film %s", c.ID, c.FilmStockID)})
	}
	pos, ok := idx.developers[c.DeveloperID]
	if !ok {
		out = append(out, danglingRef{"developer_id", fmt.Sprintf("combination %s references missing developer %s", c.ID, c.DeveloperID)})
		return out
	}
	if c.DilutionID != nil {
		if _, ok := idx.snapshot.Developers[pos].FindDilution(*c.DilutionID); !ok {
			out = append(out, danglingRef{"dilution_id", fmt.Sprintf("combination %s references missing dilution %s of developer %s", c.ID, *c.DilutionID, c.DeveloperID)})
		}
	}
	return out
}

// Snapshot returns the snapshot the indexes were built from.
func (idx *Indexes) Snapshot() *Snapshot { return idx.snapshot }

// FindFilm looks up a film by id.
func (idx *Indexes) FindFilm(id string) (Film, bool) {
	pos, ok := idx.films[id]
	if !ok {
		return Film{}, false
	}
	return idx.snapshot.Films[pos], true
}

// FindDeveloper looks up a developer by id.
func (idx *Indexes) FindDeveloper(id string) (Developer, bool) {
	pos, ok := idx.developers[id]
	if !ok {
		return Developer{}, false
	}
	return idx.snapshot.Developers[pos], true
}

// FindCombination looks up an indexed combination by id.
func (idx *Indexes) FindCombination(id string) (Combination, bool) {
	pos, ok := idx.combos[id]
	if !ok {
		return Combination{}, false
	}
	return idx.snapshot.Combinations[pos], true
}

// FindFormat looks up a format by id.
func (idx *Indexes) FindFormat(id string) (Format, bool) {
	pos, ok := idx.formats[id]
	if !ok {
		return Format{}, false
	}
	return idx.snapshot.Formats[pos], true
}

// Combinations returns the indexed combinations in collection order.
func (idx *Indexes) Combinations() []Combination {
	return idx.collect(idx.comboOrder)
}

// CombinationsForFilm returns the combinations referencing filmID.
func (idx *Indexes) CombinationsForFilm(filmID string) []Combination {
	return idx.collect(idx.byFilm[filmID])
}

// CombinationsForDeveloper returns the combinations referencing developerID.
func (idx *Indexes) CombinationsForDeveloper(developerID string) []Combination {
	return idx.collect(idx.byDeveloper[developerID])
}

func (idx *Indexes) collect(positions []int) []Combination {
	out := make([]Combination, 0, len(positions))
	for _, pos := range positions {
		out = append(out, domain.CloneCombination(idx.snapshot.Combinations[pos]))
	}
	return out
}

var _ RuleView = (*Indexes)(nil)
