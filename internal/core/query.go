package core

import (
	"context"
	"strings"

	"dorkroom/internal/similarity"
	"dorkroom/pkg/domain"
)

const (
	opSearchFilms        = "search_films"
	opSearchDevelopers   = "search_developers"
	opFuzzyFilms         = "fuzzy_films"
	opFuzzyDevelopers    = "fuzzy_developers"
	opFuzzyCombinations  = "fuzzy_combinations"
	opSearchAll          = "search_all"
	opGetFilm            = "get_film"
	opGetDeveloper       = "get_developer"
	opGetCombination     = "get_combination"
	opGetFormat          = "get_format"
	opCombosForFilm      = "combinations_for_film"
	opCombosForDeveloper = "combinations_for_developer"
	opResolveCombination = "resolve_combination"
	opListFilms          = "list_films"
	opListDevelopers     = "list_developers"
	opListCombinations   = "list_combinations"
	opListFormats        = "list_formats"
	opAdmit              = "admit"
	opReload             = "reload"
	opExport             = "export"
)

// Scored pairs a record with its fuzzy relevance score.
type Scored[T any] struct {
	Record T       `json:"record"`
	Score  float64 `json:"score"`
}

// SearchResults groups fuzzy matches across record kinds.
type SearchResults struct {
	Films        []Scored[Film]        `json:"films"`
	Developers   []Scored[Developer]   `json:"developers"`
	Combinations []Scored[Combination] `json:"combinations"`
}

// ResolvedCombination is a combination with its references expanded.
type ResolvedCombination struct {
	Combination Combination `json:"combination"`
	Film        Film        `json:"film"`
	Developer   Developer   `json:"developer"`
	Dilution    *Dilution   `json:"dilution,omitempty"`
}

// SearchFilms returns films whose name or brand contains text,
// case-insensitively, in collection order. A non-empty colorType must match
// exactly.
func (e *Engine) SearchFilms(ctx context.Context, text string, colorType domain.ColorType) (out []Film, err error) {
	defer e.observe(ctx, opSearchFilms)(&err)
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(text))
	out = []Film{}
	for _, f := range st.snapshot.Films {
		if colorType != "" && f.ColorType != colorType {
			continue
		}
		if containsFold(needle, f.Name, f.Brand) {
			out = append(out, domain.CloneFilm(f))
		}
	}
	return out, nil
}

// SearchDevelopers returns developers whose name or manufacturer contains
// text, case-insensitively, in collection order.
func (e *Engine) SearchDevelopers(ctx context.Context, text string) (out []Developer, err error) {
	defer e.observe(ctx, opSearchDevelopers)(&err)
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(text))
	out = []Developer{}
	for _, d := range st.snapshot.Developers {
		if containsFold(needle, d.Name, d.Manufacturer) {
			out = append(out, domain.CloneDeveloper(d))
		}
	}
	return out, nil
}

func containsFold(needle string, haystacks ...string) bool {
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

// FuzzySearchFilms ranks films against query. A non-positive limit uses the
// engine default.
func (e *Engine) FuzzySearchFilms(ctx context.Context, query string, limit int, colorType domain.ColorType) (out []Scored[Film], err error) {
	defer e.observe(ctx, opFuzzyFilms)(&err)
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	films := st.snapshot.Films
	if colorType != "" {
		films = make([]Film, 0, len(st.snapshot.Films))
		for _, f := range st.snapshot.Films {
			if f.ColorType == colorType {
				films = append(films, f)
			}
		}
	}
	matches := similarity.Rank(e.scorer, query, films, filmFields, e.limitOr(limit))
	return scored(matches, domain.CloneFilm), nil
}

// FuzzySearchDevelopers ranks developers against query.
func (e *Engine) FuzzySearchDevelopers(ctx context.Context, query string, limit int) (out []Scored[Developer], err error) {
	defer e.observe(ctx, opFuzzyDevelopers)(&err)
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	matches := similarity.Rank(e.scorer, query, st.snapshot.Developers, developerFields, e.limitOr(limit))
	return scored(matches, domain.CloneDeveloper), nil
}

// FuzzySearchCombinations ranks indexed combinations against query. Each
// combination is also matched through the names of its film and developer.
func (e *Engine) FuzzySearchCombinations(ctx context.Context, query string, limit int) (out []Scored[Combination], err error) {
	defer e.observe(ctx, opFuzzyCombinations)(&err)
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	matches := similarity.Rank(e.scorer, query, st.idx.Combinations(), combinationFields(st.idx), e.limitOr(limit))
	return scored(matches, domain.CloneCombination), nil
}

// SearchAll runs the fuzzy search over films, developers and combinations.
func (e *Engine) SearchAll(ctx context.Context, query string, limit int) (out SearchResults, err error) {
	defer e.observe(ctx, opSearchAll)(&err)
	st, err := e.current()
	if err != nil {
		return SearchResults{}, err
	}
	limit = e.limitOr(limit)
	out.Films = scored(similarity.Rank(e.scorer, query, st.snapshot.Films, filmFields, limit), domain.CloneFilm)
	out.Developers = scored(similarity.Rank(e.scorer, query, st.snapshot.Developers, developerFields, limit), domain.CloneDeveloper)
	out.Combinations = scored(similarity.Rank(e.scorer, query, st.idx.Combinations(), combinationFields(st.idx), limit), domain.CloneCombination)
	return out, nil
}

func (e *Engine) limitOr(limit int) int {
	if limit <= 0 {
		return e.limit
	}
	return limit
}

func scored[T any](matches []similarity.Match[T], clone func(T) T) []Scored[T] {
	out := make([]Scored[T], 0, len(matches))
	for _, m := range matches {
		out = append(out, Scored[T]{Record: clone(m.Item), Score: m.Score})
	}
	return out
}

func filmFields(f Film) []similarity.Field {
	return []similarity.Field{
		similarity.Primary(f.Name),
		similarity.Primary(f.Brand),
		similarity.Primary(f.DisplayName()),
		similarity.Descriptive(f.Description),
		similarity.Descriptive(strings.Join(f.ManufacturerNotes, " ")),
	}
}

func developerFields(d Developer) []similarity.Field {
	return []similarity.Field{
		similarity.Primary(d.Name),
		similarity.Primary(d.Manufacturer),
		similarity.Primary(d.DisplayName()),
		similarity.Descriptive(d.Notes),
	}
}

func combinationFields(idx *Indexes) func(Combination) []similarity.Field {
	return func(c Combination) []similarity.Field {
		parts := []string{c.Name}
		if f, ok := idx.FindFilm(c.FilmStockID); ok {
			parts = append(parts, f.Brand, f.Name)
		}
		if d, ok := idx.FindDeveloper(c.DeveloperID); ok {
			parts = append(parts, d.Name)
		}
		return []similarity.Field{
			similarity.Primary(c.Name),
			similarity.Primary(strings.Join(parts, " ")),
			similarity.Descriptive(c.Notes),
		}
	}
}

// GetFilm returns the film with id. A miss is reported through the boolean.
func (e *Engine) GetFilm(ctx context.Context, id string) (f Film, found bool, err error) {
	defer e.observe(ctx, opGetFilm)(&err)
	st, err := e.current()
	if err != nil {
		return Film{}, false, err
	}
	f, found = st.idx.FindFilm(id)
	return domain.CloneFilm(f), found, nil
}

// GetDeveloper returns the developer with id.
func (e *Engine) GetDeveloper(ctx context.Context, id string) (d Developer, found bool, err error) {
	defer e.observe(ctx, opGetDeveloper)(&err)
	st, err := e.current()
	if err != nil {
		return Developer{}, false, err
	}
	d, found = st.idx.FindDeveloper(id)
	return domain.CloneDeveloper(d), found, nil
}

// GetCombination returns the indexed combination with id.
func (e *Engine) GetCombination(ctx context.Context, id string) (c Combination, found bool, err error) {
	defer e.observe(ctx, opGetCombination)(&err)
	st, err := e.current()
	if err != nil {
		return Combination{}, false, err
	}
	c, found = st.idx.FindCombination(id)
	return domain.CloneCombination(c), found, nil
}

// GetFormat returns the format with id.
func (e *Engine) GetFormat(ctx context.Context, id string) (f Format, found bool, err error) {
	defer e.observe(ctx, opGetFormat)(&err)
	st, err := e.current()
	if err != nil {
		return Format{}, false, err
	}
	f, found = st.idx.FindFormat(id)
	return f, found, nil
}

// CombinationsForFilm returns the combinations referencing filmID. An unknown
// id yields an empty slice.
func (e *Engine) CombinationsForFilm(ctx context.Context, filmID string) (out []Combination, err error) {
	defer e.observe(ctx, opCombosForFilm)(&err)
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	return st.idx.CombinationsForFilm(filmID), nil
}

// CombinationsForDeveloper returns the combinations referencing developerID.
func (e *Engine) CombinationsForDeveloper(ctx context.Context, developerID string) (out []Combination, err error) {
	defer e.observe(ctx, opCombosForDeveloper)(&err)
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	return st.idx.CombinationsForDeveloper(developerID), nil
}

// ResolveCombination expands a combination's film, developer and dilution.
// Dangling references are reported as an IntegrityError.
func (e *Engine) ResolveCombination(ctx context.Context, id string) (out ResolvedCombination, err error) {
	defer e.observe(ctx, opResolveCombination)(&err)
	st, err := e.current()
	if err != nil {
		return ResolvedCombination{}, err
	}
	c, ok := st.idx.FindCombination(id)
	if !ok {
		if excluded := st.excludedViolations(EntityCombination, id); len(excluded) > 0 {
			return ResolvedCombination{}, IntegrityError{Violations: excluded}
		}
		return ResolvedCombination{}, ErrNotFound{Entity: EntityCombination, ID: id}
	}
	if dangling := st.idx.danglingReferences(c); len(dangling) > 0 {
		violations := make([]Violation, 0, len(dangling))
		for _, d := range dangling {
			violations = append(violations, Violation{
				Rule:     ruleLoadIntegrity,
				Code:     domain.CodeIntegrity,
				Severity: SeverityBlock,
				Message:  d.msg,
				Entity:   EntityCombination,
				EntityID: c.ID,
				Field:    d.field,
			})
		}
		return ResolvedCombination{}, IntegrityError{Violations: violations}
	}
	film, _ := st.idx.FindFilm(c.FilmStockID)
	dev, _ := st.idx.FindDeveloper(c.DeveloperID)
	out = ResolvedCombination{
		Combination: domain.CloneCombination(c),
		Film:        domain.CloneFilm(film),
		Developer:   domain.CloneDeveloper(dev),
	}
	if c.DilutionID != nil {
		dil, _ := dev.FindDilution(*c.DilutionID)
		out.Dilution = &dil
	}
	return out, nil
}

// excludedViolations returns the load-time integrity findings recorded for a
// record that the index left out, raised to blocking severity.
func (st *engineState) excludedViolations(kind EntityKind, id string) []Violation {
	var out []Violation
	for _, w := range st.warnings {
		if w.Entity != kind || w.EntityID != id || w.Code != domain.CodeIntegrity {
			continue
		}
		w.Severity = SeverityBlock
		out = append(out, w)
	}
	return out
}

// ListFilms returns every film in collection order.
func (e *Engine) ListFilms(ctx context.Context) (out []Film, err error) {
	defer e.observe(ctx, opListFilms)(&err)
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	out = make([]Film, 0, len(st.snapshot.Films))
	for _, f := range st.snapshot.Films {
		out = append(out, domain.CloneFilm(f))
	}
	return out, nil
}

// ListDevelopers returns every developer in collection order.
func (e *Engine) ListDevelopers(ctx context.Context) (out []Developer, err error) {
	defer e.observe(ctx, opListDevelopers)(&err)
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	out = make([]Developer, 0, len(st.snapshot.Developers))
	for _, d := range st.snapshot.Developers {
		out = append(out, domain.CloneDeveloper(d))
	}
	return out, nil
}

// ListCombinations returns the indexed combinations in collection order.
func (e *Engine) ListCombinations(ctx context.Context) (out []Combination, err error) {
	defer e.observe(ctx, opListCombinations)(&err)
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	return st.idx.Combinations(), nil
}

// ListFormats returns every format in collection order.
func (e *Engine) ListFormats(ctx context.Context) (out []Format, err error) {
	defer e.observe(ctx, opListFormats)(&err)
	st, err := e.current()
	if err != nil {
		return nil, err
	}
	return append([]Format{}, st.snapshot.Formats...), nil
}
