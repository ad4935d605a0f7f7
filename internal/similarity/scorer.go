package similarity

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultThreshold is the minimum score a candidate needs to be returned.
const DefaultThreshold = 40.0

// Composite weights for primary fields.
const (
	weightTokenSort = 0.30
	weightPartial   = 0.25
	weightRatio     = 0.20
	weightTokenSet  = 0.15

	descriptiveWeight = 0.10
	primaryCutoff     = 0.5

	exactWordBonus = 10.0
)

// Field is one scored piece of candidate text. Weight is a hint: fields at or
// above 0.5 are primary and get the full composite scaled by the weight;
// lighter fields are descriptive and only contribute weight × partial ratio.
type Field struct {
	Text   string
	Weight float64
}

// Primary returns a full-weight primary field.
func Primary(text string) Field { return Field{Text: text, Weight: 1} }

// Descriptive returns a low-weight descriptive field.
func Descriptive(text string) Field { return Field{Text: text, Weight: descriptiveWeight} }

// IsPrimary reports whether the field takes part in the composite score.
func (f Field) IsPrimary() bool { return f.Weight >= primaryCutoff }

// Scorer ranks candidates against a query.
type Scorer struct {
	Threshold float64
}

// New returns a scorer with the given threshold; non-positive values fall
// back to DefaultThreshold.
func New(threshold float64) Scorer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Scorer{Threshold: threshold}
}

// Passes reports whether score clears the threshold.
func (s Scorer) Passes(score float64) bool { return score >= s.Threshold }

// Score returns the relevance of fields to query. The result is never
// negative but may exceed 100 once bonuses apply.
func (s Scorer) Score(query string, fields []Field) float64 {
	q := Normalize(query)
	if q == "" {
		return 0
	}

	var base, descriptive float64
	var primaryTexts []string
	for _, f := range fields {
		text := Normalize(f.Text)
		if text == "" || f.Weight <= 0 {
			continue
		}
		if !f.IsPrimary() {
			descriptive = max(descriptive, f.Weight*PartialRatio(q, text))
			continue
		}
		primaryTexts = append(primaryTexts, text)
		base = max(base, f.Weight*composite(q, text))
	}

	score := base + descriptive + wordBonus(q, primaryTexts) + prefixBonus(q, primaryTexts)
	return max(score, 0)
}

// Similarity compares two names on a 0–100 scale using only the weighted
// composite, without the query-oriented word and prefix bonuses.
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return 0
	}
	return 100 * composite(a, b) / compositeMax
}

const compositeMax = 100 * (weightTokenSort + weightPartial + weightRatio + weightTokenSet)

func composite(q, text string) float64 {
	return weightTokenSort*TokenSortRatio(q, text) +
		weightPartial*PartialRatio(q, text) +
		weightRatio*Ratio(q, text) +
		weightTokenSet*TokenSetRatio(q, text)
}

// wordBonus adds exactWordBonus for each distinct query token that appears as
// a whole token in any primary field.
func wordBonus(q string, texts []string) float64 {
	candidate := make(map[string]struct{})
	for _, t := range texts {
		for _, tok := range strings.Fields(t) {
			candidate[tok] = struct{}{}
		}
	}
	var bonus float64
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(q) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := candidate[tok]; ok {
			bonus += exactWordBonus
		}
	}
	return bonus
}

// prefixBonus rewards candidates that start with the query. A whole-field
// prefix earns 12.5–15 and a word prefix 10–12.5, scaled by how much of the
// matched text the query covers.
func prefixBonus(q string, texts []string) float64 {
	qLen := float64(utf8.RuneCountInString(q))
	var best float64
	for _, t := range texts {
		if strings.HasPrefix(t, q) {
			frac := qLen / float64(utf8.RuneCountInString(t))
			best = max(best, 12.5+2.5*frac)
			continue
		}
		for _, word := range strings.Fields(t) {
			if strings.HasPrefix(word, q) {
				frac := qLen / float64(utf8.RuneCountInString(word))
				best = max(best, 10+2.5*frac)
			}
		}
	}
	return best
}

// Match pairs an item with its score and original position.
type Match[T any] struct {
	Item  T
	Score float64
	Index int
}

// Rank scores every item, drops those under the threshold, and returns the
// rest ordered by descending score. Equal scores keep input order. A
// non-positive limit returns every passing match.
func Rank[T any](s Scorer, query string, items []T, fields func(T) []Field, limit int) []Match[T] {
	var matches []Match[T]
	for i, item := range items {
		score := s.Score(query, fields(item))
		if !s.Passes(score) {
			continue
		}
		matches = append(matches, Match[T]{Item: item, Score: score, Index: i})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
