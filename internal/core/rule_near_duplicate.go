package core

import (
	"context"
	"fmt"

	"dorkroom/internal/similarity"
	"dorkroom/pkg/domain"
)

const ruleNearDuplicate = "near_duplicate"

// NearDuplicateRule warns when a film or developer's display name scores at
// or above threshold against an existing record of the same kind. Names are
// compared with similarity.Similarity, so stocks that differ only in speed or
// model number ("Portra 160" and "Portra 400") stay below the default of 92
// while spelling variants ("TriX 400" and "Tri-X 400") clear it.
func NearDuplicateRule(threshold float64) domain.Rule {
	return nearDuplicateRule{threshold: threshold}
}

type nearDuplicateRule struct {
	threshold float64
}

func (nearDuplicateRule) Name() string { return ruleNearDuplicate }

func (r nearDuplicateRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	snap := view.Snapshot()
	for _, change := range changes {
		switch rec := change.After.(type) {
		case domain.Film:
			for _, existing := range snap.Films {
				if existing.ID == rec.ID {
					continue
				}
				if score := r.score(rec.DisplayName(), existing.DisplayName()); score >= r.threshold {
					res.Add(r.violation(domain.EntityFilm, rec.ID, rec.DisplayName(), existing.DisplayName(), existing.ID, score))
				}
			}
		case domain.Developer:
			for _, existing := range snap.Developers {
				if existing.ID == rec.ID {
					continue
				}
				if score := r.score(rec.DisplayName(), existing.DisplayName()); score >= r.threshold {
					res.Add(r.violation(domain.EntityDeveloper, rec.ID, rec.DisplayName(), existing.DisplayName(), existing.ID, score))
				}
			}
		}
	}
	return res, nil
}

func (nearDuplicateRule) score(candidate, existing string) float64 {
	return similarity.Similarity(candidate, existing)
}

func (nearDuplicateRule) violation(kind domain.EntityKind, id, name, otherName, otherID string, score float64) domain.Violation {
	return domain.Violation{
		Rule:     ruleNearDuplicate,
		Code:     domain.CodeNearDuplicate,
		Severity: domain.SeverityWarn,
		Message:  fmt.Sprintf("%q closely matches existing %s %q (%s, score %.1f)", name, kind, otherName, otherID, score),
		Entity:   kind,
		EntityID: id,
		Field:    "name",
	}
}
