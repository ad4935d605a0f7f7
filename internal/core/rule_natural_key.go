package core

import (
	"context"
	"fmt"
	"strings"

	"dorkroom/pkg/domain"
)

const ruleNaturalKey = "natural_key_unique"

// NaturalKeyRule rejects films, developers and formats whose natural key
// matches an existing record case-insensitively. A modification never
// conflicts with the record it replaces.
func NaturalKeyRule() domain.Rule {
	return naturalKeyRule{}
}

type naturalKeyRule struct{}

func (naturalKeyRule) Name() string { return ruleNaturalKey }

func (naturalKeyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	snap := view.Snapshot()
	for _, change := range changes {
		switch rec := change.After.(type) {
		case domain.Film:
			for _, existing := range snap.Films {
				if existing.ID != rec.ID && existing.NaturalKey() == rec.NaturalKey() {
					res.Add(duplicateViolation(ruleNaturalKey, domain.EntityFilm, rec.ID, "name",
						fmt.Sprintf("film %q already exists as %s", rec.DisplayName(), existing.ID)))
					break
				}
			}
		case domain.Developer:
			for _, existing := range snap.Developers {
				if existing.ID != rec.ID && existing.NaturalKey() == rec.NaturalKey() {
					res.Add(duplicateViolation(ruleNaturalKey, domain.EntityDeveloper, rec.ID, "name",
						fmt.Sprintf("developer %q already exists as %s", rec.DisplayName(), existing.ID)))
					break
				}
			}
		case domain.Format:
			for _, existing := range snap.Formats {
				if existing.ID != rec.ID && strings.EqualFold(strings.TrimSpace(existing.Name), rec.Name) {
					res.Add(duplicateViolation(ruleNaturalKey, domain.EntityFormat, rec.ID, "name",
						fmt.Sprintf("format %q already exists as %s", rec.Name, existing.ID)))
					break
				}
			}
		}
	}
	return res, nil
}

func duplicateViolation(rule string, kind domain.EntityKind, entityID, field, message string) domain.Violation {
	return domain.Violation{
		Rule:     rule,
		Code:     domain.CodeDuplicate,
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   kind,
		EntityID: entityID,
		Field:    field,
	}
}
