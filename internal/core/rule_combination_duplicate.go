package core

import (
	"context"
	"fmt"

	"dorkroom/pkg/domain"
)

const ruleCombinationDuplicate = "combination_unique"

// CombinationDuplicateRule rejects a combination that repeats an existing
// recipe: same film, developer, dilution, shooting ISO and push/pull.
func CombinationDuplicateRule() domain.Rule {
	return combinationDuplicateRule{}
}

type combinationDuplicateRule struct{}

func (combinationDuplicateRule) Name() string { return ruleCombinationDuplicate }

func (combinationDuplicateRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		combo, ok := change.After.(domain.Combination)
		if !ok {
			continue
		}
		key := combo.NaturalKey()
		for _, existing := range view.Snapshot().Combinations {
			if existing.ID == combo.ID || existing.NaturalKey() != key {
				continue
			}
			res.Add(duplicateViolation(ruleCombinationDuplicate, domain.EntityCombination, combo.ID, "",
				fmt.Sprintf("combination %s already records this film, developer, dilution, ISO and push/pull", existing.ID)))
			break
		}
	}
	return res, nil
}
