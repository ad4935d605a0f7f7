package core

import (
	"context"
	"fmt"

	"dorkroom/pkg/domain"
)

const ruleReferenceIntegrity = "reference_integrity"

// ReferenceIntegrityRule requires combinations to reference an existing film,
// developer and dilution, and to carry exactly one of dilution_id and
// custom_dilution.
func ReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return ruleReferenceIntegrity }

func (referenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		combo, ok := change.After.(domain.Combination)
		if !ok || change.Entity != domain.EntityCombination {
			continue
		}
		fail := func(field, msg string) {
			res.Add(referenceViolation(combo.ID, field, msg))
		}

		if _, ok := view.FindFilm(combo.FilmStockID); !ok {
			fail("film_stock_id", fmt.Sprintf("film %s does not exist", combo.FilmStockID))
		}
		dev, devOK := view.FindDeveloper(combo.DeveloperID)
		if !devOK {
			fail("developer_id", fmt.Sprintf("developer %s does not exist", combo.DeveloperID))
		}

		switch {
		case combo.DilutionID != nil && combo.CustomDilution != nil:
			fail("dilution_id", "only one of dilution_id and custom_dilution may be set")
		case combo.DilutionID == nil && combo.CustomDilution == nil:
			fail("dilution_id", "one of dilution_id and custom_dilution is required")
		case combo.DilutionID != nil && devOK:
			if _, ok := dev.FindDilution(*combo.DilutionID); !ok {
				fail("dilution_id", fmt.Sprintf("developer %s has no dilution %s", dev.ID, *combo.DilutionID))
			}
		}
	}
	return res, nil
}

func referenceViolation(entityID, field, message string) domain.Violation {
	return domain.Violation{
		Rule:     ruleReferenceIntegrity,
		Code:     domain.CodeIntegrity,
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityCombination,
		EntityID: entityID,
		Field:    field,
	}
}
