package core

import (
	"context"
	"fmt"
	"math"

	"dorkroom/pkg/domain"
)

const rulePushPull = "push_pull_consistency"

// PushPullRule warns when a combination's push_pull disagrees with the stops
// implied by its shooting ISO and the film's box speed. Values within
// tolerance of the exact stop difference are accepted.
func PushPullRule(tolerance float64) domain.Rule {
	return pushPullRule{tolerance: tolerance}
}

type pushPullRule struct {
	tolerance float64
}

func (pushPullRule) Name() string { return rulePushPull }

func (r pushPullRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		combo, ok := change.After.(domain.Combination)
		if !ok {
			continue
		}
		film, ok := view.FindFilm(combo.FilmStockID)
		if !ok || film.ISOSpeed <= 0 || combo.ShootingISO <= 0 {
			continue
		}
		stops, expected := ExpectedPushPull(film.ISOSpeed, combo.ShootingISO)
		if math.Round(combo.PushPull) == expected || math.Abs(combo.PushPull-stops) <= r.tolerance {
			continue
		}
		res.Add(domain.Violation{
			Rule:     rulePushPull,
			Code:     domain.CodePushPull,
			Severity: domain.SeverityWarn,
			Message: fmt.Sprintf("push_pull %+g does not match ISO %g on %g box speed (expected %+g)",
				combo.PushPull, combo.ShootingISO, film.ISOSpeed, expected),
			Entity:   domain.EntityCombination,
			EntityID: combo.ID,
			Field:    "push_pull",
		})
	}
	return res, nil
}

// ExpectedPushPull returns the exact stop difference between shootingISO and
// boxISO and its value rounded to a whole stop.
func ExpectedPushPull(boxISO, shootingISO float64) (stops, rounded float64) {
	stops = math.Log2(shootingISO / boxISO)
	return stops, math.Round(stops) + 0
}
