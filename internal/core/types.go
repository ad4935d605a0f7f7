package core

import "dorkroom/pkg/domain"

type (
	EntityKind     = domain.EntityKind
	Severity       = domain.Severity
	Film           = domain.Film
	Developer      = domain.Developer
	Dilution       = domain.Dilution
	Combination    = domain.Combination
	Format         = domain.Format
	Snapshot       = domain.Snapshot
	Candidate      = domain.Candidate
	Change         = domain.Change
	Action         = domain.Action
	Violation      = domain.Violation
	Result         = domain.Result
	Rule           = domain.Rule
	RuleView       = domain.RuleView
	RulesEngine    = domain.RulesEngine
	RejectionError = domain.RejectionError
	IntegrityError = domain.IntegrityError
	SnapshotStore  = domain.SnapshotStore
)

const (
	EntityFilm        = domain.EntityFilm
	EntityDeveloper   = domain.EntityDeveloper
	EntityCombination = domain.EntityCombination
	EntityFormat      = domain.EntityFormat
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
