package domain

import "context"

// RuleView provides read-only access to the snapshot a candidate is being
// admitted against.
type RuleView interface {
	Snapshot() *Snapshot
	FindFilm(id string) (Film, bool)
	FindDeveloper(id string) (Developer, bool)
	FindCombination(id string) (Combination, bool)
	FindFormat(id string) (Format, bool)
}

// Action indicates the type of modification an admission performs.
type Action string

const (
	// ActionCreate appends a new record.
	ActionCreate Action = "create"
	// ActionUpdate replaces an existing record in place.
	ActionUpdate Action = "update"
)

// Change describes the record under admission. Before is nil for creates.
// After holds a Film, Developer, Combination, or Format value.
type Change struct {
	Entity EntityKind
	Action Action
	Before any
	After  any
}

// Rule defines a check executed against a candidate change.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation in ordered stages. Violations are
// accumulated within a stage; evaluation stops after the first stage that
// produced a blocking violation.
type RulesEngine struct {
	stages [][]Rule
}

// NewRulesEngine constructs an engine instance with a single empty stage.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{stages: [][]Rule{nil}}
}

// Register appends a rule to the current stage.
func (e *RulesEngine) Register(rule Rule) {
	last := len(e.stages) - 1
	e.stages[last] = append(e.stages[last], rule)
}

// NextStage starts a new stage; rules registered afterwards only run when all
// earlier stages passed without blocking violations.
func (e *RulesEngine) NextStage() {
	if len(e.stages[len(e.stages)-1]) == 0 {
		return
	}
	e.stages = append(e.stages, nil)
}

// Rules returns the registered rule names in evaluation order.
func (e *RulesEngine) Rules() []string {
	var names []string
	for _, stage := range e.stages {
		for _, rule := range stage {
			names = append(names, rule.Name())
		}
	}
	return names
}

// Evaluate executes the registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, stage := range e.stages {
		for _, rule := range stage {
			res, err := rule.Evaluate(ctx, view, changes)
			if err != nil {
				return Result{}, err
			}
			combined.Merge(res)
		}
		if combined.HasBlocking() {
			break
		}
	}
	return combined, nil
}
