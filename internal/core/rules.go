package core

// NewDefaultRulesEngine builds a rules engine with the built-in admission
// checks. Stages run in order and evaluation stops after the first stage that
// blocks: references, then exact duplicates, then the advisory checks.
func NewDefaultRulesEngine(nearDuplicateThreshold, pushPullTolerance float64) *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(ReferenceIntegrityRule())
	engine.NextStage()
	engine.Register(NaturalKeyRule())
	engine.Register(CombinationDuplicateRule())
	engine.NextStage()
	engine.Register(NearDuplicateRule(nearDuplicateThreshold))
	engine.Register(PushPullRule(pushPullTolerance))
	return engine
}
