package core

import "custodycore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
// maxCapacity feeds the yard occupancy rule; zero disables it.
func NewDefaultRulesEngine(maxCapacity int) *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewTrackUniquenessRule())
	if maxCapacity > 0 {
		engine.Register(NewYardOccupancyRule(maxCapacity))
	}
	return engine
}
