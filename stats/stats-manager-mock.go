package stats

import "github.com/relloyd/xlpipe/logger"

// MockStatsManager hands out working StepWatchers but never logs them.
type MockStatsManager struct {
	log logger.Logger
}

func NewMockStatsManager(log logger.Logger) *MockStatsManager {
	return &MockStatsManager{log: log}
}

func (s *MockStatsManager) StartDumping() {}

func (s *MockStatsManager) StopDumping() {}

func (s *MockStatsManager) GetStats() []Stats {
	return nil
}

func (s *MockStatsManager) AddStepWatcher(stepName string) *StepWatcher {
	return NewStepWatcher(s.log, stepName)
}
