package pipeline

import (
	"sync"
)

type StepStatus uint32

const (
	StepStatusStarting StepStatus = iota + 1
	StepStatusRunning
	StepStatusDone
)

// groupWaiter is a wrapper around sync.WaitGroup.
// It can return a *stepWaiter which implements components.ComponentWaiter for a given step.
type groupWaiter struct {
	wg                      sync.WaitGroup
	internalMapStepStatuses map[string]StepStatus
	mu                      sync.RWMutex
}

func newGroupWaiter() *groupWaiter {
	return &groupWaiter{internalMapStepStatuses: make(map[string]StepStatus)}
}

// newStepComponentWaiter returns a *stepWaiter which records the status of stepName.
func (gw *groupWaiter) newStepComponentWaiter(stepName string) *stepWaiter {
	gw.StoreStatus(stepName, StepStatusStarting)
	return &stepWaiter{stepName: stepName, gw: gw}
}

func (gw *groupWaiter) StoreStatus(stepName string, status StepStatus) {
	gw.mu.Lock()
	gw.internalMapStepStatuses[stepName] = status
	gw.mu.Unlock()
}

func (gw *groupWaiter) LoadStatus(stepName string) (retval StepStatus, ok bool) {
	gw.mu.RLock()
	retval, ok = gw.internalMapStepStatuses[stepName]
	gw.mu.RUnlock()
	return
}

func (gw *groupWaiter) Wait() {
	gw.wg.Wait()
}

// stepWaiter updates the parent waitGroup and writes the step's status when Add() and Done() are called.
type stepWaiter struct {
	gw       *groupWaiter
	stepName string
}

func (s *stepWaiter) Add() {
	s.gw.wg.Add(1)
	s.gw.StoreStatus(s.stepName, StepStatusRunning)
}

func (s *stepWaiter) Done() {
	s.gw.wg.Done()
	s.gw.StoreStatus(s.stepName, StepStatusDone)
}
