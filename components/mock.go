package components

import "sync"

// MockComponentWaiter counts components that are still running.
type MockComponentWaiter struct {
	mu    sync.Mutex
	count int
}

func (cw *MockComponentWaiter) Add() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.count++
}

func (cw *MockComponentWaiter) Done() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.count--
}

// Count returns the number of components that called Add without Done.
func (cw *MockComponentWaiter) Count() int {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.count
}
