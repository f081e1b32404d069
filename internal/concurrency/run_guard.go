package concurrency

import (
	"sync"
)

// RunGuard hands out named locks so at most one run per synchronization is
// in flight.
type RunGuard struct {
	locks sync.Map
}

// NewRunGuard creates a new RunGuard
func NewRunGuard() *RunGuard {
	return &RunGuard{}
}

// TryAcquire takes the lock for the given key without blocking. It returns
// the release function and true, or nil and false when the key is held.
func (g *RunGuard) TryAcquire(key string) (func(), bool) {
	lock, _ := g.locks.LoadOrStore(key, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, false
	}
	return mu.Unlock, true
}
