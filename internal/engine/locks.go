package engine

import "sync"

// keyedLocks serializes mutations per entity id. Every task mutation, and
// every mutation of the blockers and dependency tasks under it, runs while
// holding the parent task's lock, so there is a single logical owner per
// task at any moment.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for id, creating it on first use, and returns
// the unlock function.
func (k *keyedLocks) lock(id string) func() {
	k.mu.Lock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
