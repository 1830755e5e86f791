package services

import "sync"

// keyedMutex serializes work per key (one lock per event).
// Entries are reference counted and dropped when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock acquires the lock for key and returns its release function.
func (km *keyedMutex) Lock(key string) func() {
	km.mu.Lock()
	entry, ok := km.locks[key]
	if !ok {
		entry = &keyedEntry{}
		km.locks[key] = entry
	}
	entry.refs++
	km.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		km.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}
