// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package glocal

import "sync"

// registry holds the strong reference that keeps each goroutine's value
// alive while the handle is open. Keys are goroutine ids. An entry whose
// goroutine has exited is unreachable through any slot, but it still pins
// the value; sweep evicts such entries, so keys behave as if weakly held,
// with eviction deferred to the next sweep rather than eager on exit (the
// runtime offers no goroutine-exit callback, liveness is polled instead).
//
// The mutex is the only lock in the package. Every put and every sweep
// serializes on it. Reads go through the slot layer, never the registry.
type registry[T any] struct {
	mu   sync.Mutex
	refs map[uint64]*T // nil once dropped
}

// open allocates the reference map.
// Runs once, before any other method.
func (r *registry[T]) open() {
	r.refs = make(map[uint64]*T)
}

// put records the strong binding for id, replacing any previous one.
// It reports false once the registry has been dropped, in which case no
// binding was recorded.
func (r *registry[T]) put(id uint64, v *T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == nil {
		return false
	}
	r.refs[id] = v
	return true
}

// del removes the binding for id. It reports false once the registry has
// been dropped.
func (r *registry[T]) del(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == nil {
		return false
	}
	delete(r.refs, id)
	return true
}

// drop releases every strong binding at once. It reports whether this
// call was the one that dropped the registry, so Close runs its follow-up
// exactly once.
func (r *registry[T]) drop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == nil {
		return false
	}
	r.refs = nil
	return true
}

// sweep polls goroutine liveness and evicts every binding whose goroutine
// has exited. It returns the number of retained bindings and the ids of
// the evicted ones, for the caller to prune from the slot layer.
//
// The poll runs under the lock: an entry present during the sweep was put
// by a goroutine that existed at put time, so a live one is always in the
// poll and is never evicted by mistake.
func (r *registry[T]) sweep(probe func() map[uint64]struct{}) (alive int, dead []uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refs == nil {
		return
	}
	live := probe()
	for id := range r.refs {
		if _, ok := live[id]; ok {
			alive++
			continue
		}
		delete(r.refs, id)
		dead = append(dead, id)
	}
	return
}

// size reports the number of bindings currently held.
func (r *registry[T]) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.refs)
}
