package glocal

import (
	"runtime"
	"sync"
	"weak"
)

// slot is the per-goroutine binding layer: goroutine id → weak reference.
//
// Each goroutine only ever reads and writes its own binding, the
// disjoint-key access pattern sync.Map is built for, so no lock guards
// this layer. A binding never keeps its value alive; that is the
// registry's job.
type slot[T any] struct {
	m sync.Map // uint64 → weak.Pointer[T]
}

// mark carries what scavenge needs to delete a binding only if it still
// holds the collected value.
type mark[T any] struct {
	id uint64
	wp weak.Pointer[T]
}

// store replaces goroutine id's binding with a weak reference to v.
func (s *slot[T]) store(id uint64, v *T) {
	wp := weak.Make(v)
	s.m.Store(id, wp)
	if v != nil {
		runtime.AddCleanup(v, s.scavenge, mark[T]{id: id, wp: wp})
	}
}

// load returns the referent of id's binding. ok reports whether a binding
// exists at all; ok with a nil value means the value was collected, which
// callers cannot tell apart from never-set.
func (s *slot[T]) load(id uint64) (v *T, ok bool) {
	e, ok := s.m.Load(id)
	if !ok {
		return nil, false
	}
	return e.(weak.Pointer[T]).Value(), true
}

// drop removes id's binding.
func (s *slot[T]) drop(id uint64) {
	s.m.Delete(id)
}

// clear removes every binding.
func (s *slot[T]) clear() {
	s.m.Clear()
}

// scavenge removes a binding whose value has been collected. It runs on
// the cleanup goroutine; the compare refuses to touch a binding that a
// later store has already replaced.
func (s *slot[T]) scavenge(m mark[T]) {
	s.m.CompareAndDelete(m.id, m.wp)
}
