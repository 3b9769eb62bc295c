// Package glocal provides per-goroutine values with managed lifetime.
//
// A Local hands each goroutine its own binding of a shared handle.
// Lookups go through weak references, while the handle pins every
// binding in a registry of strong references. Values therefore stay
// alive for as long as the handle is open and become collectable the
// moment it closes, with no per-goroutine teardown required.
//
// Goroutines exit silently, and an exited goroutine would otherwise
// leave its binding pinned forever. Get and Set amortize a purge that
// polls goroutine liveness and evicts such bindings.
//
// Naming: goroutine-local, after thread-local storage.
package glocal

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/dacapoday/glocal/internal/gid"
)

// Local binds one value of type T per goroutine.
//
// Local requires no initialization - just declare and use:
//
//	var local Local[bytes.Buffer]
//	local.Set(new(bytes.Buffer))
//
// All methods are safe for concurrent use.
// A Local must not be copied after first use.
//
// Important: bindings of live goroutines stay pinned until Close.
// Close the handle once no goroutine needs its values.
type Local[T any] struct {
	// New, when non-nil, supplies the value for a goroutine whose Get
	// finds no binding. Get binds the result via Set before returning
	// it. A nil result is returned unbound.
	//
	// Set New before first use and do not change it afterwards.
	New func() *T

	// PurgeEvery is the number of operations between liveness purges.
	// Zero or negative selects DefaultPurgeEvery; values beyond the
	// int32 countdown clamp to 1,000,000.
	//
	// Set PurgeEvery before first use and do not change it afterwards.
	PurgeEvery int

	once   sync.Once
	closed atomic.Bool
	slot   slot[T]
	hard   registry[T]
	purge  purger
	probe  func() map[uint64]struct{} // liveness poll, defaults to gid.Live
}

var _ io.Closer = new(Local[any])

// init makes the zero value ready. Every method calls it first.
func (l *Local[T]) init() {
	l.once.Do(func() {
		l.hard.open()
		l.purge.arm(l.PurgeEvery)
		if l.probe == nil {
			l.probe = gid.Live
		}
	})
}

// Get returns the value bound to the calling goroutine.
//
// When no binding exists and New is non-nil, Get binds New's result and
// returns it. Without New, Get returns nil. A binding holding nil is
// returned as is, without calling New.
//
// Get returns ErrClosed after Close.
func (l *Local[T]) Get() (*T, error) {
	l.init()
	if l.closed.Load() {
		return nil, ErrClosed
	}
	if v, ok := l.slot.load(gid.Current()); ok {
		l.maybePurge()
		return v, nil
	}
	if l.New == nil {
		return nil, nil
	}
	v := l.New()
	if v == nil {
		return nil, nil
	}
	if err := l.Set(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Set binds v to the calling goroutine, replacing any previous binding.
// The previous value, unless referenced elsewhere, becomes collectable.
//
// Set returns ErrClosed after Close; v is left unbound then.
func (l *Local[T]) Set(v *T) (err error) {
	l.init()
	if l.closed.Load() {
		return ErrClosed
	}
	id := gid.Current()
	l.slot.store(id, v)
	if !l.hard.put(id, v) {
		// Close won the race; undo the slot write.
		l.slot.drop(id)
		return ErrClosed
	}
	l.maybePurge()
	return
}

// Remove deletes the calling goroutine's binding. A later Get sees no
// binding and consults New again.
//
// Remove returns ErrClosed after Close.
func (l *Local[T]) Remove() (err error) {
	l.init()
	if l.closed.Load() {
		return ErrClosed
	}
	id := gid.Current()
	if !l.hard.del(id) {
		return ErrClosed
	}
	l.slot.drop(id)
	return
}

// Close releases every binding and rejects further use of the handle.
// Values unreferenced outside the handle become collectable, including
// those of goroutines still running.
//
// Close is idempotent and always returns nil.
func (l *Local[T]) Close() error {
	l.init()
	l.closed.Store(true)
	if l.hard.drop() {
		l.slot.clear()
	}
	return nil
}

// maybePurge pays down one operation and sweeps once the countdown
// reaches zero.
func (l *Local[T]) maybePurge() {
	if l.purge.tick() {
		l.purgeNow()
	}
}

// purgeNow evicts bindings of exited goroutines and rearms the countdown
// in proportion to the bindings that remain.
func (l *Local[T]) purgeNow() {
	alive, dead := l.hard.sweep(l.probe)
	for _, id := range dead {
		l.slot.drop(id)
	}
	l.purge.reset(alive)
}
