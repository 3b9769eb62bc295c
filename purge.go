// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

package glocal

import (
	"math"
	"sync/atomic"
)

// DefaultPurgeEvery is the sweep cadence used when Local.PurgeEvery is zero.
const DefaultPurgeEvery = 20

// overflowReset replaces a countdown whose product overflowed, so the
// countdown never wraps negative and stalls sweeping.
const overflowReset = 1_000_000

// purger decides when a sweep of dead-goroutine bindings is due.
//
// A countdown is decremented on every Get and Set; the call whose decrement
// lands exactly on zero owns the sweep. Concurrent decrements may race past
// zero, which defers that sweep to the next window; the cadence is a best
// effort, not an exact threshold.
type purger struct {
	countdown atomic.Int32
	every     int32
}

// arm fixes the cadence and opens the first window.
// Runs once, before any tick.
func (p *purger) arm(every int) {
	switch {
	case every <= 0:
		every = DefaultPurgeEvery
	case every > math.MaxInt32:
		every = overflowReset
	}
	p.every = int32(every)
	p.countdown.Store(p.every)
}

// tick consumes one call from the window and reports whether the caller
// owns a sweep.
func (p *purger) tick() bool {
	return p.countdown.Add(-1) == 0
}

// reset opens the next window after a sweep that retained alive bindings.
// Sweep cost is O(alive) and the window is every×(1+alive) calls wide, so
// sweeping amortizes to O(1) per call.
func (p *purger) reset(alive int) {
	next := int64(p.every) * int64(1+alive)
	if next <= 0 || next > math.MaxInt32 {
		next = overflowReset
	}
	p.countdown.Store(int32(next))
}
