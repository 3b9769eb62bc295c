// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package gid identifies goroutines.
//
// The runtime assigns every goroutine a positive id but exposes no API for
// it; Current reads it through the scheduler's g pointer, Live recovers the
// ids of all goroutines from a stack dump. Live is the liveness poll used
// by purge sweeps: a goroutine is dead exactly when its id is absent from
// the dump. Ids are never reused within a process, so a dead id stays dead.
package gid

import (
	"bytes"
	"runtime"

	"github.com/petermattis/goid"
)

// Current returns the id of the calling goroutine.
func Current() uint64 {
	return uint64(goid.Get())
}

// Live returns the ids of all goroutines alive at the time of the call.
//
// It stops the world for the duration of one runtime.Stack dump, so the
// cost grows with the number of goroutines in the process. Callers are
// expected to amortize it.
func Live() map[uint64]struct{} {
	dump := all()
	live := make(map[uint64]struct{}, 32)
	for len(dump) > 0 {
		if id, ok := header(dump); ok {
			live[id] = struct{}{}
		}
		next := bytes.Index(dump, sep)
		if next < 0 {
			break
		}
		dump = dump[next+len(sep):]
	}
	return live
}

// Records in a dump are separated by a blank line.
var sep = []byte("\n\n")

var prefix = []byte("goroutine ")

// header parses "goroutine N [state]:" at the start of a record.
func header(rec []byte) (id uint64, ok bool) {
	if !bytes.HasPrefix(rec, prefix) {
		return
	}
	rec = rec[len(prefix):]
	for len(rec) > 0 && '0' <= rec[0] && rec[0] <= '9' {
		id = id*10 + uint64(rec[0]-'0')
		rec = rec[1:]
		ok = true
	}
	if !ok || len(rec) == 0 || rec[0] != ' ' {
		return 0, false
	}
	return
}

// all captures a stack dump of every goroutine, doubling the buffer until
// the dump fits.
func all() []byte {
	for n := 1 << 16; ; n *= 2 {
		buf := make([]byte, n)
		if m := runtime.Stack(buf, true); m < len(buf) {
			return buf[:m]
		}
	}
}
