// SPDX-License-Identifier: Apache-2.0
// Copyright © 2022 Wrangle Ltd

package viewsync

import (
	"sync"
	"time"
)

const DefaultDebounceWait = 200 * time.Millisecond

// Debouncer coalesces rapid Trigger calls. fn runs once, wait after the
// last Trigger, with the value of that last Trigger. There is at most one
// pending timer; each Trigger replaces it.
type Debouncer[T any] struct {
	clock Clock
	fn    func(T)

	mu         sync.Mutex
	wait       time.Duration
	timer      Timer
	gen        uint64
	pending    T
	hasPending bool
	coalesced  uint64
}

func NewDebouncer[T any](clock Clock, wait time.Duration, fn func(T)) *Debouncer[T] {
	if clock == nil {
		clock = RealClock()
	}
	return &Debouncer[T]{clock: clock, wait: wait, fn: fn}
}

func (d *Debouncer[T]) SetWait(wait time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wait = wait
}

func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.hasPending {
		d.coalesced++
	}
	d.gen++
	d.pending = v
	d.hasPending = true
	if d.wait <= 0 {
		d.timer = nil
		go d.fire(d.gen)
		return
	}
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.wait, func() {
		d.fire(gen)
	})
}

func (d *Debouncer[T]) take(gen uint64) (v T, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	// a newer Trigger or Stop happened after this timer was scheduled
	if gen != d.gen || !d.hasPending {
		return v, false
	}
	v = d.pending
	var zero T
	d.pending = zero
	d.hasPending = false
	d.timer = nil
	return v, true
}

func (d *Debouncer[T]) fire(gen uint64) {
	if v, ok := d.take(gen); ok {
		d.fn(v)
	}
}

// Flush runs fn immediately with the pending value, if any
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.mu.Unlock()
	v, ok := d.take(gen)
	if ok {
		d.fn(v)
	}
	return ok
}

// Stop drops the pending value without running fn
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var zero T
	d.gen++
	d.pending = zero
	d.hasPending = false
}

func (d *Debouncer[T]) Pending() (v T, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.hasPending
}

// Coalesced returns how many triggers were superseded before firing
func (d *Debouncer[T]) Coalesced() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.coalesced
}
