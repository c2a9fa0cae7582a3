// Package notify fans state snapshots out to subscribed listeners.
package notify

import (
	"slices"
	"sync"
)

// Hub holds listeners for snapshots of type T. The zero value is ready to use.
type Hub[T any] struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(T)

	lastSeq  uint64
	pending  []T
	draining bool
}

// Subscribe registers fn and returns a func that removes it.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listeners == nil {
		h.listeners = make(map[int]func(T))
	}
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers v, the snapshot taken at version seq, to every listener in
// subscription order. A snapshot whose seq is not newer than one already
// published is dropped, so listeners never observe state going backwards.
//
// Listeners run without the hub lock held. While one goroutine is delivering,
// concurrent or nested calls queue their snapshot and return; the delivering
// goroutine hands the queue out in order before it returns.
func (h *Hub[T]) Publish(seq uint64, v T) {
	h.mu.Lock()
	if seq <= h.lastSeq {
		h.mu.Unlock()
		return
	}
	h.lastSeq = seq
	h.pending = append(h.pending, v)
	if h.draining {
		h.mu.Unlock()
		return
	}
	h.draining = true
	h.mu.Unlock()

	done := false
	defer func() {
		// A panicking listener must not leave the hub stuck draining.
		if !done {
			h.mu.Lock()
			h.pending = nil
			h.draining = false
			h.mu.Unlock()
		}
	}()
	for {
		h.mu.Lock()
		if len(h.pending) == 0 {
			h.pending = nil
			h.draining = false
			done = true
			h.mu.Unlock()
			return
		}
		next := h.pending[0]
		h.pending = h.pending[1:]
		fns := h.listenersLocked()
		h.mu.Unlock()

		for _, fn := range fns {
			fn(next)
		}
	}
}

func (h *Hub[T]) listenersLocked() []func(T) {
	ids := make([]int, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.listeners[id])
	}
	return fns
}

// Len returns the number of listeners.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}
