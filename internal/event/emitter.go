// Package event provides a small multi-subscriber observer primitive used
// by the device link and the telemetry store instead of single mutable
// callback slots: every subscription gets its own unsubscribe token and
// subscribers never affect each other.
package event

import (
	"sync/atomic"

	"github.com/cornelk/hashmap"
)

// Emitter fans a value out to any number of subscribers. Emit invokes
// listeners synchronously in the calling goroutine, in no particular order.
type Emitter[T any] struct {
	nextID    atomic.Uint64
	listeners *hashmap.Map[uint64, func(T)]
}

// NewEmitter creates an empty emitter.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{
		listeners: hashmap.New[uint64, func(T)](),
	}
}

// Subscribe registers fn and returns its unsubscribe function. Unsubscribing
// twice is harmless.
func (e *Emitter[T]) Subscribe(fn func(T)) func() {
	id := e.nextID.Add(1)
	e.listeners.Set(id, fn)
	return func() {
		e.listeners.Del(id)
	}
}

// Emit delivers v to every current subscriber.
func (e *Emitter[T]) Emit(v T) {
	e.listeners.Range(func(_ uint64, fn func(T)) bool {
		fn(v)
		return true
	})
}

// Len returns the number of active subscribers.
func (e *Emitter[T]) Len() int {
	return e.listeners.Len()
}
