// Package live holds observable state for view-models.
//
// [Value] keeps the latest value and replays it to new observers. [Event]
// delivers single-shot notifications (toasts, snackbars, navigation) to the
// observers registered at the time of emission and never replays them.
//
// Both types are safe for concurrent use. Emissions are serialized, so every
// observer sees values in the order they were set. Callbacks run on the
// emitting goroutine and must not call Set, Emit, or Observe on the same
// holder; calling the returned cancel func from a callback is fine.
package live

import (
	"sync"
	"sync/atomic"
)

type observer[T any] struct {
	fn     func(T)
	active atomic.Bool
}

// registry is the observer list shared by Value and Event.
type registry[T any] struct {
	mu   sync.Mutex
	list []*observer[T]
}

func (r *registry[T]) add(fn func(T)) (*observer[T], func()) {
	o := &observer[T]{fn: fn}
	o.active.Store(true)

	r.mu.Lock()
	r.list = append(r.list, o)
	r.mu.Unlock()

	var once sync.Once
	return o, func() {
		once.Do(func() {
			o.active.Store(false)
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, x := range r.list {
				if x == o {
					r.list = append(r.list[:i], r.list[i+1:]...)
					return
				}
			}
		})
	}
}

func (r *registry[T]) snapshot() []*observer[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*observer[T], len(r.list))
	copy(out, r.list)
	return out
}

func (r *registry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list)
}

func notify[T any](obs []*observer[T], v T) {
	for _, o := range obs {
		if o.active.Load() {
			o.fn(v)
		}
	}
}

// --- Value -------------------------------------------------------------------

// Value is an observable holder of the latest T. The zero value is ready to
// use and holds nothing.
type Value[T any] struct {
	emit sync.Mutex

	mu  sync.RWMutex
	val T
	set bool

	obs registry[T]
}

// NewValue returns a Value already holding v.
func NewValue[T any](v T) *Value[T] {
	return &Value[T]{val: v, set: true}
}

// Set stores v and notifies every observer.
func (l *Value[T]) Set(v T) {
	l.emit.Lock()
	defer l.emit.Unlock()

	l.mu.Lock()
	l.val = v
	l.set = true
	l.mu.Unlock()

	notify(l.obs.snapshot(), v)
}

// Get returns the latest value and whether one was ever set.
func (l *Value[T]) Get() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.val, l.set
}

// Observe registers fn. If a value is held, fn receives it immediately.
// The returned func stops further deliveries.
func (l *Value[T]) Observe(fn func(T)) (cancel func()) {
	l.emit.Lock()
	defer l.emit.Unlock()

	_, cancel = l.obs.add(fn)

	if v, ok := l.Get(); ok {
		fn(v)
	}
	return cancel
}

// Observers returns the number of registered observers.
func (l *Value[T]) Observers() int { return l.obs.len() }

// --- Event -------------------------------------------------------------------

// Event is a single-shot notification stream. The zero value is ready to use.
type Event[T any] struct {
	emit sync.Mutex
	obs  registry[T]
}

// Emit delivers v to the current observers. With no observers the event is
// dropped.
func (e *Event[T]) Emit(v T) {
	e.emit.Lock()
	defer e.emit.Unlock()
	notify(e.obs.snapshot(), v)
}

// Observe registers fn for future emissions.
func (e *Event[T]) Observe(fn func(T)) (cancel func()) {
	_, cancel = e.obs.add(fn)
	return cancel
}

// Observers returns the number of registered observers.
func (e *Event[T]) Observers() int { return e.obs.len() }
