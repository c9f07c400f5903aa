package live

import (
	"sync"
	"testing"
)

// recorder collects delivered values for assertions.
type recorder[T any] struct {
	mu  sync.Mutex
	got []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, v)
}

func (r *recorder[T]) values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.got...)
}

// ---------------------------------------------------------------------------
// Value
// ---------------------------------------------------------------------------

func TestValue_ZeroHoldsNothing(t *testing.T) {
	var v Value[int]
	if _, ok := v.Get(); ok {
		t.Error("zero Value should hold nothing")
	}

	var rec recorder[int]
	cancel := v.Observe(rec.add)
	defer cancel()
	if got := rec.values(); len(got) != 0 {
		t.Errorf("observer got %v before any Set", got)
	}
}

func TestValue_ReplaysLatestOnObserve(t *testing.T) {
	var v Value[string]
	v.Set("first")
	v.Set("second")

	var rec recorder[string]
	cancel := v.Observe(rec.add)
	defer cancel()

	got := rec.values()
	if len(got) != 1 || got[0] != "second" {
		t.Errorf("replay = %v, want [second]", got)
	}
}

func TestValue_NotifiesInSetOrder(t *testing.T) {
	var v Value[bool]
	var rec recorder[bool]
	cancel := v.Observe(rec.add)
	defer cancel()

	v.Set(true)
	v.Set(false)

	got := rec.values()
	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Errorf("got %v, want [true false]", got)
	}
}

func TestValue_Cancel(t *testing.T) {
	v := NewValue(1)
	var rec recorder[int]
	cancel := v.Observe(rec.add)

	cancel()
	cancel() // idempotent
	v.Set(2)

	got := rec.values()
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("got %v, want only the replayed [1]", got)
	}
	if v.Observers() != 0 {
		t.Errorf("Observers = %d, want 0", v.Observers())
	}
}

func TestValue_CancelFromCallback(t *testing.T) {
	var v Value[int]
	var rec recorder[int]
	var cancel func()
	cancel = v.Observe(func(n int) {
		rec.add(n)
		if n == 2 {
			cancel()
		}
	})

	v.Set(1)
	v.Set(2)
	v.Set(3)

	got := rec.values()
	if len(got) != 2 {
		t.Errorf("got %v, want [1 2]", got)
	}
}

func TestValue_ConcurrentSet(t *testing.T) {
	var v Value[int]
	var rec recorder[int]
	defer v.Observe(rec.add)()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Set(i)
		}()
	}
	wg.Wait()

	if got := len(rec.values()); got != 50 {
		t.Errorf("observer received %d values, want 50", got)
	}
	last := rec.values()[49]
	if cur, _ := v.Get(); cur != last {
		t.Errorf("Get = %d but last delivered = %d", cur, last)
	}
}

// ---------------------------------------------------------------------------
// Event
// ---------------------------------------------------------------------------

func TestEvent_NoReplay(t *testing.T) {
	var e Event[string]
	e.Emit("dropped")

	var rec recorder[string]
	defer e.Observe(rec.add)()

	if got := rec.values(); len(got) != 0 {
		t.Errorf("got %v, want no replay", got)
	}

	e.Emit("delivered")
	got := rec.values()
	if len(got) != 1 || got[0] != "delivered" {
		t.Errorf("got %v, want [delivered]", got)
	}
}

func TestEvent_FanOut(t *testing.T) {
	var e Event[int]
	var a, b recorder[int]
	cancelA := e.Observe(a.add)
	defer e.Observe(b.add)()

	e.Emit(1)
	cancelA()
	e.Emit(2)

	if got := a.values(); len(got) != 1 {
		t.Errorf("a got %v, want [1]", got)
	}
	if got := b.values(); len(got) != 2 {
		t.Errorf("b got %v, want [1 2]", got)
	}
}
