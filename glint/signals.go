package glint

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// WriteableSignal is a versioned source value. Reads inside a computed
// or watch evaluation record a dependency edge, writes propagate
// dirtiness to everything downstream.
type WriteableSignal[T comparable] struct {
	rs     *ReactiveSystem
	id     uint64
	ver    uint64
	value  T
	equals func(a, b T) bool
	subs   mapset.Set[consumer]
}

func Signal[T comparable](rs *ReactiveSystem, initial T) *WriteableSignal[T] {
	return &WriteableSignal[T]{
		rs:    rs,
		id:    rs.nextID(),
		value: initial,
		subs:  mapset.NewThreadUnsafeSet[consumer](),
	}
}

// WithEquals replaces the == comparison used to short-circuit writes.
func (s *WriteableSignal[T]) WithEquals(equals func(a, b T) bool) *WriteableSignal[T] {
	s.equals = equals
	return s
}

func (s *WriteableSignal[T]) isReactive() {}

func (s *WriteableSignal[T]) nodeID() uint64 { return s.id }

func (s *WriteableSignal[T]) producedVersion() uint64 { return s.ver }

func (s *WriteableSignal[T]) refresh() error { return nil }

func (s *WriteableSignal[T]) attach(c consumer) { s.subs.Add(c) }

func (s *WriteableSignal[T]) detach(c consumer) { s.subs.Remove(c) }

func (s *WriteableSignal[T]) Value() T {
	s.rs.recordRead(s)
	return s.value
}

// Peek reads the current value without recording a dependency.
func (s *WriteableSignal[T]) Peek() T {
	return s.value
}

// SetValue stores a new value and marks everything downstream dirty.
// Writing an equal value is a no-op: no version bump, no propagation.
// Each consumer is visited at most once per write, so diamonds in the
// graph are invalidated a single time.
//
// SetValue panics when called from a watch body that was not created
// with AllowSignalWrites.
func (s *WriteableSignal[T]) SetValue(value T) {
	if w := s.rs.activeWatch; w != nil && !w.allowWrites {
		panic(fmt.Errorf("%w: use AllowSignalWrites to opt in", ErrSignalWriteNotAllowed))
	}
	if s.eq(s.value, value) {
		return
	}
	s.value = value
	s.ver++
	visited := mapset.NewThreadUnsafeSet[uint64]()
	s.subs.Each(func(c consumer) bool {
		c.invalidate(visited)
		return false
	})
}

func (s *WriteableSignal[T]) eq(a, b T) bool {
	if s.equals != nil {
		return s.equals(a, b)
	}
	return a == b
}
