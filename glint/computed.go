package glint

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// ReadonlySignal is a lazy, memoized derivation. The getter runs only
// when the value is read and a producer actually changed since the last
// evaluation. It is both a consumer of its producers and a producer for
// anything that reads it.
type ReadonlySignal[T comparable] struct {
	rs     *ReactiveSystem
	id     uint64
	ver    uint64
	value  T
	getter func(oldValue T) (T, error)
	equals func(a, b T) bool
	deps   depTracker
	subs   mapset.Set[consumer]

	dirty     bool
	evaluated bool
	computing bool
}

// Computed creates a derivation. The getter receives the previously
// cached value, the zero value on the first run. Nothing is evaluated
// until the first read.
func Computed[T comparable](rs *ReactiveSystem, getter func(oldValue T) (T, error)) *ReadonlySignal[T] {
	return &ReadonlySignal[T]{
		rs:     rs,
		id:     rs.nextID(),
		getter: getter,
		dirty:  true,
		subs:   mapset.NewThreadUnsafeSet[consumer](),
	}
}

// WithEquals replaces the == comparison used to decide whether the
// getter's output changed.
func (c *ReadonlySignal[T]) WithEquals(equals func(a, b T) bool) *ReadonlySignal[T] {
	c.equals = equals
	return c
}

func (c *ReadonlySignal[T]) isReactive() {}

func (c *ReadonlySignal[T]) nodeID() uint64 { return c.id }

func (c *ReadonlySignal[T]) producedVersion() uint64 { return c.ver }

func (c *ReadonlySignal[T]) attach(sub consumer) { c.subs.Add(sub) }

func (c *ReadonlySignal[T]) detach(sub consumer) { c.subs.Remove(sub) }

func (c *ReadonlySignal[T]) record(p producer) { c.deps.record(p) }

// Value brings the cached value up to date and returns it, recording a
// dependency edge when a consumer is active. A getter error leaves the
// node dirty so the next read retries. The edge is recorded even on
// error, the reader still needs to hear about upstream changes.
func (c *ReadonlySignal[T]) Value() (T, error) {
	err := c.refresh()
	c.rs.recordRead(c)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.value, nil
}

// Peek returns the value without recording a dependency.
func (c *ReadonlySignal[T]) Peek() (T, error) {
	if err := c.refresh(); err != nil {
		var zero T
		return zero, err
	}
	return c.value, nil
}

// refresh recomputes only when needed. Dirty means "maybe stale": the
// producers are polled first, in read order, and the getter reruns only
// if one of their versions advanced since the last evaluation. That is
// what keeps diamonds glitch-free and lets an equal-valued upstream
// recompute stop the wave here.
func (c *ReadonlySignal[T]) refresh() error {
	if c.computing {
		panic(ErrCircularDependency)
	}
	if c.evaluated && !c.dirty {
		return nil
	}
	c.computing = true
	defer func() { c.computing = false }()

	if c.evaluated {
		changed, err := c.deps.changed()
		if err != nil {
			return err
		}
		if !changed {
			c.dirty = false
			return nil
		}
	}
	return c.recompute()
}

func (c *ReadonlySignal[T]) recompute() error {
	oldValue := c.value
	var next T
	err := c.rs.track(c, &c.deps, func() error {
		v, err := c.getter(oldValue)
		if err != nil {
			return err
		}
		next = v
		return nil
	})
	if err != nil {
		c.rs.reportError(c, err)
		return err
	}
	if !c.evaluated || !c.eq(oldValue, next) {
		c.value = next
		c.ver++
	}
	c.evaluated = true
	c.dirty = false
	return nil
}

func (c *ReadonlySignal[T]) invalidate(visited mapset.Set[uint64]) {
	if !visited.Add(c.id) {
		return
	}
	c.dirty = true
	c.subs.Each(func(sub consumer) bool {
		sub.invalidate(visited)
		return false
	})
}

func (c *ReadonlySignal[T]) eq(a, b T) bool {
	if c.equals != nil {
		return c.equals(a, b)
	}
	return a == b
}
