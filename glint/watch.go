package glint

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// WatchFunc is a watch body. onCleanup registers a function invoked
// before the body's next run and when the watch is destroyed. Each run
// starts with no cleanup registered.
type WatchFunc func(onCleanup func(func())) error

// Watch is a side-effecting consumer. It runs once at creation, then
// again on Flush whenever one of its producers changed value.
type Watch struct {
	rs      *ReactiveSystem
	id      uint64
	fn      WatchFunc
	cleanup func()
	deps    depTracker

	dirty       bool
	destroyed   bool
	allowWrites bool
}

// EffectOption configures a watch at creation.
type EffectOption func(w *Watch)

// AllowSignalWrites lets the watch body write signals. Watches
// invalidated by such writes join the flush already in progress.
func AllowSignalWrites() EffectOption {
	return func(w *Watch) { w.allowWrites = true }
}

// Effect creates a watch and runs it immediately. The returned error is
// the first run's error; the watch stays live either way and reruns on
// the next change to a producer it managed to read.
func Effect(rs *ReactiveSystem, fn WatchFunc, opts ...EffectOption) (*Watch, error) {
	w := &Watch{
		rs: rs,
		id: rs.nextID(),
		fn: fn,
	}
	for _, opt := range opts {
		opt(w)
	}
	rs.liveWatches.Add(w)
	if err := w.run(); err != nil {
		rs.reportError(w, err)
		return w, err
	}
	return w, nil
}

func (w *Watch) isReactive() {}

func (w *Watch) nodeID() uint64 { return w.id }

func (w *Watch) record(p producer) { w.deps.record(p) }

func (w *Watch) invalidate(visited mapset.Set[uint64]) {
	if !visited.Add(w.id) {
		return
	}
	w.dirty = true
	w.rs.enqueue(w)
}

func (w *Watch) run() error {
	w.dirty = false
	w.runCleanup()
	prev := w.rs.activeWatch
	w.rs.activeWatch = w
	defer func() { w.rs.activeWatch = prev }()
	return w.rs.track(w, &w.deps, func() error {
		return w.fn(w.onCleanup)
	})
}

func (w *Watch) onCleanup(fn func()) {
	w.cleanup = fn
}

func (w *Watch) runCleanup() {
	if w.cleanup == nil {
		return
	}
	cleanup := w.cleanup
	w.cleanup = nil
	cleanup()
}

// Destroyed reports whether Destroy has been called.
func (w *Watch) Destroyed() bool {
	return w.destroyed
}

// Destroy stops the watch: the pending cleanup runs, any queued rerun is
// cancelled and all dependency edges are severed on both sides.
// Destroy is idempotent.
func (w *Watch) Destroy() {
	if w.destroyed {
		return
	}
	w.destroyed = true
	w.runCleanup()
	w.rs.liveWatches.Remove(w)
	w.rs.dequeue(w)
	w.deps.detachAll(w)
}
