package glint

import (
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
)

// OnErrorFunc observes evaluation failures. from is the node whose
// callback failed. The error is still returned to the caller that
// triggered the evaluation, the callback is purely observational.
type OnErrorFunc func(from Reactive, err error)

// ReactiveSystem owns a dependency graph: the tracking slot that records
// which consumer is currently evaluating, and the queue of watches
// waiting for a Flush. A system and its nodes must be used from a single
// goroutine at a time.
type ReactiveSystem struct {
	onError OnErrorFunc

	activeConsumer consumer
	activeWatch    *Watch
	pauseStack     []consumer

	liveWatches mapset.Set[*Watch]
	queue       []*Watch
	queuedIDs   mapset.Set[uint64]

	lastID uint64
}

func CreateReactiveSystem(onError OnErrorFunc) *ReactiveSystem {
	return &ReactiveSystem{
		onError:     onError,
		liveWatches: mapset.NewThreadUnsafeSet[*Watch](),
		queuedIDs:   mapset.NewThreadUnsafeSet[uint64](),
	}
}

// SetErrorHandler replaces the system's error callback. Handy for
// systems obtained from the registry, which start without one.
func (rs *ReactiveSystem) SetErrorHandler(onError OnErrorFunc) {
	rs.onError = onError
}

func (rs *ReactiveSystem) nextID() uint64 {
	rs.lastID++
	return rs.lastID
}

func (rs *ReactiveSystem) reportError(from Reactive, err error) {
	if rs.onError != nil {
		rs.onError(from, err)
	}
}

// recordRead registers p as a dependency of the consumer currently
// evaluating, keeping both edge directions in sync.
func (rs *ReactiveSystem) recordRead(p producer) {
	if rs.activeConsumer == nil {
		return
	}
	rs.activeConsumer.record(p)
	p.attach(rs.activeConsumer)
}

// track evaluates fn with c as the active consumer, rebuilding c's
// dependency edges from the reads fn performs. Old edges not re-read are
// detached on both sides. If fn fails the old edges are kept instead, so
// the node still hears about changes to producers it read before.
// The previous active consumer is restored even when fn panics.
func (rs *ReactiveSystem) track(c consumer, d *depTracker, fn func() error) (err error) {
	prev := rs.activeConsumer
	old := d.edges
	d.edges = nil
	rs.activeConsumer = c
	defer func() {
		rs.activeConsumer = prev
		if err == nil {
			for _, e := range old {
				if !d.has(e.src.nodeID()) {
					e.src.detach(c)
				}
			}
			return
		}
		for _, e := range old {
			if !d.has(e.src.nodeID()) {
				d.edges = append(d.edges, e)
			}
		}
	}()
	err = fn()
	return err
}

// PauseTracking suspends dependency recording until ResumeTracking.
// Reads in between behave like Peek. Calls nest.
func (rs *ReactiveSystem) PauseTracking() {
	rs.pauseStack = append(rs.pauseStack, rs.activeConsumer)
	rs.activeConsumer = nil
}

func (rs *ReactiveSystem) ResumeTracking() {
	n := len(rs.pauseStack)
	if n == 0 {
		return
	}
	rs.activeConsumer = rs.pauseStack[n-1]
	rs.pauseStack = rs.pauseStack[:n-1]
}

// Untracked runs fn with dependency tracking paused.
func (rs *ReactiveSystem) Untracked(fn func()) {
	rs.PauseTracking()
	defer rs.ResumeTracking()
	fn()
}

func (rs *ReactiveSystem) enqueue(w *Watch) {
	if w.destroyed || !rs.liveWatches.Contains(w) {
		return
	}
	if !rs.queuedIDs.Add(w.id) {
		return
	}
	rs.queue = append(rs.queue, w)
}

func (rs *ReactiveSystem) dequeue(w *Watch) {
	if !rs.queuedIDs.Contains(w.id) {
		return
	}
	rs.queuedIDs.Remove(w.id)
	for i, queued := range rs.queue {
		if queued == w {
			rs.queue = append(rs.queue[:i], rs.queue[i+1:]...)
			break
		}
	}
}

// Flush drains the watch queue in FIFO order. A dequeued watch reruns
// only if one of its producers actually changed value since its last
// run, so a signal write that left every derived value equal costs
// nothing here. Watches enqueued during the flush, by bodies created
// with AllowSignalWrites, are drained in the same call. A failing body
// does not stop the drain; Flush returns all body errors joined.
func (rs *ReactiveSystem) Flush() error {
	if rs.activeWatch != nil {
		panic(ErrFlushReentrancy)
	}
	var errs []error
	for len(rs.queue) > 0 {
		w := rs.queue[0]
		rs.queue = rs.queue[1:]
		rs.queuedIDs.Remove(w.id)
		if w.destroyed {
			continue
		}
		changed, err := w.deps.changed()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !changed {
			w.dirty = false
			continue
		}
		if err := w.run(); err != nil {
			rs.reportError(w, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (rs *ReactiveSystem) IsQueueEmpty() bool {
	return len(rs.queue) == 0
}

func (rs *ReactiveSystem) QueuedWatches() int {
	return len(rs.queue)
}

var (
	registryMu sync.Mutex
	registry   = map[uint64]*ReactiveSystem{}
)

// System returns the process-wide system registered under name,
// creating it on first use. Names are hashed so the registry key is a
// fixed-size integer regardless of name length.
func System(name string) *ReactiveSystem {
	key := xxhash.Sum64String(name)
	registryMu.Lock()
	defer registryMu.Unlock()
	rs, ok := registry[key]
	if !ok {
		rs = CreateReactiveSystem(nil)
		registry[key] = rs
	}
	return rs
}

// Default returns the shared default system.
func Default() *ReactiveSystem {
	return System("default")
}
