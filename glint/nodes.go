package glint

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// Reactive is implemented by every node owned by a ReactiveSystem.
type Reactive interface {
	isReactive()
}

// producer is a node whose value can be read and depended upon. Signals
// and computeds are producers.
type producer interface {
	Reactive
	nodeID() uint64
	producedVersion() uint64
	refresh() error
	attach(c consumer)
	detach(c consumer)
}

// consumer is a node that reads producers during an evaluation.
// Computeds and watches are consumers.
type consumer interface {
	Reactive
	nodeID() uint64
	record(p producer)
	invalidate(visited mapset.Set[uint64])
}

// depEdge pairs a producer with the version observed when the owning
// consumer last read it.
type depEdge struct {
	src     producer
	seenVer uint64
}

// depTracker holds a consumer's producer edges in read order. The slice
// is rebuilt on every evaluation.
type depTracker struct {
	edges []depEdge
}

func (d *depTracker) record(p producer) {
	id := p.nodeID()
	for i := range d.edges {
		if d.edges[i].src.nodeID() == id {
			d.edges[i].seenVer = p.producedVersion()
			return
		}
	}
	d.edges = append(d.edges, depEdge{src: p, seenVer: p.producedVersion()})
}

func (d *depTracker) has(id uint64) bool {
	for i := range d.edges {
		if d.edges[i].src.nodeID() == id {
			return true
		}
	}
	return false
}

// changed refreshes producers in read order and reports whether any of
// them advanced past the version seen at the last evaluation. It stops
// at the first advanced producer, the remaining ones are refreshed by
// the re-evaluation that follows.
func (d *depTracker) changed() (bool, error) {
	for i := range d.edges {
		e := &d.edges[i]
		if err := e.src.refresh(); err != nil {
			return false, err
		}
		if e.src.producedVersion() != e.seenVer {
			return true, nil
		}
	}
	return false, nil
}

func (d *depTracker) detachAll(c consumer) {
	for _, e := range d.edges {
		e.src.detach(c)
	}
	d.edges = nil
}
