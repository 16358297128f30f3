// Package pool implements the deduplicating, dependency-ordered table builder
// used when flattening a program back to ABC tables.
//
// Entries are keyed by a comparable key and carry a value used for rendering.
// Every Add counts a hit; Finalize orders entries by descending hit count so
// that frequently used entries get the shortest index encodings, then moves
// entries so that every registered dependency precedes its dependent.
// Dependencies that would close a cycle are dropped, so any set of entries
// can be finalized.
package pool

import (
	"fmt"
	"sort"
)

type entry[K comparable, V any] struct {
	key   K
	value V
	hits  int
	order int
	deps  []K
}

// Pool is a deduplicating table under construction.
type Pool[K comparable, V any] struct {
	name    string
	isNull  func(K) bool
	less    func(a, b V) bool
	entries map[K]*entry[K, V]
	added   []*entry[K, V]

	final map[K]int
	order []*entry[K, V]
}

// New creates a pool. isNull identifies the null key; when it is non-nil
// index 0 is reserved for null and entries start at 1, otherwise entries
// start at 0. less orders entries with equal hit counts; when nil, insertion
// order is used.
func New[K comparable, V any](name string, isNull func(K) bool, less func(a, b V) bool) *Pool[K, V] {
	return &Pool[K, V]{
		name:    name,
		isNull:  isNull,
		less:    less,
		entries: make(map[K]*entry[K, V]),
	}
}

func (p *Pool[K, V]) null(key K) bool {
	return p.isNull != nil && p.isNull(key)
}

// Add counts an occurrence of key, inserting it with value v if it is new.
// It reports whether key was inserted. The null key is never inserted.
func (p *Pool[K, V]) Add(key K, v V) bool {
	if p.final != nil {
		panic("pool " + p.name + ": Add after Finalize")
	}
	if p.null(key) {
		return false
	}
	if e, ok := p.entries[key]; ok {
		e.hits++
		return false
	}
	e := &entry[K, V]{key: key, value: v, hits: 1, order: len(p.added)}
	p.entries[key] = e
	p.added = append(p.added, e)
	return true
}

// Contains reports whether key has been added.
func (p *Pool[K, V]) Contains(key K) bool {
	_, ok := p.entries[key]
	return ok
}

// Hits returns the number of times key was added.
func (p *Pool[K, V]) Hits(key K) int {
	if e, ok := p.entries[key]; ok {
		return e.hits
	}
	return 0
}

// RegisterDependency records that from must be placed after to. Dependencies
// on the null key or on keys never added are ignored.
func (p *Pool[K, V]) RegisterDependency(from, to K) {
	if from == to || p.null(to) {
		return
	}
	e, ok := p.entries[from]
	if !ok {
		return
	}
	for _, d := range e.deps {
		if d == to {
			return
		}
	}
	e.deps = append(e.deps, to)
}

// Finalize fixes the order of all entries. A dependency that closes a cycle
// is discarded; the remaining ones are honored.
func (p *Pool[K, V]) Finalize() {
	if p.final != nil {
		return
	}
	p.breakCycles()

	order := append([]*entry[K, V](nil), p.added...)
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.hits != b.hits {
			return a.hits > b.hits
		}
		if p.less != nil {
			return p.less(a.value, b.value)
		}
		return a.order < b.order
	})

	pos := make(map[K]int, len(order))
	for i, e := range order {
		pos[e.key] = i
	}

	for relocate(order, pos) {
	}

	base := 0
	if p.isNull != nil {
		base = 1
	}
	p.order = order
	p.final = make(map[K]int, len(order))
	for i, e := range order {
		p.final[e.key] = base + i
	}
}

// breakCycles walks the dependency graph in insertion order and removes
// every edge that leads back to an entry still on the walk.
func (p *Pool[K, V]) breakCycles() {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[K]int, len(p.added))
	var visit func(e *entry[K, V])
	visit = func(e *entry[K, V]) {
		state[e.key] = visiting
		kept := e.deps[:0]
		for _, d := range e.deps {
			de, ok := p.entries[d]
			if !ok {
				continue
			}
			switch state[d] {
			case visiting:
				continue
			case unvisited:
				visit(de)
			}
			kept = append(kept, d)
		}
		e.deps = kept
		state[e.key] = done
	}
	for _, e := range p.added {
		if state[e.key] == unvisited {
			visit(e)
		}
	}
}

// relocate moves the first misplaced dependency in front of its dependent.
// It reports whether anything moved. Entries before the first violation
// are never touched, so repeated calls terminate for acyclic dependencies.
func relocate[K comparable, V any](order []*entry[K, V], pos map[K]int) bool {
	for i, e := range order {
		for _, d := range e.deps {
			j, ok := pos[d]
			if !ok || j < i {
				continue
			}
			dep := order[j]
			copy(order[i+1:j+1], order[i:j])
			order[i] = dep
			for k := i; k <= j; k++ {
				pos[order[k].key] = k
			}
			return true
		}
	}
	return false
}

// Index returns the final index of key. The null key maps to 0. It panics if
// the pool is not finalized or key was never added.
func (p *Pool[K, V]) Index(key K) uint32 {
	if p.final == nil {
		panic("pool " + p.name + ": Index before Finalize")
	}
	if p.null(key) {
		return 0
	}
	i, ok := p.final[key]
	if !ok {
		panic(fmt.Sprintf("pool %s: value %v was never added", p.name, key))
	}
	return uint32(i)
}

// Len returns the table length, including the null entry if any.
func (p *Pool[K, V]) Len() int {
	if p.isNull != nil {
		return len(p.added) + 1
	}
	return len(p.added)
}

// Values returns the entry values in final order. For pools with a null
// entry, element 0 is the zero V.
func (p *Pool[K, V]) Values() []V {
	if p.final == nil {
		panic("pool " + p.name + ": Values before Finalize")
	}
	out := make([]V, 0, p.Len())
	if p.isNull != nil {
		var zero V
		out = append(out, zero)
	}
	for _, e := range p.order {
		out = append(out, e.value)
	}
	return out
}
