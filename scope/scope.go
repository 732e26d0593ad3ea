// Package scope holds named, reusable query transformations.
//
// A Table is the method table of a model: it maps a scope name to a typed
// function that receives the current query plus call arguments and returns
// a new query. Tables are built once when a model is defined and are
// read-only afterwards, so they are safe for concurrent use.
package scope

import (
	"sort"
)

// Func transforms a query value. Implementations must not mutate q; they
// return a new query built from it.
//
//	func Adults(q *orm.Query, _ ...any) *orm.Query {
//	    return q.Filter(orm.Attrs{"age__gte": 18})
//	}
type Func[Q any] func(q Q, args ...any) Q

// Table is an immutable name → Func mapping.
type Table[Q any] struct {
	funcs map[string]Func[Q]
}

// NewTable copies funcs into a new Table. Nil entries are dropped.
func NewTable[Q any](funcs map[string]Func[Q]) Table[Q] {
	t := Table[Q]{funcs: make(map[string]Func[Q], len(funcs))}
	for name, fn := range funcs {
		if fn != nil {
			t.funcs[name] = fn
		}
	}
	return t
}

// Lookup returns the scope registered under name.
func (t Table[Q]) Lookup(name string) (Func[Q], bool) {
	fn, ok := t.funcs[name]
	return fn, ok
}

// Apply invokes the scope registered under name. It reports false, leaving
// q untouched, when no such scope exists.
func (t Table[Q]) Apply(q Q, name string, args ...any) (Q, bool) {
	fn, ok := t.funcs[name]
	if !ok {
		return q, false
	}
	return fn(q, args...), true
}

// Names returns the registered scope names in sorted order.
func (t Table[Q]) Names() []string {
	names := make([]string, 0, len(t.funcs))
	for name := range t.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered scopes.
func (t Table[Q]) Len() int { return len(t.funcs) }

// Chain composes scopes left to right. Every scope receives the same args.
//
//	scope.Chain(Active, Recent)
func Chain[Q any](fns ...Func[Q]) Func[Q] {
	return func(q Q, args ...any) Q {
		for _, fn := range fns {
			q = fn(q, args...)
		}
		return q
	}
}

// Fixed adapts a scope that takes no arguments.
func Fixed[Q any](fn func(Q) Q) Func[Q] {
	return func(q Q, _ ...any) Q { return fn(q) }
}
