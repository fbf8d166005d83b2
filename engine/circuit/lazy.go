package circuit

import (
	"github.com/zoravur/spooky-engine/engine/value"
)

// Store is the read surface a LazyCircuit delegates to instead of owning
// columnar storage itself — the lazy counterpart to the eager Circuit's
// Database, for callers fronting an existing row store (a cache, a remote
// KV, a service boundary) rather than ingesting into engine/storage tables.
//
// Resolves Open Question (a): the eager Circuit remains authoritative and
// is what RegisterView/IngestBatch/views run against; LazyCircuit is the
// documented alternative for point lookups against a backend the engine
// does not own, not a second incremental-view implementation.
type Store interface {
	Get(table, id string) (value.Value, bool)
	GetByField(table, field string, v value.Value) []value.Value
}

// LazyCircuit answers point and field lookups against a Store without
// materializing any table locally. It does not run plan.Operator trees —
// those require engine/storage's columnar Table for the predicate fast
// path and hash-join indexing, which a generic Store cannot provide — so
// LazyCircuit cannot host views. It exists for callers that want the
// engine's row-lookup shape (e.g. a Project subquery resolver, or a
// handler serving single-row reads) fronting a store the engine doesn't
// own, and is deliberately narrower than Circuit rather than a parallel
// reimplementation of it.
type LazyCircuit struct {
	Backing Store
}

// NewLazyCircuit wraps store for read-through lookups.
func NewLazyCircuit(store Store) *LazyCircuit {
	return &LazyCircuit{Backing: store}
}

// Get reads one row by primary key.
func (l *LazyCircuit) Get(table, id string) (value.Value, bool) {
	return l.Backing.Get(table, id)
}

// GetByField reads all rows whose field equals v.
func (l *LazyCircuit) GetByField(table, field string, v value.Value) []value.Value {
	return l.Backing.GetByField(table, field, v)
}
