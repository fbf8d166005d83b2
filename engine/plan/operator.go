// Package plan implements the query plan / operator tree (scan, filter,
// project with subqueries, join, limit+order) and its incremental evaluation
// against a batch of input deltas, per spec §3/§4.F.
package plan

import (
	"github.com/zoravur/spooky-engine/engine/interner"
	"github.com/zoravur/spooky-engine/engine/storage"
	"github.com/zoravur/spooky-engine/engine/value"
	"github.com/zoravur/spooky-engine/engine/zset"
)

// Database is the minimal read surface an Operator needs from the Circuit's
// table map: current Z-set membership, row reconstruction, and raw-column
// access for the predicate fast path.
type Database interface {
	Table(name string) (*storage.Table, bool)
	Symbols() *interner.SymbolTable
}

// InitialHydrationTable is the sentinel "changed table" value Circuit passes
// when a freshly-registered View must be seeded from current table state
// instead of reacting to a real delta (spec §4.F Scan, §4.H register_view).
const InitialHydrationTable = ""

// IsInitialHydration reports whether this Process call represents the
// initial-hydration snapshot rather than a real batch delta.
func IsInitialHydration(table string, delta zset.ZSet) bool {
	return table == InitialHydrationTable && len(delta) == 0
}

// Operator is the tagged union Scan|Filter|Project|Join|Limit. Each variant
// implements Process (incremental evaluation) and ScannedTables (dispatcher
// pruning, including any nested Subquery's tables).
type Operator interface {
	Process(inputTable string, inputDelta zset.ZSet, db Database) (zset.ZSet, error)
	ScannedTables(out map[string]struct{})
}

// Projection is one of All, Field{path}, Subquery{alias, plan}.
type ProjectionKind int

const (
	ProjAll ProjectionKind = iota
	ProjField
	ProjSubquery
)

type Projection struct {
	Kind    ProjectionKind
	Field   value.Path
	Alias   string
	Subplan Operator
}

// OrderSpec is one {field, direction} entry of a Limit's order_by.
type OrderSpec struct {
	Field     value.Path
	Direction string // "asc" | "desc"
}

// JoinCondition names the left/right fields an equi-join matches on.
type JoinCondition struct {
	LeftField  value.Path
	RightField value.Path
}
