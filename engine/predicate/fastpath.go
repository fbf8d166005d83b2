package predicate

import "github.com/zoravur/spooky-engine/engine/storage"

// FastPathEligible reports whether p can run against table via the typed
// column fast path: a single numeric comparison on one Int or Float column.
func FastPathEligible(p Predicate, table *storage.Table) (colName string, threshold float64, eligible bool) {
	switch p.Kind {
	case Eq, Neq, Gt, Gte, Lt, Lte:
	default:
		return "", 0, false
	}
	if len(p.Field) != 1 {
		return "", 0, false
	}
	n, ok := p.Value.AsNumber()
	if !ok {
		return "", 0, false
	}
	kind, ok := table.ColumnKindOf(p.Field[0])
	if !ok || (kind != storage.ColInt && kind != storage.ColFloat) {
		return "", 0, false
	}
	return p.Field[0], n, true
}

// compareFloat applies kind's comparison between a and b, matching the
// generic path's NaN/ordering semantics exactly (predicate.go's compare).
func compareFloat(kind Kind, a, b float64) bool {
	if kind == Eq {
		return !isNaN(a) && !isNaN(b) && a == b
	}
	if kind == Neq {
		return !(!isNaN(a) && !isNaN(b) && a == b)
	}
	return orderNumbers(kind, a, b)
}

// EvalColumnFastPath iterates the named Int/Float column directly by row
// index, avoiding value.Value reconstruction per row. Results MUST equal the
// generic Eval path bit-for-bit (enforced by fastpath_test.go).
func EvalColumnFastPath(kind Kind, col string, threshold float64, table *storage.Table, rowIdx int) bool {
	if ints, ok := table.IntColumnData(col); ok {
		return compareFloat(kind, float64(ints[rowIdx]), threshold)
	}
	if floats, ok := table.FloatColumnData(col); ok {
		return compareFloat(kind, floats[rowIdx], threshold)
	}
	return false
}
