package plan

import (
	"sort"

	"github.com/zoravur/spooky-engine/engine/value"
	"github.com/zoravur/spooky-engine/engine/zset"
)

// Limit runs last in a plan. Per spec §4.F it is *not* incremental in the
// ideal sense: it recomputes the capped/ordered output from the full current
// materialization of its input and rolls that forward against the previous
// call's result, which is correct but O(cache size). Accepted cost for small
// N (Open Question (b)).
type Limit struct {
	Input   Operator
	N       int
	OrderBy []OrderSpec // nil/empty => stable cap by key

	prev zset.ZSet // previous call's capped output, for delta computation
}

func (l *Limit) Process(inputTable string, inputDelta zset.ZSet, db Database) (zset.ZSet, error) {
	// Touch the child once to ensure membership deltas for this table are
	// applied to any stateful sub-operators (e.g. nested Limit), even though
	// we recompute the capped set from the post-batch snapshot below.
	if _, err := l.Input.Process(inputTable, inputDelta, db); err != nil {
		return nil, err
	}

	snapshot, err := l.Input.Process(InitialHydrationTable, zset.New(), db)
	if err != nil {
		return nil, err
	}

	capped := l.applyLimit(snapshot, db)

	if l.prev == nil {
		l.prev = zset.New()
	}
	out := zset.New()
	for key, w := range capped {
		if prevW, ok := l.prev[key]; !ok || prevW != w {
			zset.Apply(out, key, w-l.prev[key])
		}
	}
	for key, prevW := range l.prev {
		if _, ok := capped[key]; !ok {
			zset.Apply(out, key, -prevW)
		}
	}
	l.prev = capped
	return out, nil
}

func (l *Limit) applyLimit(snapshot zset.ZSet, db Database) zset.ZSet {
	type row struct {
		key zset.RowKey
		w   int64
	}
	rows := make([]row, 0, len(snapshot))
	for k, w := range snapshot {
		rows = append(rows, row{k, w})
	}

	if len(l.OrderBy) == 0 {
		sort.Slice(rows, func(i, j int) bool { return rows[i].key < rows[j].key })
	} else {
		sort.SliceStable(rows, func(i, j int) bool {
			ri, _ := rowForKey(db, rows[i].key)
			rj, _ := rowForKey(db, rows[j].key)
			for _, spec := range l.OrderBy {
				vi, _ := value.Get(ri, spec.Field)
				vj, _ := value.Get(rj, spec.Field)
				cmp := compareOrderValues(vi, vj)
				if cmp == 0 {
					continue
				}
				if spec.Direction == "desc" {
					return cmp > 0
				}
				return cmp < 0
			}
			return rows[i].key < rows[j].key
		})
	}

	n := l.N
	if n < 0 {
		n = 0
	}
	if n > len(rows) {
		n = len(rows)
	}
	out := zset.New()
	for _, r := range rows[:n] {
		out[r.key] = r.w
	}
	return out
}

func compareOrderValues(a, b value.Value) int {
	if a.Kind == value.KindNumber && b.Kind == value.KindNumber {
		switch {
		case a.Number < b.Number:
			return -1
		case a.Number > b.Number:
			return 1
		default:
			return 0
		}
	}
	if a.Kind == value.KindStr && b.Kind == value.KindStr {
		switch {
		case a.Str < b.Str:
			return -1
		case a.Str > b.Str:
			return 1
		default:
			return 0
		}
	}
	return 0
}

func (l *Limit) ScannedTables(out map[string]struct{}) {
	l.Input.ScannedTables(out)
}
