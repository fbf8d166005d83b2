package plan

import (
	"github.com/zoravur/spooky-engine/engine/predicate"
	"github.com/zoravur/spooky-engine/engine/zset"
)

// Filter retains entries from its child's output where Predicate holds.
// Weight is unchanged for a genuine membership delta. Filter additionally
// tracks its own output membership in `known` (mirroring Limit's `prev`
// field) so it can correctly handle the two cases a bare weight-delta can't
// express: a row's predicate result flipping on a content-only update (spec
// §4.G content versioning, §8 scenario 2), and a row that passed the filter
// being deleted out from under it (storage.Table.Delete removes the row
// before Process runs, so the predicate can no longer be re-evaluated; the
// retraction must instead come from `known`). When Filter sits directly atop
// a Scan and Predicate is a single numeric comparison on one Int/Float
// column, the typed fast path is used instead of reconstructing a
// value.Value per row (spec §4.E).
type Filter struct {
	Input     Operator
	Predicate predicate.Predicate

	known zset.ZSet // rowkey -> weight Filter last counted as its own output
}

func (f *Filter) Process(inputTable string, inputDelta zset.ZSet, db Database) (zset.ZSet, error) {
	childDelta, err := f.Input.Process(inputTable, inputDelta, db)
	if err != nil {
		return nil, err
	}
	if f.known == nil {
		f.known = zset.New()
	}

	out := zset.New()
	scan, isScan := f.Input.(*Scan)

	for key, w := range childDelta {
		table, _, ok := zset.ParseRowKey(key)
		if !ok {
			continue
		}
		tbl, ok := db.Table(table)
		if !ok {
			continue
		}

		prevW := f.known[key]
		rowIdx, rowExists := tbl.RowIndex(key)

		var keep bool
		if rowExists {
			if isScan && scan.Table == table {
				if col, threshold, eligible := predicate.FastPathEligible(f.Predicate, tbl); eligible {
					keep = predicate.EvalColumnFastPath(f.Predicate.Kind, col, threshold, tbl, rowIdx)
				} else {
					row, _ := tbl.GetRow(key, db.Symbols())
					keep = predicate.Eval(f.Predicate, row)
				}
			} else {
				row, _ := tbl.GetRow(key, db.Symbols())
				keep = predicate.Eval(f.Predicate, row)
			}
		}
		// A row that no longer exists (deleted) can't satisfy any predicate;
		// keep stays false, forcing the retraction below.

		var desired int64
		switch {
		case keep && w != 0:
			desired = prevW + w // genuine membership/weight change while matching
		case keep:
			desired = tbl.ZSet[key] // content-only ping: adopt the row's real current weight
		default:
			desired = 0 // doesn't match (or no longer exists): filter excludes it
		}

		if desired != prevW {
			out[key] = desired - prevW
		}
		if desired == 0 {
			delete(f.known, key)
		} else {
			f.known[key] = desired
		}
	}
	return out, nil
}

func (f *Filter) ScannedTables(out map[string]struct{}) {
	f.Input.ScannedTables(out)
}
