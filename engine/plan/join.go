package plan

import (
	"strconv"

	"github.com/zoravur/spooky-engine/engine/value"
	"github.com/zoravur/spooky-engine/engine/zset"
)

// Join is a semi/equi-join on two child operators' outputs. Per spec §4.F:
// for every input delta tuple from one side, probe the opposite side's
// current materialization (building a transient hash index on first use,
// per Open Question (d)) and emit result keys weighted lw*rw. Result keys
// are the LEFT row keys; deletions on either side emit negative weights.
//
// leftJoinVal/rightJoinVal remember the last canonical join-field value
// seen for each row on their respective side, mirroring Filter's `known`
// field (filter.go): storage.Table.Delete swap-removes a row before
// Process runs, so a deleted row can no longer be probed for its join
// field. Without the remembered value, a delete on either side would
// silently fail to retract its prior matches from the output, drifting
// View.Cache out of sync with the real join result (spec I1/I3).
type Join struct {
	Left  Operator
	Right Operator
	On    JoinCondition

	leftJoinVal  map[zset.RowKey]string
	rightJoinVal map[zset.RowKey]string
}

func (j *Join) Process(inputTable string, inputDelta zset.ZSet, db Database) (zset.ZSet, error) {
	out := zset.New()
	if j.leftJoinVal == nil {
		j.leftJoinVal = make(map[zset.RowKey]string)
	}
	if j.rightJoinVal == nil {
		j.rightJoinVal = make(map[zset.RowKey]string)
	}

	if IsInitialHydration(inputTable, inputDelta) {
		leftSnap, err := j.Left.Process(InitialHydrationTable, zset.New(), db)
		if err != nil {
			return nil, err
		}
		rightSnap, err := j.Right.Process(InitialHydrationTable, zset.New(), db)
		if err != nil {
			return nil, err
		}
		rightIdx := buildFieldIndex(rightSnap, j.On.RightField, db, j.rightJoinVal)
		for leftKey, lw := range leftSnap {
			canon, ok := resolveJoinValue(db, leftKey, j.On.LeftField, j.leftJoinVal)
			if !ok {
				continue
			}
			for _, m := range rightIdx[canon] {
				zset.Apply(out, leftKey, lw*m.weight)
			}
		}
		return out, nil
	}

	leftDelta, err := j.Left.Process(inputTable, inputDelta, db)
	if err != nil {
		return nil, err
	}
	rightDelta, err := j.Right.Process(inputTable, inputDelta, db)
	if err != nil {
		return nil, err
	}

	if len(leftDelta) > 0 {
		rightSnap, err := j.Right.Process(InitialHydrationTable, zset.New(), db)
		if err != nil {
			return nil, err
		}
		rightIdx := buildFieldIndex(rightSnap, j.On.RightField, db, j.rightJoinVal)
		for leftKey, lw := range leftDelta {
			canon, ok := resolveJoinValue(db, leftKey, j.On.LeftField, j.leftJoinVal)
			if !ok {
				continue
			}
			for _, m := range rightIdx[canon] {
				zset.Apply(out, leftKey, lw*m.weight)
			}
		}
	}

	if len(rightDelta) > 0 {
		leftSnap, err := j.Left.Process(InitialHydrationTable, zset.New(), db)
		if err != nil {
			return nil, err
		}
		leftIdx := buildFieldIndex(leftSnap, j.On.LeftField, db, j.leftJoinVal)
		for rightKey, rw := range rightDelta {
			canon, ok := resolveJoinValue(db, rightKey, j.On.RightField, j.rightJoinVal)
			if !ok {
				continue
			}
			for _, m := range leftIdx[canon] {
				zset.Apply(out, m.key, m.weight*rw)
			}
		}
	}

	return out, nil
}

type indexEntry struct {
	key    zset.RowKey
	weight int64
}

// buildFieldIndex indexes snap by field's canonical value, and — since it
// already looks up each row — opportunistically refreshes known with the
// current value for every row still present, for resolveJoinValue's benefit
// on a later delete.
func buildFieldIndex(snap zset.ZSet, field value.Path, db Database, known map[zset.RowKey]string) map[string][]indexEntry {
	idx := make(map[string][]indexEntry)
	for key, w := range snap {
		row, ok := rowForKey(db, key)
		if !ok {
			continue
		}
		fv, ok := value.Get(row, field)
		if !ok {
			continue
		}
		k := canonicalJoinValue(fv)
		known[key] = k
		idx[k] = append(idx[k], indexEntry{key: key, weight: w})
	}
	return idx
}

// resolveJoinValue returns key's current canonical join-field value. If the
// row no longer exists or no longer carries field (already deleted from
// storage, or content-updated to drop the field), it falls back to the last
// value known had for key — consuming it, since this retraction is the last
// chance to use it. Returns false only if key was never resolvable at all.
func resolveJoinValue(db Database, key zset.RowKey, field value.Path, known map[zset.RowKey]string) (string, bool) {
	if row, ok := rowForKey(db, key); ok {
		if fv, ok := value.Get(row, field); ok {
			canon := canonicalJoinValue(fv)
			known[key] = canon
			return canon, true
		}
	}
	if canon, ok := known[key]; ok {
		delete(known, key)
		return canon, true
	}
	return "", false
}

func canonicalJoinValue(v value.Value) string {
	switch v.Kind {
	case value.KindStr:
		return "s:" + v.Str
	case value.KindNumber:
		return "n:" + strconv.FormatFloat(v.Number, 'g', -1, 64)
	case value.KindBool:
		if v.Bool {
			return "b:1"
		}
		return "b:0"
	default:
		return "null"
	}
}

func (j *Join) ScannedTables(out map[string]struct{}) {
	j.Left.ScannedTables(out)
	j.Right.ScannedTables(out)
}
