package plan

import "github.com/zoravur/spooky-engine/engine/zset"

// Scan reads from one source table.
type Scan struct {
	Table string
}

// Process: if the changed table is this Scan's table, pass the delta
// through untouched; if this is the initial-hydration call, return the
// table's current Z-set snapshot; otherwise this Scan contributes nothing.
func (s *Scan) Process(inputTable string, inputDelta zset.ZSet, db Database) (zset.ZSet, error) {
	if inputTable == s.Table {
		return inputDelta, nil
	}
	if IsInitialHydration(inputTable, inputDelta) {
		tbl, ok := db.Table(s.Table)
		if !ok {
			return zset.New(), nil
		}
		return zset.Clone(tbl.ZSet), nil
	}
	return zset.New(), nil
}

func (s *Scan) ScannedTables(out map[string]struct{}) {
	out[s.Table] = struct{}{}
}
