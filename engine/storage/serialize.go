package storage

import (
	"encoding/json"

	"github.com/zoravur/spooky-engine/engine/interner"
	"github.com/zoravur/spooky-engine/engine/zset"
)

// columnSnapshot is the wire shape of one Column, tagged by kind so
// UnmarshalJSON can reconstruct the correct concrete type.
type columnSnapshot struct {
	Kind   ColumnKind       `json:"kind"`
	Ints   []int64          `json:"ints,omitempty"`
	Floats []float64        `json:"floats,omitempty"`
	Bools  []bool           `json:"bools,omitempty"`
	Syms   []interner.Symbol `json:"syms,omitempty"`
}

type tableSnapshot struct {
	Name        string                    `json:"name"`
	Columns     map[string]columnSnapshot `json:"columns"`
	ColumnOrder []string                  `json:"column_order"`
	NumRows     int                       `json:"num_rows"`
	PKMap       map[string]int            `json:"pk_map"`
	IndexToPK   []string                  `json:"index_to_pk"`
	ZSet        zset.ZSet                 `json:"zset"`
	Hashes      map[string]string         `json:"hashes"`
}

// MarshalJSON persists columns, num_rows, zset and hashes, per spec §6's
// persistence-file description.
func (t *Table) MarshalJSON() ([]byte, error) {
	cols := make(map[string]columnSnapshot, len(t.columns))
	for name, c := range t.columns {
		switch cc := c.(type) {
		case *IntColumn:
			cols[name] = columnSnapshot{Kind: ColInt, Ints: []int64(*cc)}
		case *FloatColumn:
			cols[name] = columnSnapshot{Kind: ColFloat, Floats: []float64(*cc)}
		case *BoolColumn:
			cols[name] = columnSnapshot{Kind: ColBool, Bools: []bool(*cc)}
		case *TextColumn:
			cols[name] = columnSnapshot{Kind: ColText, Syms: []interner.Symbol(*cc)}
		}
	}
	return json.Marshal(tableSnapshot{
		Name:        t.Name,
		Columns:     cols,
		ColumnOrder: t.columnOrder,
		NumRows:     t.NumRows,
		PKMap:       t.PKMap,
		IndexToPK:   t.IndexToPK,
		ZSet:        t.ZSet,
		Hashes:      t.Hashes,
	})
}

// UnmarshalJSON rebuilds a Table from its persisted snapshot.
func (t *Table) UnmarshalJSON(b []byte) error {
	var snap tableSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return err
	}
	t.Name = snap.Name
	t.columns = make(map[string]Column, len(snap.Columns))
	for name, cs := range snap.Columns {
		switch cs.Kind {
		case ColInt:
			col := IntColumn(cs.Ints)
			t.columns[name] = &col
		case ColFloat:
			col := FloatColumn(cs.Floats)
			t.columns[name] = &col
		case ColBool:
			col := BoolColumn(cs.Bools)
			t.columns[name] = &col
		case ColText:
			col := TextColumn(cs.Syms)
			t.columns[name] = &col
		}
	}
	t.columnOrder = snap.ColumnOrder
	t.NumRows = snap.NumRows
	t.PKMap = snap.PKMap
	if t.PKMap == nil {
		t.PKMap = make(map[zset.RowKey]int)
	}
	t.IndexToPK = snap.IndexToPK
	t.ZSet = snap.ZSet
	if t.ZSet == nil {
		t.ZSet = zset.New()
	}
	t.Hashes = snap.Hashes
	if t.Hashes == nil {
		t.Hashes = make(map[zset.RowKey]string)
	}
	return nil
}
