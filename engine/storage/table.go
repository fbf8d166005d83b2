// Package storage implements the columnar Table: per-column typed vectors
// plus a primary-key index, as described in spec §4.C.
package storage

import (
	"math"

	"github.com/zoravur/spooky-engine/engine/interner"
	"github.com/zoravur/spooky-engine/engine/value"
	"github.com/zoravur/spooky-engine/engine/zset"
)

// Table holds one source table's columnar storage, PK index, membership
// Z-set and content-hash map. Invariants (spec §8 I2): for every pk in
// PKMap, IndexToPK[PKMap[pk]] == pk; every column has Len() == NumRows; the
// set of keys with nonzero ZSet weight equals the set of present rows.
type Table struct {
	Name string

	columns     map[string]Column
	columnOrder []string // first-seen order, for deterministic GetRow reconstruction

	NumRows   int
	PKMap     map[zset.RowKey]int
	IndexToPK []zset.RowKey

	ZSet   zset.ZSet
	Hashes map[zset.RowKey]string
}

// New returns an empty table named name.
func New(name string) *Table {
	return &Table{
		Name:      name,
		columns:   make(map[string]Column),
		PKMap:     make(map[zset.RowKey]int),
		IndexToPK: nil,
		ZSet:      zset.New(),
		Hashes:    make(map[zset.RowKey]string),
	}
}

func (t *Table) ensureColumn(name string, sample value.Value) Column {
	if c, ok := t.columns[name]; ok {
		return c
	}
	var c Column
	switch sample.Kind {
	case value.KindBool:
		c = new(BoolColumn)
	case value.KindStr:
		c = new(TextColumn)
	case value.KindNumber:
		if isWholeNumber(sample.Number) {
			c = new(IntColumn)
		} else {
			c = new(FloatColumn)
		}
	default:
		// Null/Array/Object fields are not columnar; store as text via "" so
		// the column stays aligned with NumRows.
		c = new(TextColumn)
	}
	t.columns[name] = c
	t.columnOrder = append(t.columnOrder, name)
	// Backfill existing rows with a zero value so every column stays at NumRows.
	for i := 0; i < t.NumRows; i++ {
		pushZero(c)
	}
	return c
}

func isWholeNumber(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0)
}

func pushZero(c Column) {
	switch c.Kind() {
	case ColInt:
		c.Push(int64(0))
	case ColFloat:
		c.Push(float64(0))
	case ColBool:
		c.Push(false)
	case ColText:
		c.Push(interner.Symbol(0))
	}
}

// cellValue converts a field's value.Value into the `any` a Column.Push/
// Overwrite expects, interning text through sym.
func cellValue(c Column, field value.Value, sym *interner.SymbolTable) any {
	switch c.Kind() {
	case ColInt:
		if n, ok := field.AsNumber(); ok {
			return int64(n)
		}
		return int64(0)
	case ColFloat:
		if n, ok := field.AsNumber(); ok {
			return n
		}
		return float64(0)
	case ColBool:
		if b, ok := field.AsBool(); ok {
			return b
		}
		return false
	case ColText:
		if s, ok := field.AsStr(); ok {
			return sym.Intern(s)
		}
		return interner.Symbol(0)
	}
	return nil
}

// Upsert inserts or overwrites the row at key with record (must be an
// Object value). Returns whether the content hash actually changed, so
// callers can classify no-op updates. New columns are created on demand from
// the first row that carries them.
func (t *Table) Upsert(key zset.RowKey, record value.Value, contentHash string, sym *interner.SymbolTable) bool {
	prevHash, existed := t.Hashes[key]
	changed := !existed || prevHash != contentHash
	t.Hashes[key] = contentHash

	fieldNames := make([]string, 0, len(record.Object))
	for _, m := range record.Object {
		fieldNames = append(fieldNames, m.Key)
	}

	if idx, ok := t.PKMap[key]; ok {
		for _, name := range fieldNames {
			fv, _ := record.Field(name)
			c := t.ensureColumn(name, fv)
			c.Overwrite(idx, cellValue(c, fv, sym))
		}
		return changed
	}

	idx := t.NumRows
	t.PKMap[key] = idx
	t.IndexToPK = append(t.IndexToPK, key)
	t.NumRows++

	present := make(map[string]bool, len(fieldNames))
	for _, name := range fieldNames {
		present[name] = true
		fv, _ := record.Field(name)
		c := t.ensureColumn(name, fv)
		c.Push(cellValue(c, fv, sym))
	}
	// Any column not present on this row gets a zero filler so all columns
	// stay at NumRows.
	for _, name := range t.columnOrder {
		if !present[name] {
			pushZero(t.columns[name])
		}
	}
	return true
}

// Delete removes key via swap_remove, keeping PKMap/IndexToPK/columns in
// sync. Deleting an absent key is a no-op, never an error.
func (t *Table) Delete(key zset.RowKey) {
	idx, ok := t.PKMap[key]
	if !ok {
		return
	}
	last := t.NumRows - 1
	for _, name := range t.columnOrder {
		t.columns[name].SwapRemove(idx)
	}
	if idx != last {
		movedKey := t.IndexToPK[last]
		t.IndexToPK[idx] = movedKey
		t.PKMap[movedKey] = idx
	}
	t.IndexToPK = t.IndexToPK[:last]
	t.NumRows--
	delete(t.PKMap, key)
	delete(t.Hashes, key)
}

// ApplyDelta folds a membership Z-set delta into the table's own Z-set.
func (t *Table) ApplyDelta(delta zset.ZSet) {
	for key, w := range delta {
		zset.Apply(t.ZSet, key, w)
	}
}

// GetRow reconstructs an Object value.Value for key by reading one cell per
// column, resolving interned Text through sym.
func (t *Table) GetRow(key zset.RowKey, sym *interner.SymbolTable) (value.Value, bool) {
	idx, ok := t.PKMap[key]
	if !ok {
		return value.Value{}, false
	}
	keys := make([]string, 0, len(t.columnOrder))
	vals := make([]value.Value, 0, len(t.columnOrder))
	for _, name := range t.columnOrder {
		c := t.columns[name]
		raw := c.Value(idx, sym)
		keys = append(keys, name)
		switch c.Kind() {
		case ColInt:
			vals = append(vals, value.NewNumber(float64(raw.(int64))))
		case ColFloat:
			vals = append(vals, value.NewNumber(raw.(float64)))
		case ColBool:
			vals = append(vals, value.NewBool(raw.(bool)))
		case ColText:
			vals = append(vals, value.NewStr(raw.(string)))
		}
	}
	return value.NewObject(keys, vals), true
}

// ColumnKindOf reports the storage kind of a column, used by the predicate
// fast path to decide whether it may iterate a column directly.
func (t *Table) ColumnKindOf(name string) (ColumnKind, bool) {
	c, ok := t.columns[name]
	if !ok {
		return 0, false
	}
	return c.Kind(), true
}

// IntColumnData exposes a raw Int column's backing slice for the predicate
// fast path. Returns (nil, false) if the column isn't an Int column.
func (t *Table) IntColumnData(name string) ([]int64, bool) {
	c, ok := t.columns[name]
	if !ok {
		return nil, false
	}
	ic, ok := c.(*IntColumn)
	if !ok {
		return nil, false
	}
	return []int64(*ic), true
}

// FloatColumnData exposes a raw Float column's backing slice for the
// predicate fast path.
func (t *Table) FloatColumnData(name string) ([]float64, bool) {
	c, ok := t.columns[name]
	if !ok {
		return nil, false
	}
	fc, ok := c.(*FloatColumn)
	if !ok {
		return nil, false
	}
	return []float64(*fc), true
}

// RowIndex returns the row index for key, if present.
func (t *Table) RowIndex(key zset.RowKey) (int, bool) {
	idx, ok := t.PKMap[key]
	return idx, ok
}
