package storage

import (
	"fmt"

	"github.com/zoravur/spooky-engine/engine/interner"
)

// ColumnKind discriminates the typed column vectors.
type ColumnKind int

const (
	ColInt ColumnKind = iota
	ColFloat
	ColBool
	ColText
)

// Column is a single typed, densely-packed column vector. Concrete
// implementations type-assert `v any` at their insertion point and panic on
// mismatch: a column type mismatch is a programmer error, per spec §4.C.
type Column interface {
	Kind() ColumnKind
	Len() int
	Push(v any)
	Overwrite(idx int, v any)
	SwapRemove(idx int)
	// Value reconstructs the row's value as `any` (resolving interned text
	// through sym).
	Value(idx int, sym *interner.SymbolTable) any
}

type IntColumn []int64

func (c *IntColumn) Kind() ColumnKind { return ColInt }
func (c *IntColumn) Len() int         { return len(*c) }
func (c *IntColumn) Push(v any) {
	n, ok := toInt64(v)
	if !ok {
		panic(fmt.Sprintf("storage: type mismatch, expected Int got %T", v))
	}
	*c = append(*c, n)
}
func (c *IntColumn) Overwrite(idx int, v any) {
	n, ok := toInt64(v)
	if !ok {
		panic(fmt.Sprintf("storage: type mismatch, expected Int got %T", v))
	}
	(*c)[idx] = n
}
func (c *IntColumn) SwapRemove(idx int) {
	last := len(*c) - 1
	(*c)[idx] = (*c)[last]
	*c = (*c)[:last]
}
func (c *IntColumn) Value(idx int, _ *interner.SymbolTable) any { return (*c)[idx] }

type FloatColumn []float64

func (c *FloatColumn) Kind() ColumnKind { return ColFloat }
func (c *FloatColumn) Len() int         { return len(*c) }
func (c *FloatColumn) Push(v any) {
	f, ok := toFloat64(v)
	if !ok {
		panic(fmt.Sprintf("storage: type mismatch, expected Float got %T", v))
	}
	*c = append(*c, f)
}
func (c *FloatColumn) Overwrite(idx int, v any) {
	f, ok := toFloat64(v)
	if !ok {
		panic(fmt.Sprintf("storage: type mismatch, expected Float got %T", v))
	}
	(*c)[idx] = f
}
func (c *FloatColumn) SwapRemove(idx int) {
	last := len(*c) - 1
	(*c)[idx] = (*c)[last]
	*c = (*c)[:last]
}
func (c *FloatColumn) Value(idx int, _ *interner.SymbolTable) any { return (*c)[idx] }

type BoolColumn []bool

func (c *BoolColumn) Kind() ColumnKind { return ColBool }
func (c *BoolColumn) Len() int         { return len(*c) }
func (c *BoolColumn) Push(v any) {
	b, ok := v.(bool)
	if !ok {
		panic(fmt.Sprintf("storage: type mismatch, expected Bool got %T", v))
	}
	*c = append(*c, b)
}
func (c *BoolColumn) Overwrite(idx int, v any) {
	b, ok := v.(bool)
	if !ok {
		panic(fmt.Sprintf("storage: type mismatch, expected Bool got %T", v))
	}
	(*c)[idx] = b
}
func (c *BoolColumn) SwapRemove(idx int) {
	last := len(*c) - 1
	(*c)[idx] = (*c)[last]
	*c = (*c)[:last]
}
func (c *BoolColumn) Value(idx int, _ *interner.SymbolTable) any { return (*c)[idx] }

// TextColumn stores interned symbols; the interner resolves them back to
// strings on read.
type TextColumn []interner.Symbol

func (c *TextColumn) Kind() ColumnKind { return ColText }
func (c *TextColumn) Len() int         { return len(*c) }
func (c *TextColumn) Push(v any) {
	s, ok := v.(interner.Symbol)
	if !ok {
		panic(fmt.Sprintf("storage: type mismatch, expected Symbol got %T", v))
	}
	*c = append(*c, s)
}
func (c *TextColumn) Overwrite(idx int, v any) {
	s, ok := v.(interner.Symbol)
	if !ok {
		panic(fmt.Sprintf("storage: type mismatch, expected Symbol got %T", v))
	}
	(*c)[idx] = s
}
func (c *TextColumn) SwapRemove(idx int) {
	last := len(*c) - 1
	(*c)[idx] = (*c)[last]
	*c = (*c)[:last]
}
func (c *TextColumn) Value(idx int, sym *interner.SymbolTable) any {
	s, _ := sym.Resolve((*c)[idx])
	return s
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
