// Package predicate implements scalar predicate evaluation over a row
// value.Value, plus a typed fast path over raw columns for Filter-over-Scan.
package predicate

import (
	"github.com/zoravur/spooky-engine/engine/value"
)

// Kind discriminates the predicate tagged union.
type Kind int

const (
	Eq Kind = iota
	Neq
	Gt
	Gte
	Lt
	Lte
	Prefix
	And
	Or
)

// Predicate is one of Eq|Neq|Gt|Gte|Lt|Lte{field,value}, Prefix{field,prefix},
// And{[p]}, Or{[p]}.
type Predicate struct {
	Kind       Kind
	Field      value.Path
	Value      value.Value
	Prefix     string
	Predicates []Predicate
}

// Eval folds the predicate tree over a single row, resolving Field via
// dotted path lookup. And/Or short-circuit.
func Eval(p Predicate, row value.Value) bool {
	switch p.Kind {
	case And:
		for _, child := range p.Predicates {
			if !Eval(child, row) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range p.Predicates {
			if Eval(child, row) {
				return true
			}
		}
		return false
	case Prefix:
		fv, ok := value.Get(row, p.Field)
		if !ok {
			return false
		}
		s, ok1 := fv.AsStr()
		pre, ok2 := p.Value.AsStr()
		if !ok2 {
			pre = p.Prefix
			ok2 = true
		}
		if !ok1 || !ok2 {
			return false
		}
		return len(s) >= len(pre) && s[:len(pre)] == pre
	default: // Eq, Neq, Gt, Gte, Lt, Lte
		fv, ok := value.Get(row, p.Field)
		if !ok {
			// Absent field: only Neq can be true (not-equal-to-anything).
			return p.Kind == Neq
		}
		return compare(p.Kind, fv, p.Value)
	}
}

func compare(kind Kind, a, b value.Value) bool {
	if kind == Eq {
		return value.Equal(a, b)
	}
	if kind == Neq {
		return !value.Equal(a, b)
	}

	// Ordering comparisons: numbers by IEEE-754 (NaN false in any order),
	// bool false<true, strings lexicographic by code point. Mixed types: false.
	switch a.Kind {
	case value.KindNumber:
		bn, ok := b.AsNumber()
		if !ok {
			return false
		}
		an := a.Number
		return orderNumbers(kind, an, bn)
	case value.KindBool:
		bb, ok := b.AsBool()
		if !ok {
			return false
		}
		return orderBools(kind, a.Bool, bb)
	case value.KindStr:
		bs, ok := b.AsStr()
		if !ok {
			return false
		}
		return orderStrings(kind, a.Str, bs)
	default:
		return false
	}
}

func orderNumbers(kind Kind, a, b float64) bool {
	if isNaN(a) || isNaN(b) {
		return false
	}
	switch kind {
	case Gt:
		return a > b
	case Gte:
		return a >= b
	case Lt:
		return a < b
	case Lte:
		return a <= b
	}
	return false
}

func isNaN(f float64) bool { return f != f }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func orderBools(kind Kind, a, b bool) bool {
	ai, bi := boolInt(a), boolInt(b)
	switch kind {
	case Gt:
		return ai > bi
	case Gte:
		return ai >= bi
	case Lt:
		return ai < bi
	case Lte:
		return ai <= bi
	}
	return false
}

func orderStrings(kind Kind, a, b string) bool {
	switch kind {
	case Gt:
		return a > b
	case Gte:
		return a >= b
	case Lt:
		return a < b
	case Lte:
		return a <= b
	}
	return false
}
