package plan

import (
	"strings"

	"github.com/zoravur/spooky-engine/engine/predicate"
	"github.com/zoravur/spooky-engine/engine/value"
	"github.com/zoravur/spooky-engine/engine/zset"
)

// Project applies a list of projections to its child's rows. All/Field pass
// weights and the key set through unchanged; Subquery additionally evaluates
// a nested plan per outer row (with "$parent.<field>" bound from that row)
// and adds every child record it returns as its own result key, at the outer
// row's weight (spec §4.F "Subquery propagation").
type Project struct {
	Input       Operator
	Projections []Projection
}

func (p *Project) Process(inputTable string, inputDelta zset.ZSet, db Database) (zset.ZSet, error) {
	ownTables := map[string]struct{}{}
	p.Input.ScannedTables(ownTables)
	_, affectsOwn := ownTables[inputTable]

	subqueries := p.subqueries()

	if affectsOwn || IsInitialHydration(inputTable, inputDelta) {
		childDelta, err := p.Input.Process(inputTable, inputDelta, db)
		if err != nil {
			return nil, err
		}
		out := zset.Clone(childDelta)
		for key, w := range childDelta {
			row, ok := rowForKey(db, key)
			if !ok {
				continue
			}
			for _, sq := range subqueries {
				emitSubqueryRows(out, sq, row, w, db)
			}
		}
		return out, nil
	}

	// The change is in a subquery's own scanned tables, not the outer rows'.
	// Re-evaluate every subquery against the CURRENT full outer snapshot and
	// re-emit matching child rows at each outer row's current weight. This
	// only propagates insertions/continued-matches; child rows that used to
	// match a subquery and no longer do are not retracted.
	affectsSubquery := false
	for _, sq := range subqueries {
		subTables := map[string]struct{}{}
		sq.Subplan.ScannedTables(subTables)
		if _, ok := subTables[inputTable]; ok {
			affectsSubquery = true
			break
		}
	}
	if !affectsSubquery {
		return zset.New(), nil
	}

	outerSnapshot, err := p.Input.Process(InitialHydrationTable, zset.New(), db)
	if err != nil {
		return nil, err
	}
	out := zset.New()
	for key, w := range outerSnapshot {
		row, ok := rowForKey(db, key)
		if !ok {
			continue
		}
		for _, sq := range subqueries {
			emitSubqueryRows(out, sq, row, w, db)
		}
	}
	return out, nil
}

func (p *Project) subqueries() []Projection {
	var out []Projection
	for _, proj := range p.Projections {
		if proj.Kind == ProjSubquery {
			out = append(out, proj)
		}
	}
	return out
}

func emitSubqueryRows(out zset.ZSet, sq Projection, parentRow value.Value, outerWeight int64, db Database) {
	bound := bindParams(sq.Subplan, parentRow)
	childSet, err := bound.Process(InitialHydrationTable, zset.New(), db)
	if err != nil {
		return
	}
	for childKey := range childSet {
		zset.Apply(out, childKey, outerWeight)
	}
}

func rowForKey(db Database, key zset.RowKey) (value.Value, bool) {
	table, _, ok := zset.ParseRowKey(key)
	if !ok {
		return value.Value{}, false
	}
	tbl, ok := db.Table(table)
	if !ok {
		return value.Value{}, false
	}
	return tbl.GetRow(key, db.Symbols())
}

func (p *Project) ScannedTables(out map[string]struct{}) {
	p.Input.ScannedTables(out)
	for _, proj := range p.subqueries() {
		if proj.Subplan != nil {
			proj.Subplan.ScannedTables(out)
		}
	}
}

// bindParams deep-copies op, substituting any predicate.Value that is a
// "$parent.<field>" string reference with the corresponding field resolved
// from parentRow.
func bindParams(op Operator, parentRow value.Value) Operator {
	switch o := op.(type) {
	case *Scan:
		cp := *o
		return &cp
	case *Filter:
		cp := &Filter{Input: bindParams(o.Input, parentRow), Predicate: bindPredicate(o.Predicate, parentRow)}
		return cp
	case *Project:
		cp := &Project{Input: bindParams(o.Input, parentRow)}
		cp.Projections = append(cp.Projections, o.Projections...)
		return cp
	case *Join:
		cp := &Join{Left: bindParams(o.Left, parentRow), Right: bindParams(o.Right, parentRow), On: o.On}
		return cp
	case *Limit:
		cp := &Limit{Input: bindParams(o.Input, parentRow), N: o.N, OrderBy: o.OrderBy}
		return cp
	default:
		return op
	}
}

func bindPredicate(p predicate.Predicate, parentRow value.Value) predicate.Predicate {
	switch p.Kind {
	case predicate.And, predicate.Or:
		children := make([]predicate.Predicate, len(p.Predicates))
		for i, c := range p.Predicates {
			children[i] = bindPredicate(c, parentRow)
		}
		cp := p
		cp.Predicates = children
		return cp
	default:
		cp := p
		if s, ok := cp.Value.AsStr(); ok && strings.HasPrefix(s, "$parent.") {
			field := strings.TrimPrefix(s, "$parent.")
			if resolved, ok := value.GetDotted(parentRow, field); ok {
				cp.Value = resolved
			} else {
				cp.Value = value.Null
			}
		}
		return cp
	}
}
