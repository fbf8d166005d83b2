// Package circuit implements the Circuit (spec §4.H): the owner of tables
// and views, the dependency-graph dispatcher, and the batch-ingest
// pipeline.
package circuit

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zoravur/spooky-engine/engine/plan"
	"github.com/zoravur/spooky-engine/engine/update"
	"github.com/zoravur/spooky-engine/engine/value"
	"github.com/zoravur/spooky-engine/engine/view"
	"github.com/zoravur/spooky-engine/engine/zset"
	"github.com/zoravur/spooky-engine/enginelog"
	"github.com/zoravur/spooky-engine/engineerr"
	"github.com/zoravur/spooky-engine/wire"
	"go.uber.org/zap"
)

// Circuit is single-writer: RegisterView/UnregisterView/IngestBatch all take
// the same exclusive mu, matching spec §5's "one lock for the whole
// circuit" model (as opposed to the teacher's own per-field RWMutex
// Registry, which this deliberately does not copy — see SPEC_FULL.md §5).
type Circuit struct {
	mu sync.Mutex

	db              *Database
	Views           []*view.View
	viewIndex       map[string]int
	DependencyGraph map[string][]int
}

// NewCircuit returns an empty Circuit with its own Database and interner.
func NewCircuit() *Circuit {
	return &Circuit{
		db:              newDatabase(),
		viewIndex:       make(map[string]int),
		DependencyGraph: make(map[string][]int),
	}
}

// RegisterView installs a new view. If id is already registered, the
// existing view is unregistered first (explicit re-subscription semantics,
// spec §4.H). The view is immediately hydrated from current table state and
// its initial ViewUpdate is returned, or nil if the view is empty. If
// hydration fails, the view is removed again and a PlanError is returned.
func (c *Circuit) RegisterView(root plan.Operator, id string, params value.Value, format update.Format) (*update.ViewUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	paramMap := paramsToMap(params)
	if missing := view.CollectUnresolvedParams(root, paramMap); len(missing) > 0 {
		return nil, &engineerr.ParamError{ViewID: id, Name: missing[0]}
	}

	if _, exists := c.viewIndex[id]; exists {
		c.unregisterLocked(id)
	}

	v := view.New(id, root, paramMap, format)
	c.Views = append(c.Views, v)
	idx := len(c.Views) - 1
	c.viewIndex[id] = idx
	for table := range v.ScannedTables {
		c.DependencyGraph[table] = append(c.DependencyGraph[table], idx)
	}

	upd, err := c.safeProcess(v, plan.InitialHydrationTable, zset.New(), nil)
	if err != nil {
		c.unregisterLocked(id)
		return nil, &engineerr.PlanError{ViewID: id, Err: err}
	}
	if len(v.Cache) == 0 {
		return nil, nil
	}
	return upd, nil
}

// UnregisterView removes a view and rebuilds the dependency graph from the
// remaining views, simplest-correct per spec §4.H.
func (c *Circuit) UnregisterView(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unregisterLocked(id)
}

func (c *Circuit) unregisterLocked(id string) {
	idx, ok := c.viewIndex[id]
	if !ok {
		return
	}
	c.Views = append(c.Views[:idx], c.Views[idx+1:]...)
	delete(c.viewIndex, id)

	viewIndex := make(map[string]int, len(c.Views))
	depGraph := make(map[string][]int)
	for i, v := range c.Views {
		viewIndex[v.ID] = i
		for table := range v.ScannedTables {
			depGraph[table] = append(depGraph[table], i)
		}
	}
	c.viewIndex = viewIndex
	c.DependencyGraph = depGraph
}

// IngestBatch implements spec §4.H's five-step pipeline (plus the
// single-entry fast path).
func (c *Circuit) IngestBatch(entries []wire.IngestEntry, optimistic bool) ([]*update.ViewUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fast, ok := c.tryFastPath(entries, optimistic); ok {
		return fast, nil
	}

	groups := c.classify(entries)

	changedTables := make([]string, 0, len(groups))
	for t := range groups {
		changedTables = append(changedTables, t)
	}
	sort.Strings(changedTables) // deterministic processing order

	membership := make(map[string]zset.ZSet, len(groups))
	contentChanged := make(map[string]map[zset.RowKey]struct{}, len(groups))
	for _, t := range changedTables {
		md, cc := c.applyGroup(t, groups[t], optimistic)
		membership[t] = md
		contentChanged[t] = cc
	}

	affected := make(map[int]struct{})
	for _, t := range changedTables {
		for _, idx := range c.DependencyGraph[t] {
			affected[idx] = struct{}{}
		}
	}
	viewIdxs := make([]int, 0, len(affected))
	for idx := range affected {
		viewIdxs = append(viewIdxs, idx)
	}
	sort.Ints(viewIdxs) // ascending index == registration order

	var results []*update.ViewUpdate
	for _, idx := range viewIdxs {
		v := c.Views[idx]
		for _, t := range changedTables {
			if _, ok := v.ScannedTables[t]; !ok {
				continue
			}
			upd, err := c.safeProcess(v, t, membership[t], contentChanged[t])
			if err != nil {
				enginelog.L().Error("view processing failed", zap.String("view_id", v.ID), zap.Error(err))
				continue
			}
			if upd != nil {
				results = append(results, upd)
			}
		}
	}
	return results, nil
}

// tryFastPath implements the documented optimization: a batch of exactly one
// entry, affecting exactly one view, whose plan contains no Join, bypasses
// the per-table grouping machinery. It still routes through classify/
// applyGroup/safeProcess so the semantics can never diverge from the
// general path.
func (c *Circuit) tryFastPath(entries []wire.IngestEntry, optimistic bool) ([]*update.ViewUpdate, bool) {
	if len(entries) != 1 {
		return nil, false
	}
	table := entries[0].Table
	idxs := c.DependencyGraph[table]
	if len(idxs) != 1 {
		return nil, false
	}
	v := c.Views[idxs[0]]
	if hasJoin(v.Plan) {
		return nil, false
	}

	groups := c.classify(entries)
	group, ok := groups[table]
	if !ok {
		return []*update.ViewUpdate{}, true
	}
	md, cc := c.applyGroup(table, group, optimistic)

	upd, err := c.safeProcess(v, table, md, cc)
	if err != nil {
		enginelog.L().Error("view processing failed", zap.String("view_id", v.ID), zap.Error(err))
		return []*update.ViewUpdate{}, true
	}
	if upd == nil {
		return []*update.ViewUpdate{}, true
	}
	return []*update.ViewUpdate{upd}, true
}

func hasJoin(op plan.Operator) bool {
	switch o := op.(type) {
	case *plan.Join:
		return true
	case *plan.Filter:
		return hasJoin(o.Input)
	case *plan.Project:
		if hasJoin(o.Input) {
			return true
		}
		for _, p := range o.Projections {
			if p.Kind == plan.ProjSubquery && hasJoin(p.Subplan) {
				return true
			}
		}
		return false
	case *plan.Limit:
		return hasJoin(o.Input)
	default:
		return false
	}
}

func paramsToMap(params value.Value) map[string]value.Value {
	if params.Kind != value.KindObject {
		return nil
	}
	out := make(map[string]value.Value, len(params.Object))
	for _, m := range params.Object {
		out[m.Key] = m.Val
	}
	return out
}

// safeProcess wraps view.Process with panic containment (spec §5): a panic
// during operator/predicate evaluation is turned into a
// ViewProcessingError, leaving the view's cache and versions untouched.
func (c *Circuit) safeProcess(v *view.View, table string, delta zset.ZSet, contentChanged map[zset.RowKey]struct{}) (upd *update.ViewUpdate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &engineerr.ViewProcessingError{ViewID: v.ID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return v.Process(table, delta, contentChanged, c.db)
}
