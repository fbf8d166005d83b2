package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zoravur/spooky-engine/engine/interner"
	"github.com/zoravur/spooky-engine/engine/predicate"
	"github.com/zoravur/spooky-engine/engine/storage"
	"github.com/zoravur/spooky-engine/engine/value"
	"github.com/zoravur/spooky-engine/engine/zset"
)

type testDB struct {
	tables map[string]*storage.Table
	sym    *interner.SymbolTable
}

func newTestDB() *testDB {
	return &testDB{tables: make(map[string]*storage.Table), sym: interner.New()}
}

func (d *testDB) Table(name string) (*storage.Table, bool) {
	t, ok := d.tables[name]
	return t, ok
}
func (d *testDB) Symbols() *interner.SymbolTable { return d.sym }

func (d *testDB) ensureTable(name string) *storage.Table {
	t, ok := d.tables[name]
	if !ok {
		t = storage.New(name)
		d.tables[name] = t
	}
	return t
}

func (d *testDB) insert(table, id string, keys []string, vals []value.Value) zset.ZSet {
	tbl := d.ensureTable(table)
	key := zset.MakeRowKey(table, id)
	tbl.Upsert(key, value.NewObject(keys, vals), id, d.sym)
	delta := zset.ZSet{key: 1}
	tbl.ApplyDelta(delta)
	return delta
}

func TestScanHydrationAndPassthrough(t *testing.T) {
	db := newTestDB()
	db.insert("actor", "1", []string{"name"}, []value.Value{value.NewStr("Ada")})

	s := &Scan{Table: "actor"}
	snap, err := s.Process(InitialHydrationTable, zset.New(), db)
	require.NoError(t, err)
	require.Equal(t, int64(1), snap["actor:1"])

	delta := zset.ZSet{"actor:2": 1}
	out, err := s.Process("actor", delta, db)
	require.NoError(t, err)
	require.Equal(t, delta, out)

	out, err = s.Process("film", delta, db)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestFilterFastPathDeltaAndHydration(t *testing.T) {
	db := newTestDB()
	db.insert("actor", "1", []string{"age"}, []value.Value{value.NewNumber(30)})
	delta := db.insert("actor", "2", []string{"age"}, []value.Value{value.NewNumber(10)})

	f := &Filter{
		Input:     &Scan{Table: "actor"},
		Predicate: predicate.Predicate{Kind: predicate.Gte, Field: value.Path{"age"}, Value: value.NewNumber(18)},
	}
	out, err := f.Process("actor", delta, db)
	require.NoError(t, err)
	require.Empty(t, out, "age 10 fails the >=18 predicate")

	hydrated, err := f.Process(InitialHydrationTable, zset.New(), db)
	require.NoError(t, err)
	require.Equal(t, int64(1), hydrated["actor:1"])
	_, present := hydrated["actor:2"]
	require.False(t, present)
}

func TestFilterContentUpdateCrossesPredicateBoundary(t *testing.T) {
	db := newTestDB()
	db.insert("user", "1", []string{"age"}, []value.Value{value.NewNumber(30)})

	f := &Filter{
		Input:     &Scan{Table: "user"},
		Predicate: predicate.Predicate{Kind: predicate.Gt, Field: value.Path{"age"}, Value: value.NewNumber(30)},
	}
	out, err := f.Process(InitialHydrationTable, zset.New(), db)
	require.NoError(t, err)
	require.Empty(t, out, "age 30 fails Gt(30)")

	tbl, _ := db.Table("user")
	tbl.Upsert("user:1", value.NewObject([]string{"age"}, []value.Value{value.NewNumber(31)}), "h2", db.sym)

	out, err = f.Process("user", zset.ZSet{"user:1": 0}, db)
	require.NoError(t, err)
	require.Equal(t, int64(1), out["user:1"], "content-only change crossing the predicate boundary must emit a real membership delta")
}

func TestFilterRetractsOnDeleteOfMatchingRow(t *testing.T) {
	db := newTestDB()
	delta := db.insert("user", "1", []string{"age"}, []value.Value{value.NewNumber(40)})

	f := &Filter{
		Input:     &Scan{Table: "user"},
		Predicate: predicate.Predicate{Kind: predicate.Gt, Field: value.Path{"age"}, Value: value.NewNumber(30)},
	}
	out, err := f.Process("user", delta, db)
	require.NoError(t, err)
	require.Equal(t, int64(1), out["user:1"])

	tbl, _ := db.Table("user")
	tbl.Delete("user:1")
	del := zset.ZSet{"user:1": -1}
	tbl.ApplyDelta(del)

	out, err = f.Process("user", del, db)
	require.NoError(t, err)
	require.Equal(t, int64(-1), out["user:1"], "deleting a row the filter was counting must retract it")
}

func TestFilterDeleteOfNonMatchingRowIsNoOp(t *testing.T) {
	db := newTestDB()
	delta := db.insert("user", "1", []string{"age"}, []value.Value{value.NewNumber(10)})

	f := &Filter{
		Input:     &Scan{Table: "user"},
		Predicate: predicate.Predicate{Kind: predicate.Gt, Field: value.Path{"age"}, Value: value.NewNumber(30)},
	}
	out, err := f.Process("user", delta, db)
	require.NoError(t, err)
	require.Empty(t, out, "age 10 never passed the filter")

	tbl, _ := db.Table("user")
	tbl.Delete("user:1")
	del := zset.ZSet{"user:1": -1}
	tbl.ApplyDelta(del)

	out, err = f.Process("user", del, db)
	require.NoError(t, err)
	require.Empty(t, out, "a row that never matched must not spuriously appear on delete")
}

func TestJoinEquiJoinBothSides(t *testing.T) {
	db := newTestDB()
	db.insert("actor", "1", []string{"id"}, []value.Value{value.NewNumber(1)})
	db.insert("film", "1", []string{"actor_id"}, []value.Value{value.NewNumber(1)})

	j := &Join{
		Left:  &Scan{Table: "actor"},
		Right: &Scan{Table: "film"},
		On:    JoinCondition{LeftField: value.Path{"id"}, RightField: value.Path{"actor_id"}},
	}
	out, err := j.Process(InitialHydrationTable, zset.New(), db)
	require.NoError(t, err)
	require.Equal(t, int64(1), out["actor:1"])

	// A new film by an unrelated actor must not match.
	delta := db.insert("film", "2", []string{"actor_id"}, []value.Value{value.NewNumber(99)})
	out, err = j.Process("film", delta, db)
	require.NoError(t, err)
	require.Empty(t, out)

	// A new film by actor 1 must add another unit of weight to actor:1.
	delta = db.insert("film", "3", []string{"actor_id"}, []value.Value{value.NewNumber(1)})
	out, err = j.Process("film", delta, db)
	require.NoError(t, err)
	require.Equal(t, int64(1), out["actor:1"])
}

func TestJoinRetractsOnLeftSideDelete(t *testing.T) {
	db := newTestDB()
	db.insert("actor", "1", []string{"id"}, []value.Value{value.NewNumber(1)})
	db.insert("film", "1", []string{"actor_id"}, []value.Value{value.NewNumber(1)})

	j := &Join{
		Left:  &Scan{Table: "actor"},
		Right: &Scan{Table: "film"},
		On:    JoinCondition{LeftField: value.Path{"id"}, RightField: value.Path{"actor_id"}},
	}
	out, err := j.Process(InitialHydrationTable, zset.New(), db)
	require.NoError(t, err)
	require.Equal(t, int64(1), out["actor:1"])

	tbl, _ := db.Table("actor")
	tbl.Delete("actor:1") // swap-removed from storage before Process runs
	del := zset.ZSet{"actor:1": -1}
	tbl.ApplyDelta(del)

	out, err = j.Process("actor", del, db)
	require.NoError(t, err)
	require.Equal(t, int64(-1), out["actor:1"], "deleting the left row must retract its join output")
}

func TestJoinRetractsOnRightSideDelete(t *testing.T) {
	db := newTestDB()
	db.insert("actor", "1", []string{"id"}, []value.Value{value.NewNumber(1)})
	db.insert("film", "1", []string{"actor_id"}, []value.Value{value.NewNumber(1)})

	j := &Join{
		Left:  &Scan{Table: "actor"},
		Right: &Scan{Table: "film"},
		On:    JoinCondition{LeftField: value.Path{"id"}, RightField: value.Path{"actor_id"}},
	}
	out, err := j.Process(InitialHydrationTable, zset.New(), db)
	require.NoError(t, err)
	require.Equal(t, int64(1), out["actor:1"])

	tbl, _ := db.Table("film")
	tbl.Delete("film:1") // swap-removed from storage before Process runs
	del := zset.ZSet{"film:1": -1}
	tbl.ApplyDelta(del)

	out, err = j.Process("film", del, db)
	require.NoError(t, err)
	require.Equal(t, int64(-1), out["actor:1"], "deleting the matched right row must retract the left join output")
}

func TestLimitCapsAndOrders(t *testing.T) {
	db := newTestDB()
	db.insert("actor", "1", []string{"age"}, []value.Value{value.NewNumber(30)})
	db.insert("actor", "2", []string{"age"}, []value.Value{value.NewNumber(10)})
	db.insert("actor", "3", []string{"age"}, []value.Value{value.NewNumber(20)})

	l := &Limit{
		Input:   &Scan{Table: "actor"},
		N:       2,
		OrderBy: []OrderSpec{{Field: value.Path{"age"}, Direction: "desc"}},
	}
	out, err := l.Process(InitialHydrationTable, zset.New(), db)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Contains(t, out, zset.RowKey("actor:1")) // age 30
	require.Contains(t, out, zset.RowKey("actor:3")) // age 20
	require.NotContains(t, out, zset.RowKey("actor:2"))
}

func TestProjectSubqueryPropagation(t *testing.T) {
	db := newTestDB()
	db.insert("actor", "1", []string{"id"}, []value.Value{value.NewNumber(1)})
	db.insert("film", "1", []string{"actor_id"}, []value.Value{value.NewNumber(1)})

	sub := &Filter{
		Input:     &Scan{Table: "film"},
		Predicate: predicate.Predicate{Kind: predicate.Eq, Field: value.Path{"actor_id"}, Value: value.NewStr("$parent.id")},
	}
	p := &Project{
		Input:       &Scan{Table: "actor"},
		Projections: []Projection{{Kind: ProjAll}, {Kind: ProjSubquery, Alias: "films", Subplan: sub}},
	}

	out, err := p.Process(InitialHydrationTable, zset.New(), db)
	require.NoError(t, err)
	require.Contains(t, out, zset.RowKey("actor:1"))
	require.Contains(t, out, zset.RowKey("film:1"))
}

func TestScannedTablesIncludesSubquery(t *testing.T) {
	p := &Project{
		Input: &Scan{Table: "actor"},
		Projections: []Projection{
			{Kind: ProjSubquery, Subplan: &Scan{Table: "film"}},
		},
	}
	out := map[string]struct{}{}
	p.ScannedTables(out)
	require.Contains(t, out, "actor")
	require.Contains(t, out, "film")
}
