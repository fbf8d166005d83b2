package circuit

import (
	"github.com/zoravur/spooky-engine/engine/interner"
	"github.com/zoravur/spooky-engine/engine/storage"
)

// Database is the Circuit's table registry, and the concrete type satisfying
// plan.Database. Each Circuit owns exactly one Database and one
// SymbolTable — the interner is demoted from a process-wide global to a
// per-Circuit field, per spec §9's multi-tenant-isolation note.
type Database struct {
	tables map[string]*storage.Table
	sym    *interner.SymbolTable
}

func newDatabase() *Database {
	return &Database{
		tables: make(map[string]*storage.Table),
		sym:    interner.New(),
	}
}

func (d *Database) Table(name string) (*storage.Table, bool) {
	t, ok := d.tables[name]
	return t, ok
}

func (d *Database) Symbols() *interner.SymbolTable {
	return d.sym
}

// ensureTable returns the named table, creating an empty one on first use.
func (d *Database) ensureTable(name string) *storage.Table {
	t, ok := d.tables[name]
	if !ok {
		t = storage.New(name)
		d.tables[name] = t
	}
	return t
}
