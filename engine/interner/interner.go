// Package interner implements a process-scoped-shape, per-Circuit bidirectional
// string interner. It is append-only: symbols are stable for the table's
// lifetime and are never reclaimed (spec §9 "arena-style storage").
package interner

import (
	"encoding/json"
	"sync"
)

// Symbol is an interned string's u32 id.
type Symbol = uint32

// SymbolTable is a read-biased, lock-guarded bidirectional interner. Reads
// take the shared RLock; interning a new value takes the exclusive Lock,
// matching the teacher's richcatalog snapshot-cache locking shape.
type SymbolTable struct {
	mu  sync.RWMutex
	fwd map[string]Symbol
	vec []string
}

// New returns an empty table with Symbol 0 permanently reserved for "".
// storage.Table fills ragged/absent text cells with Symbol(0); reserving it
// for the empty string up front keeps that filler from colliding with
// whichever string would otherwise have been interned first.
func New() *SymbolTable {
	t := &SymbolTable{fwd: make(map[string]Symbol)}
	t.Intern("")
	return t
}

// Intern returns s's Symbol, interning it if not already present.
func (t *SymbolTable) Intern(s string) Symbol {
	t.mu.RLock()
	if id, ok := t.fwd[s]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.fwd[s]; ok {
		return id
	}
	id := Symbol(len(t.vec))
	t.vec = append(t.vec, s)
	t.fwd[s] = id
	return id
}

// Resolve returns the string for a Symbol, if it was interned by this table.
func (t *SymbolTable) Resolve(sym Symbol) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(sym) >= len(t.vec) {
		return "", false
	}
	return t.vec[sym], true
}

// MarshalJSON persists only the forward vector; the map is rebuilt on load.
func (t *SymbolTable) MarshalJSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return json.Marshal(t.vec)
}

// UnmarshalJSON rebuilds the table deterministically from its vector.
func (t *SymbolTable) UnmarshalJSON(b []byte) error {
	var vec []string
	if err := json.Unmarshal(b, &vec); err != nil {
		return err
	}
	fwd := make(map[string]Symbol, len(vec))
	for i, s := range vec {
		fwd[s] = Symbol(i)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vec = vec
	t.fwd = fwd
	return nil
}
