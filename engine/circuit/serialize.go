package circuit

import (
	"encoding/json"

	"github.com/zoravur/spooky-engine/engine/interner"
	"github.com/zoravur/spooky-engine/engine/storage"
	"github.com/zoravur/spooky-engine/engine/view"
	"github.com/zoravur/spooky-engine/engineerr"
)

// circuitSnapshot is the single-file persisted shape of a Circuit (spec §6
// "Persistence file"): tables keyed by name, views in registration order,
// and the interner's vector (the forward map is rebuilt on load).
type circuitSnapshot struct {
	Tables  map[string]*storage.Table `json:"tables"`
	Views   []*view.View              `json:"views"`
	Symbols *interner.SymbolTable     `json:"symbols"`
}

// SerializeCircuit JSON-encodes the whole circuit to a single file.
func SerializeCircuit(c *Circuit) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := json.Marshal(circuitSnapshot{
		Tables:  c.db.tables,
		Views:   c.Views,
		Symbols: c.db.sym,
	})
	if err != nil {
		return nil, &engineerr.SerializationError{Op: "serialize", Err: err}
	}
	return b, nil
}

// DeserializeCircuit rebuilds a Circuit from a SerializeCircuit payload,
// recomputing the dependency graph from each view's ScannedTables.
func DeserializeCircuit(b []byte) (*Circuit, error) {
	var snap circuitSnapshot
	snap.Symbols = interner.New()
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, &engineerr.SerializationError{Op: "deserialize", Err: err}
	}

	c := NewCircuit()
	c.db.tables = snap.Tables
	if c.db.tables == nil {
		c.db.tables = make(map[string]*storage.Table)
	}
	c.db.sym = snap.Symbols

	c.Views = snap.Views
	c.viewIndex = make(map[string]int, len(c.Views))
	c.DependencyGraph = make(map[string][]int)

	for i, v := range c.Views {
		c.viewIndex[v.ID] = i
		for table := range v.ScannedTables {
			c.DependencyGraph[table] = append(c.DependencyGraph[table], i)
		}
	}
	return c, nil
}
