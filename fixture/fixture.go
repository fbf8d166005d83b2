// Package fixture generates deterministic-but-randomized ingest batches for
// fuzzing and benchmarks, grounded on the teacher's pkg/prng
// deterministic-reader plus go-faker/faker pattern — the Go analogue of the
// teacher's fixgres Postgres-testcontainer sandbox, minus the container
// since the core engine owns no database of its own.
package fixture

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/go-faker/faker/v4"

	"github.com/zoravur/spooky-engine/pkg/prng"
	"github.com/zoravur/spooky-engine/wire"
)

// Person is the fake record shape batches are generated from.
type Person struct {
	Name  string `faker:"name"`
	Email string `faker:"email"`
	Age   int    `faker:"boundary_start=18, boundary_end=90"`
}

// Generator produces a sequence of ingest entries for one table. The same
// seed gives the same sequence of ops and ids; record contents come from
// faker's own random source, which the seed does not control.
type Generator struct {
	Table string
	rng   *rand.Rand
	next  int
}

// NewGenerator seeds a Generator from seed via prng.NewSource.
func NewGenerator(table string, seed int64) *Generator {
	return &Generator{Table: table, rng: rand.New(prng.NewSource(seed))}
}

// Batch generates n Create/Update/Delete entries. The generator's first
// entry is a Create; after that each entry is, with equal probability, a
// Create of a fresh id or an Update or Delete of a random lower id.
func (g *Generator) Batch(n int) ([]wire.IngestEntry, error) {
	entries := make([]wire.IngestEntry, 0, n)
	for i := 0; i < n; i++ {
		op := wire.OpCreate
		id := g.next
		g.next++
		if id > 0 {
			switch g.rng.Intn(3) {
			case 0:
				op = wire.OpCreate
				id = g.next
				g.next++
			case 1:
				op = wire.OpUpdate
				id = g.rng.Intn(id)
			case 2:
				op = wire.OpDelete
				id = g.rng.Intn(id)
			}
		}

		var p Person
		if err := faker.FakeData(&p); err != nil {
			return nil, fmt.Errorf("fixture: fake data: %w", err)
		}

		entry := wire.IngestEntry{
			Table: g.Table,
			Op:    op,
			ID:    fmt.Sprintf("%d", id),
		}
		if op != wire.OpDelete {
			b, err := json.Marshal(p)
			if err != nil {
				return nil, fmt.Errorf("fixture: marshal record: %w", err)
			}
			entry.Record = b
			entry.Hash = fmt.Sprintf("h%x", id)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
