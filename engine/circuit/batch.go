package circuit

import (
	"encoding/json"
	"fmt"

	"github.com/zoravur/spooky-engine/engine/value"
	"github.com/zoravur/spooky-engine/engine/zset"
	"github.com/zoravur/spooky-engine/enginelog"
	"github.com/zoravur/spooky-engine/engineerr"
	"github.com/zoravur/spooky-engine/wire"
	"go.uber.org/zap"
)

// classifiedEntry is one ingest entry after op classification (spec §4.H
// step 1): weightDelta is the membership contribution (+1 new row, -1
// deleted row, 0 update-of-existing-row), contentUpdate marks Create/Update
// entries that must still be Upsert'd even when weightDelta is 0.
type classifiedEntry struct {
	key          zset.RowKey
	weightDelta  int64
	contentUpdate bool
	entry        wire.IngestEntry
}

// classify groups entries by table and assigns each a membership-weight
// contribution and content-update flag, tracking presence across the batch
// so a Create followed by a Delete of the same key (or vice versa) in one
// batch classifies correctly against the *running* state, not just the
// pre-batch snapshot. Malformed ops are logged and skipped
// (engineerr.IngestError).
func (c *Circuit) classify(entries []wire.IngestEntry) map[string][]classifiedEntry {
	present := make(map[string]map[zset.RowKey]bool)
	groups := make(map[string][]classifiedEntry)

	for _, e := range entries {
		tbl := c.db.ensureTable(e.Table)
		key := zset.MakeRowKey(e.Table, e.ID)

		p, ok := present[e.Table]
		if !ok {
			p = make(map[zset.RowKey]bool, tbl.NumRows)
			for k := range tbl.PKMap {
				p[k] = true
			}
			present[e.Table] = p
		}
		existed := p[key]

		switch e.Op {
		case wire.OpDelete:
			if !existed {
				continue // deletes of unknown keys are a no-op, never an error
			}
			p[key] = false
			groups[e.Table] = append(groups[e.Table], classifiedEntry{key: key, weightDelta: -1, entry: e})
		case wire.OpCreate, wire.OpUpdate:
			var wd int64
			if !existed {
				wd = 1
				p[key] = true
			}
			groups[e.Table] = append(groups[e.Table], classifiedEntry{key: key, weightDelta: wd, contentUpdate: true, entry: e})
		default:
			err := &engineerr.IngestError{Table: e.Table, ID: e.ID, Err: fmt.Errorf("unknown op %q", e.Op)}
			enginelog.L().Warn("ingest: skipping malformed entry", zap.Error(err))
		}
	}
	return groups
}

// applyGroup upserts/deletes one table's classified entries into storage
// and returns the real membership delta plus the set of keys whose row
// content actually changed this batch, per the optimistic/authoritative
// versioning policy (spec §4.G "Versioning policy"): in optimistic mode any
// Create/Update is content-changing; in authoritative mode only a genuine
// content-hash difference (storage.Table.Upsert's return value) counts.
//
// Deletion is driven off each key's *net* final presence for the batch
// (finalPresent), not each entry's individual op (spec §4.H steps 2-3): a
// DELETE immediately followed by a re-CREATE of the same key within one
// batch must leave the row intact in storage, even though one of its
// entries carries weightDelta -1. Keying off the per-entry sign instead
// would swap-remove the row storage.Table.Upsert just wrote, leaving a
// table with a nonzero Z-set weight for a row absent from columnar storage
// (spec §4.C / I2).
func (c *Circuit) applyGroup(table string, group []classifiedEntry, optimistic bool) (zset.ZSet, map[zset.RowKey]struct{}) {
	tbl := c.db.ensureTable(table)
	membershipDelta := zset.New()
	contentChanged := make(map[zset.RowKey]struct{})
	finalPresent := make(map[zset.RowKey]bool, len(group))

	for _, ce := range group {
		finalPresent[ce.key] = ce.entry.Op != wire.OpDelete

		if !ce.contentUpdate {
			continue
		}
		var raw any
		if len(ce.entry.Record) > 0 {
			if err := json.Unmarshal(ce.entry.Record, &raw); err != nil {
				enginelog.L().Warn("ingest: malformed record", zap.String("table", table), zap.String("id", ce.entry.ID), zap.Error(err))
				continue
			}
		}
		rec := value.FromAny(raw)
		changed := tbl.Upsert(ce.key, rec, ce.entry.Hash, c.db.sym)
		if optimistic || changed {
			contentChanged[ce.key] = struct{}{}
		}
	}
	for key, present := range finalPresent {
		if !present {
			tbl.Delete(key)
		}
	}
	for _, ce := range group {
		if ce.weightDelta != 0 {
			zset.Apply(membershipDelta, ce.key, ce.weightDelta)
		}
	}
	tbl.ApplyDelta(membershipDelta)

	return membershipDelta, contentChanged
}
