// Package view implements the registered query View: cache, version map and
// the incremental process step that turns a batch of table deltas into a
// (possibly suppressed) ViewUpdate, per spec §4.G.
package view

import (
	"sort"

	"github.com/zoravur/spooky-engine/engine/plan"
	"github.com/zoravur/spooky-engine/engine/update"
	"github.com/zoravur/spooky-engine/engine/value"
	"github.com/zoravur/spooky-engine/engine/zset"
)

// View holds a registered query plan together with its cached output Z-set
// and version map. Mutated only by Process; created by the Circuit's
// RegisterView and destroyed by UnregisterView, which wipes Cache/Versions.
type View struct {
	ID     string
	Plan   plan.Operator
	Format update.Format

	Cache          zset.ZSet
	Versions       map[zset.RowKey]uint64
	LastOutputHash string
	ScannedTables  map[string]struct{}

	nextVersion uint64
}

// New builds a View from a plan, binding any "$name" params into the tree
// up front, and precomputing ScannedTables for dispatcher pruning.
func New(id string, root plan.Operator, params map[string]value.Value, format update.Format) *View {
	bound := BindParams(root, params)
	scanned := map[string]struct{}{}
	bound.ScannedTables(scanned)
	return &View{
		ID:            id,
		Plan:          bound,
		Format:        format,
		Cache:         zset.New(),
		Versions:      make(map[zset.RowKey]uint64),
		ScannedTables: scanned,
	}
}

func (v *View) nextVer() uint64 {
	v.nextVersion++
	return v.nextVersion
}

// Process implements spec §4.G steps 1-7. membershipDelta is the real
// weight ±1 Z-set change for tableChanged (or InitialHydration's empty
// delta); contentChanged names keys in that table whose row content
// actually changed this batch without a membership change (step 4's
// content_updates), already filtered by the Circuit for the batch's
// optimistic/authoritative versioning policy. Returns nil when the table
// doesn't affect this view, or when the resulting output is unchanged from
// the last emitted hash (no-op suppression).
func (v *View) Process(tableChanged string, membershipDelta zset.ZSet, contentChanged map[zset.RowKey]struct{}, db plan.Database) (*update.ViewUpdate, error) {
	_, scans := v.ScannedTables[tableChanged]
	if !scans && !plan.IsInitialHydration(tableChanged, membershipDelta) {
		return nil, nil
	}

	combined := zset.Clone(membershipDelta)
	for key := range contentChanged {
		if _, ok := combined[key]; !ok {
			combined[key] = 0
		}
	}

	outputDelta, err := v.Plan.Process(tableChanged, combined, db)
	if err != nil {
		return nil, err
	}

	transitions := zset.Merge(v.Cache, outputDelta)

	// New versions within one call are handed out in ascending key order.
	keys := make([]zset.RowKey, 0, len(transitions))
	for key := range transitions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	streamRecords := make([]update.DeltaRecord, 0, len(transitions))
	for _, key := range keys {
		switch tr := transitions[key]; tr {
		case zset.TransitionCreated:
			ver := v.nextVer()
			v.Versions[key] = ver
			streamRecords = append(streamRecords, update.DeltaRecord{ID: key, Event: update.EventCreated, Version: ver})
		case zset.TransitionDeleted:
			lastVer := v.Versions[key]
			delete(v.Versions, key)
			streamRecords = append(streamRecords, update.DeltaRecord{ID: key, Event: update.EventDeleted, Version: lastVer})
		case zset.TransitionUpdated:
			if _, changed := contentChanged[key]; changed {
				ver := v.nextVer()
				v.Versions[key] = ver
				streamRecords = append(streamRecords, update.DeltaRecord{ID: key, Event: update.EventUpdated, Version: ver})
			}
			// Weight-only shift (e.g. join multiplicity changed): version left
			// untouched, no stream record — suppressed per spec §4.I.
		}
	}

	records := make([]update.Record, 0, len(v.Cache))
	for key := range v.Cache {
		records = append(records, update.Record{ID: key, Version: v.Versions[key]})
	}
	update.SortRecords(records)

	hash := update.ComputeFlatHash(records)
	if hash == v.LastOutputHash {
		return nil, nil
	}
	v.LastOutputHash = hash

	raw := update.RawResult{QueryID: v.ID, Records: records}
	return update.Build(raw, v.Format, streamRecords), nil
}
