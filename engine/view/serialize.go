package view

import (
	"encoding/json"

	"github.com/zoravur/spooky-engine/engine/update"
	"github.com/zoravur/spooky-engine/engine/zset"
	"github.com/zoravur/spooky-engine/wire"
)

// viewSnapshot is the persisted shape of a View: the bound plan tree
// (params are already substituted into it, so they need no separate
// field), cache, versions and last_output_hash, per spec §6's persistence
// file description.
type viewSnapshot struct {
	ID             string            `json:"id"`
	Plan           json.RawMessage   `json:"plan"`
	Format         string            `json:"format"`
	Cache          zset.ZSet         `json:"cache"`
	Versions       map[string]uint64 `json:"versions"`
	LastOutputHash string            `json:"last_output_hash"`
	NextVersion    uint64            `json:"next_version"`
}

func (v *View) MarshalJSON() ([]byte, error) {
	planJSON, err := wire.ToWirePlan(v.Plan)
	if err != nil {
		return nil, err
	}
	return json.Marshal(viewSnapshot{
		ID:             v.ID,
		Plan:           planJSON,
		Format:         v.Format.String(),
		Cache:          v.Cache,
		Versions:       v.Versions,
		LastOutputHash: v.LastOutputHash,
		NextVersion:    v.nextVersion,
	})
}

func (v *View) UnmarshalJSON(b []byte) error {
	var snap viewSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return err
	}
	root, err := wire.FromWirePlan(snap.Plan)
	if err != nil {
		return err
	}
	v.ID = snap.ID
	v.Plan = root
	v.Format = update.ParseFormat(snap.Format)
	v.Cache = snap.Cache
	if v.Cache == nil {
		v.Cache = zset.New()
	}
	v.Versions = snap.Versions
	if v.Versions == nil {
		v.Versions = make(map[zset.RowKey]uint64)
	}
	v.LastOutputHash = snap.LastOutputHash
	v.nextVersion = snap.NextVersion
	scanned := map[string]struct{}{}
	v.Plan.ScannedTables(scanned)
	v.ScannedTables = scanned
	return nil
}
