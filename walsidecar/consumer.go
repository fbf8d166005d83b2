// Package walsidecar is a thin WAL-event consumer: it turns wal2json-style
// change envelopes into Circuit.IngestBatch calls, adapted from the
// teacher's internal/wal consumer, now driving the Z-set engine instead of
// re-running SQL.
package walsidecar

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/zoravur/spooky-engine/engine/circuit"
	"github.com/zoravur/spooky-engine/enginelog"
	"github.com/zoravur/spooky-engine/wire"
	"go.uber.org/zap"
)

// Change is one row mutation inside a WAL envelope, the same shape the
// teacher's sidecar already produces.
type Change struct {
	Schema  string `json:"schema"`
	Table   string `json:"table"`
	Kind    string `json:"kind"` // insert|update|delete
	OldKeys Keys   `json:"oldkeys"`
	NewKeys Keys   `json:"newkeys"`
	Record  map[string]any `json:"record,omitempty"`
}

type Keys struct {
	KeyNames  []string `json:"keynames"`
	KeyValues []any    `json:"keyvalues"`
}

type Envelope struct {
	Change []Change `json:"change"`
}

// Consumer reads newline-delimited JSON envelopes and feeds them to a
// Circuit via IngestBatch, one batch per line.
type Consumer struct {
	Circuit    *circuit.Circuit
	Optimistic bool
}

// Run reads envelopes from r until EOF or a read error, ingesting one batch
// per line.
func (c *Consumer) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		c.OnMessage(scanner.Bytes())
	}
	return scanner.Err()
}

// OnMessage decodes one envelope and ingests its changes as a single batch.
func (c *Consumer) OnMessage(line []byte) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		enginelog.L().Warn("walsidecar: decode error", zap.Error(err))
		return
	}
	if len(env.Change) == 0 {
		return
	}

	entries := make([]wire.IngestEntry, 0, len(env.Change))
	for _, ch := range env.Change {
		entry, ok := changeToEntry(ch)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return
	}

	updates, err := c.Circuit.IngestBatch(entries, c.Optimistic)
	if err != nil {
		enginelog.L().Error("walsidecar: ingest failed", zap.Error(err))
		return
	}
	enginelog.L().Debug("walsidecar: batch ingested", zap.Int("entries", len(entries)), zap.Int("updates", len(updates)))
}

func changeToEntry(ch Change) (wire.IngestEntry, bool) {
	table := ch.Schema + "." + ch.Table
	keys := ch.OldKeys
	if ch.Kind == "insert" || ch.Kind == "update" {
		keys = ch.NewKeys
	}
	id := primaryKeyValue(keys)
	if id == "" {
		return wire.IngestEntry{}, false
	}

	var op wire.Op
	switch ch.Kind {
	case "insert":
		op = wire.OpCreate
	case "update":
		op = wire.OpUpdate
	case "delete":
		op = wire.OpDelete
	default:
		return wire.IngestEntry{}, false
	}

	var record json.RawMessage
	if op != wire.OpDelete && ch.Record != nil {
		if b, err := json.Marshal(ch.Record); err == nil {
			record = b
		}
	}

	return wire.IngestEntry{Table: table, Op: op, ID: id, Record: record}, true
}

// primaryKeyValue stringifies the first key column as the row id — the
// engine's RowKey only needs a stable string, not the original typed value.
func primaryKeyValue(k Keys) string {
	if len(k.KeyValues) == 0 {
		return ""
	}
	switch v := k.KeyValues[0].(type) {
	case string:
		return v
	case float64:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
