// Package update implements the output encoder: hashing raw (id, version)
// sequences into stable content hashes and shaping them into the three wire
// formats (Flat, Tree, Streaming), per spec §4.I.
package update

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sort"

	"lukechampine.com/blake3"
)

// Format is the output-shaping strategy requested for a View.
type Format int

const (
	FormatFlat Format = iota
	FormatTree
	FormatStreaming
)

func ParseFormat(s string) Format {
	switch s {
	case "tree":
		return FormatTree
	case "streaming":
		return FormatStreaming
	default:
		return FormatFlat
	}
}

func (f Format) String() string {
	switch f {
	case FormatTree:
		return "tree"
	case FormatStreaming:
		return "streaming"
	default:
		return "flat"
	}
}

// Record is one (id, version) output entry.
type Record struct {
	ID      string
	Version uint64
}

// RawResult is the format-agnostic data a View produces: the query id and
// its sorted (id, version) records.
type RawResult struct {
	QueryID string
	Records []Record
}

// FlatUpdate is the Flat/Tree shape: {query_id, result_hash, result_data}.
// Tree is byte-identical to Flat today, a documented placeholder (spec §9
// Open Question (c)).
type FlatUpdate struct {
	QueryID    string   `json:"query_id"`
	ResultHash string   `json:"result_hash"`
	ResultData []Record `json:"result_data"`
}

type DeltaEvent string

const (
	EventCreated DeltaEvent = "created"
	EventUpdated DeltaEvent = "updated"
	EventDeleted DeltaEvent = "deleted"
)

type DeltaRecord struct {
	ID      string     `json:"id"`
	Event   DeltaEvent `json:"event"`
	Version uint64     `json:"version"`
}

type StreamingUpdate struct {
	ViewID  string        `json:"view_id"`
	Records []DeltaRecord `json:"records"`
}

// ViewUpdate is the tagged union returned to callers: exactly one of Flat,
// Tree or Streaming is populated, discriminated by Format.
type ViewUpdate struct {
	Format    Format
	Flat      *FlatUpdate
	Tree      *FlatUpdate
	Streaming *StreamingUpdate
}

// MarshalJSON emits only the populated variant, tagged by its format name.
func (u *ViewUpdate) MarshalJSON() ([]byte, error) {
	switch u.Format {
	case FormatTree:
		return json.Marshal(struct {
			Format string     `json:"format"`
			Data   *FlatUpdate `json:"data"`
		}{"tree", u.Tree})
	case FormatStreaming:
		return json.Marshal(struct {
			Format string           `json:"format"`
			Data   *StreamingUpdate `json:"data"`
		}{"streaming", u.Streaming})
	default:
		return json.Marshal(struct {
			Format string     `json:"format"`
			Data   *FlatUpdate `json:"data"`
		}{"flat", u.Flat})
	}
}

// ComputeFlatHash computes blake3(concat(id bytes, LE64(version), 0x00) for
// each record), per spec §4.G step 6 / §4.I. Records must already be sorted
// by id ascending.
func ComputeFlatHash(records []Record) string {
	h := blake3.New(32, nil)
	var buf [8]byte
	for _, r := range records {
		h.Write([]byte(r.ID))
		binary.LittleEndian.PutUint64(buf[:], r.Version)
		h.Write(buf[:])
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SortRecords sorts records by id ascending in place, as the wire formats
// require.
func SortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}

// Build shapes a RawResult (the view's FULL current output, used for the
// suppression hash and for Flat/Tree) into the requested Format. For
// Streaming, streamRecords carries only the records that actually
// transitioned this batch — 0->+ Created, +->+ with version bump Updated,
// +->0 Deleted — since a +->+ transition without a version bump is
// suppressed and must already be excluded by the caller (spec §4.I).
func Build(raw RawResult, format Format, streamRecords []DeltaRecord) *ViewUpdate {
	SortRecords(raw.Records)
	hash := ComputeFlatHash(raw.Records)

	switch format {
	case FormatTree:
		return &ViewUpdate{Format: FormatTree, Tree: &FlatUpdate{QueryID: raw.QueryID, ResultHash: hash, ResultData: raw.Records}}
	case FormatStreaming:
		return &ViewUpdate{Format: FormatStreaming, Streaming: &StreamingUpdate{ViewID: raw.QueryID, Records: streamRecords}}
	default:
		return &ViewUpdate{Format: FormatFlat, Flat: &FlatUpdate{QueryID: raw.QueryID, ResultHash: hash, ResultData: raw.Records}}
	}
}
