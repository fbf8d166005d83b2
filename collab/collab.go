// Package collab names the narrow interfaces the core circuit is wired
// against but never implements itself: ingress, persistence, metrics and a
// downstream sink. Per spec §1 these collaborators are explicitly out of
// scope for the core; only their shape is fixed here so a host process can
// supply real implementations without the core importing them.
package collab

import "github.com/zoravur/spooky-engine/engine/update"

// Ingress delivers batches of raw mutations into the circuit. A WAL
// consumer, an HTTP handler, a message-queue subscriber are all Ingress
// implementations; the core never depends on any of them directly.
type Ingress interface {
	Run(stop <-chan struct{}) error
}

// Persister saves and loads a serialized Circuit snapshot. The core's
// SerializeCircuit/DeserializeCircuit produce/consume the []byte this
// interface moves; where it goes (disk, object storage, a replica) is a
// host concern.
type Persister interface {
	Save(data []byte) error
	Load() ([]byte, error)
}

// MetricsSink receives counters the core could emit but does not itself
// define a schema for (batch latency, view count, suppression rate).
type MetricsSink interface {
	Observe(name string, value float64, tags map[string]string)
}

// Downstream receives ViewUpdates for delivery to external subscribers
// (a websocket hub, a message bus). The core calls nothing here directly —
// a host wires Circuit.IngestBatch's return value to a Downstream itself.
type Downstream interface {
	Publish(viewID string, update *update.ViewUpdate) error
}

// HostModule bundles the collaborators a demo binary wires together.
type HostModule struct {
	Ingress    Ingress
	Persister  Persister
	Metrics    MetricsSink
	Downstream Downstream
}
