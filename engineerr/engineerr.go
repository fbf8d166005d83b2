// Package engineerr defines the engine's typed error kinds (spec §7). Each
// kind except ParamError carries an underlying cause exposed via Unwrap —
// the teacher repo never reaches for a custom error framework, so neither
// do we.
package engineerr

import "fmt"

// PlanError is returned synchronously from RegisterView when the operator
// tree itself is malformed (unknown kind, dangling subquery, etc).
type PlanError struct {
	ViewID string
	Err    error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("plan error for view %q: %v", e.ViewID, e.Err)
}

func (e *PlanError) Unwrap() error { return e.Err }

// ParamError is returned synchronously from RegisterView when a required
// "$name" param was not supplied.
type ParamError struct {
	ViewID string
	Name   string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("view %q: missing param %q", e.ViewID, e.Name)
}

// IngestError describes one malformed batch entry. IngestBatch logs it via
// enginelog and skips the entry; the batch continues.
type IngestError struct {
	Table string
	ID    string
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest entry %s:%s: %v", e.Table, e.ID, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// ViewProcessingError is raised (and recovered) when a panic or error occurs
// while a specific view re-evaluates its operator tree. The view's cache and
// versions are left untouched; the batch continues with the remaining
// views.
type ViewProcessingError struct {
	ViewID string
	Err    error
}

func (e *ViewProcessingError) Error() string {
	return fmt.Sprintf("view %q processing failed: %v", e.ViewID, e.Err)
}

func (e *ViewProcessingError) Unwrap() error { return e.Err }

// SerializationError wraps failures from SerializeCircuit/DeserializeCircuit.
// Never raised on the ingest/register hot path.
type SerializationError struct {
	Op  string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("circuit serialization (%s): %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
