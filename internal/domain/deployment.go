package domain

import (
	"fmt"
	"slices"
	"time"
)

// DeploymentDiff is the set of operations needed to reconcile the backend with
// a pricing config. The four handle lists are pairwise disjoint.
type DeploymentDiff struct {
	ToCreate  []string `json:"to_create"`
	ToUpdate  []string `json:"to_update"`
	ToDisable []string `json:"to_disable"`
	ToDelete  []string `json:"to_delete"`
	Summary   string   `json:"summary"`
	// Warnings describe remote state the diff could not reconcile, such as
	// two products sharing a handle
	Warnings []string `json:"warnings,omitempty"`
}

// Total returns the number of operations in the diff
func (d DeploymentDiff) Total() int {
	return len(d.ToCreate) + len(d.ToUpdate) + len(d.ToDisable) + len(d.ToDelete)
}

// Empty reports whether nothing needs to change
func (d DeploymentDiff) Empty() bool {
	return d.Total() == 0
}

// SameOperations reports whether o plans exactly the same operations as d
func (d DeploymentDiff) SameOperations(o DeploymentDiff) bool {
	return slices.Equal(d.ToCreate, o.ToCreate) &&
		slices.Equal(d.ToUpdate, o.ToUpdate) &&
		slices.Equal(d.ToDisable, o.ToDisable) &&
		slices.Equal(d.ToDelete, o.ToDelete)
}

// Summarize renders the human readable counts line
func Summarize(create, update, disable, del int) string {
	return fmt.Sprintf("%d to create, %d to update, %d to disable, %d to delete", create, update, disable, del)
}

// Operation is one kind of vessel mutation
type Operation string

const (
	OperationCreate  Operation = "create"
	OperationUpdate  Operation = "update"
	OperationDisable Operation = "disable"
	OperationDelete  Operation = "delete"
)

// ProgressKind classifies a progress event
type ProgressKind string

const (
	ProgressCreate  ProgressKind = "create"
	ProgressUpdate  ProgressKind = "update"
	ProgressDisable ProgressKind = "disable"
	ProgressDelete  ProgressKind = "delete"
	ProgressError   ProgressKind = "error"
	ProgressInfo    ProgressKind = "info"
)

// KindFor maps a successful operation to its progress kind
func KindFor(op Operation) ProgressKind {
	switch op {
	case OperationCreate:
		return ProgressCreate
	case OperationUpdate:
		return ProgressUpdate
	case OperationDisable:
		return ProgressDisable
	case OperationDelete:
		return ProgressDelete
	default:
		return ProgressInfo
	}
}

// DeploymentProgress is one append-only event describing completed work
type DeploymentProgress struct {
	RunID     string       `json:"run_id"`
	Seq       int          `json:"seq"`
	Kind      ProgressKind `json:"kind"`
	Operation Operation    `json:"operation,omitempty"`
	Handle    string       `json:"handle,omitempty"`
	ProductID string       `json:"product_id,omitempty"`
	Message   string       `json:"message"`
	At        time.Time    `json:"at"`
}

// VesselResult is the outcome of one vessel operation
type VesselResult struct {
	Handle       string    `json:"handle"`
	Operation    Operation `json:"operation"`
	ProductID    string    `json:"product_id,omitempty"`
	VariantCount int       `json:"variant_count"`
	Errors       []string  `json:"errors,omitempty"`
}

// OK reports whether the vessel operation succeeded
func (r VesselResult) OK() bool {
	return len(r.Errors) == 0
}

// DeploymentResult is the final report of a deployment run
type DeploymentResult struct {
	RunID      string         `json:"run_id"`
	Success    bool           `json:"success"`
	Diff       DeploymentDiff `json:"diff"`
	Results    []VesselResult `json:"results"`
	Errors     []string       `json:"errors,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Finalize computes Success from the top-level and per-vessel error lists
func (r *DeploymentResult) Finalize(now time.Time) {
	r.FinishedAt = now
	r.Success = len(r.Errors) == 0
	for _, vr := range r.Results {
		if !vr.OK() {
			r.Success = false
			return
		}
	}
}
