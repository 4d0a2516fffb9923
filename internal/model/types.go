package model

import "time"

// PlanID identifies a redistricting plan record.
type PlanID int64

// ProcessingState describes where a plan is in its reaggregation lifecycle.
// The values are the exact strings the status endpoint reports; they are
// compared verbatim, never parsed.
type ProcessingState string

const (
	StateReady         ProcessingState = "Ready"
	StateNeedsReagg    ProcessingState = "Needs reaggregation"
	StateReaggregating ProcessingState = "Reaggregating"
	StateUnknown       ProcessingState = "Unknown"
)

// StatusSnapshot maps every known plan to its last observed processing state.
// Snapshots are replaced wholesale, never mutated entry by entry.
type StatusSnapshot map[PlanID]ProcessingState

// IDs returns the plan ids present in the snapshot.
func (s StatusSnapshot) IDs() []PlanID {
	if len(s) == 0 {
		return nil
	}
	ids := make([]PlanID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// Clone returns an independent copy of the snapshot.
func (s StatusSnapshot) Clone() StatusSnapshot {
	if s == nil {
		return nil
	}
	out := make(StatusSnapshot, len(s))
	for id, state := range s {
		out[id] = state
	}
	return out
}

// Plan is one row of the plan grid.
type Plan struct {
	ID     PlanID          `json:"id"`
	Name   string          `json:"name"`
	Owner  string          `json:"owner"`
	State  ProcessingState `json:"processing_state"`
	Edited time.Time       `json:"edited"`
}

// FilterID selects which class of plans the grid shows. FilterMine is the
// owner filter: plans listed under it belong to the current user.
type FilterID string

const (
	FilterMine     FilterID = "mine"
	FilterShared   FilterID = "shared"
	FilterTemplate FilterID = "template"
)
