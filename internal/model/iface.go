package model

import "context"

// StatusQuerier reads current processing state for a set of plans.
type StatusQuerier interface {
	PlanStatuses(ctx context.Context, ids []PlanID) (StatusSnapshot, error)
}

// Reaggregator triggers server-side reaggregation of one plan.
type Reaggregator interface {
	Reaggregate(ctx context.Context, id PlanID) error
}

// PlanLister retrieves plan rows for the grid.
type PlanLister interface {
	ListPlans(ctx context.Context, filter FilterID) ([]Plan, error)
}

// PlanAPI is the unified contract the TUI requires from the plan service.
type PlanAPI interface {
	StatusQuerier
	Reaggregator
	PlanLister
}
