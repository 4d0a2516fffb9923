package watcher

import (
	"time"

	"github.com/publicmapping/planwatch/internal/model"
)

// Tab indexes within the hosting UI. Polling only runs while the plan
// grid tab is visible.
const PlanListTab = 0

// Start-control labels shown for each reaggregation state.
const (
	LabelReaggregate = "Reaggregate"
	LabelNeedsReagg  = "Needs reaggregation"
	LabelInProgress  = "Reaggregation in progress"
)

// Error dialog content for a failed reaggregation request.
const (
	ErrorTitle   = "Error Reaggregating Plan"
	ErrorMessage = "The plan could not be reaggregated. Please try again later."
)

// Grid is the data-grid collaborator. Refresh asks it to re-render its rows
// from current state; Reload asks it to re-fetch its rows from the server.
type Grid interface {
	Refresh()
	Reload()
}

// StartControl is the single shared action button the watcher drives.
type StartControl interface {
	State() (label string, enabled bool)
	SetState(label string, enabled bool)
}

// Notifier surfaces a blocking error notification to the user.
type Notifier interface {
	Error(title, message string)
}

// Config carries the watcher's collaborators and tunables.
type Config struct {
	PollInterval time.Duration
	OwnerFilter  model.FilterID // filter whose plans belong to the current user
	InitialTab   int
	Grid         Grid
	Control      StartControl
	Notifier     Notifier
}

// savedControl remembers the start control's state before an optimistic
// update, for rollback when the reaggregation request fails.
type savedControl struct {
	label   string
	enabled bool
}

// Watcher tracks per-plan processing state, reconciling each newly observed
// snapshot against the last known one and driving the grid, the start
// control, and the error dialog. All methods must be called from a single
// goroutine (the UI event loop); the watcher does no locking and no I/O.
type Watcher struct {
	pollInterval time.Duration
	ownerFilter  model.FilterID

	grid     Grid
	control  StartControl
	notifier Notifier

	snapshot    model.StatusSnapshot // nil until first data arrives
	selectedTab int
	filter      model.FilterID

	pending map[model.PlanID]savedControl
}

// New creates a watcher. The current tab selection is captured from
// cfg.InitialTab; keep it current via TabSelected.
func New(cfg Config) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = model.DefaultPollInterval
	}
	if cfg.OwnerFilter == "" {
		cfg.OwnerFilter = model.FilterMine
	}
	return &Watcher{
		pollInterval: cfg.PollInterval,
		ownerFilter:  cfg.OwnerFilter,
		grid:         cfg.Grid,
		control:      cfg.Control,
		notifier:     cfg.Notifier,
		selectedTab:  cfg.InitialTab,
		filter:       cfg.OwnerFilter,
		pending:      make(map[model.PlanID]savedControl),
	}
}

// PollInterval returns the configured polling interval.
func (w *Watcher) PollInterval() time.Duration { return w.pollInterval }

// Snapshot returns the current snapshot. Nil before first data.
func (w *Watcher) Snapshot() model.StatusSnapshot { return w.snapshot }

// TabSelected records the newly selected tab index.
func (w *Watcher) TabSelected(idx int) { w.selectedTab = idx }

// FilterChanged records the newly selected plan-type filter. It affects only
// future PlanSelected evaluations and triggers no network activity.
func (w *Watcher) FilterChanged(f model.FilterID) { w.filter = f }

// PollPlanIDs returns the plan ids to poll for, or nil when polling is
// suppressed: before any snapshot exists, or while a tab other than the
// plan list is selected.
func (w *Watcher) PollPlanIDs() []model.PlanID {
	if len(w.snapshot) == 0 || w.selectedTab != PlanListTab {
		return nil
	}
	return w.snapshot.IDs()
}

// Reconcile compares a newly observed snapshot against the stored one and
// triggers a single grid refresh when any plan present in both changed
// status. The stored snapshot is replaced wholesale either way; plans that
// appear or vanish never trigger a refresh on their own. The first snapshot
// is stored silently.
func (w *Watcher) Reconcile(next model.StatusSnapshot) {
	if w.snapshot == nil {
		w.snapshot = next
		return
	}

	changed := false
	for id, oldState := range w.snapshot {
		newState, ok := next[id]
		if ok && newState != oldState {
			changed = true
			break
		}
	}

	// Replace before refreshing so the grid repaints from the new snapshot.
	w.snapshot = next
	if changed && w.grid != nil {
		w.grid.Refresh()
	}
}

// PlansUpdated is the integration point for the grid's own data-updated
// notification: fresh rows are converted to a snapshot and reconciled
// exactly like a poll response.
func (w *Watcher) PlansUpdated(rows []model.Plan) {
	snap := make(model.StatusSnapshot, len(rows))
	for _, row := range rows {
		snap[row.ID] = row.State
	}
	w.Reconcile(snap)
}

// PlanSelected updates the start control for the newly selected plan based
// on its status and whether the active filter marks it as owned by the
// current user. Statuses outside the reaggregation lifecycle leave the
// control untouched.
func (w *Watcher) PlanSelected(id model.PlanID) {
	if w.control == nil {
		return
	}
	switch w.snapshot[id] {
	case model.StateNeedsReagg:
		if w.filter == w.ownerFilter {
			w.control.SetState(LabelReaggregate, true)
		} else {
			w.control.SetState(LabelNeedsReagg, false)
		}
	case model.StateReaggregating:
		w.control.SetState(LabelInProgress, false)
	}
}

// BeginReaggregation optimistically flips the start control to its
// in-progress state before the trigger request is issued, remembering the
// prior state for rollback. The host must issue the request and route its
// outcome to FinishReaggregation.
func (w *Watcher) BeginReaggregation(id model.PlanID) {
	if w.control == nil {
		return
	}
	label, enabled := w.control.State()
	w.pending[id] = savedControl{label: label, enabled: enabled}
	w.control.SetState(LabelInProgress, false)
}

// FinishReaggregation completes a reaggregation request. On success the
// grid is told to reload; its own data-updated notification will surface
// the new status. On failure the control is rolled back to its saved state
// and the user is shown a blocking error dialog.
func (w *Watcher) FinishReaggregation(id model.PlanID, err error) {
	saved, ok := w.pending[id]
	delete(w.pending, id)

	if err == nil {
		if w.grid != nil {
			w.grid.Reload()
		}
		return
	}

	if ok && w.control != nil {
		w.control.SetState(saved.label, saved.enabled)
	}
	if w.notifier != nil {
		w.notifier.Error(ErrorTitle, ErrorMessage)
	}
}
