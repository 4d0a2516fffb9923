package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/publicmapping/planwatch/internal/model"
	"github.com/publicmapping/planwatch/internal/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

type countingAPI struct {
	statuses model.StatusSnapshot
	plans    []model.Plan

	statusErr error
	reaggErr  error

	statusCalls int
	reaggCalls  int
	listCalls   int

	lastStatusIDs []model.PlanID
	lastReaggID   model.PlanID
}

func (a *countingAPI) PlanStatuses(_ context.Context, ids []model.PlanID) (model.StatusSnapshot, error) {
	a.statusCalls++
	a.lastStatusIDs = ids
	if a.statusErr != nil {
		return nil, a.statusErr
	}
	return a.statuses.Clone(), nil
}

func (a *countingAPI) Reaggregate(_ context.Context, id model.PlanID) error {
	a.reaggCalls++
	a.lastReaggID = id
	return a.reaggErr
}

func (a *countingAPI) ListPlans(_ context.Context, _ model.FilterID) ([]model.Plan, error) {
	a.listCalls++
	return a.plans, nil
}

func newTestBoard(api *countingAPI) *PlanBoard {
	return NewPlanBoard(Config{
		API:          api,
		Username:     "anna",
		PollInterval: time.Millisecond,
	})
}

// runCmd executes a command tree and feeds every produced message back into
// the board, returning the messages seen.
func runCmd(t *testing.T, b *PlanBoard, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, sub := range batch {
			msgs = append(msgs, runCmd(t, b, sub)...)
		}
		return msgs
	}
	if _, ok := msg.(TickMsg); ok {
		// Don't follow the tick chain; tests drive ticks explicitly.
		return nil
	}
	_, next := b.Update(msg)
	msgs := []tea.Msg{msg}
	msgs = append(msgs, runCmd(t, b, next)...)
	return msgs
}

func loadRows(t *testing.T, b *PlanBoard, rows []model.Plan) {
	t.Helper()
	b.Update(plansLoadedMsg{filter: b.filter, plans: rows})
}

func stalePlan(id model.PlanID, name string) model.Plan {
	return model.Plan{ID: id, Name: name, Owner: "anna", State: model.StateNeedsReagg}
}

func TestTick_NoPollBeforeFirstSnapshot(t *testing.T) {
	t.Parallel()

	api := &countingAPI{}
	b := newTestBoard(api)

	_, cmd := b.Update(TickMsg(time.Now()))
	runCmd(t, b, cmd)

	if api.statusCalls != 0 {
		t.Fatalf("status calls = %d, want 0 before first snapshot", api.statusCalls)
	}
}

func TestTick_NoPollOffPlansTab(t *testing.T) {
	t.Parallel()

	api := &countingAPI{}
	b := newTestBoard(api)
	loadRows(t, b, []model.Plan{stalePlan(1, "A")})

	b.switchTab(TabActivity)
	_, cmd := b.Update(TickMsg(time.Now()))
	runCmd(t, b, cmd)

	if api.statusCalls != 0 {
		t.Fatalf("status calls = %d, want 0 while Activity tab selected", api.statusCalls)
	}
}

func TestTick_PollsAndReconciles(t *testing.T) {
	t.Parallel()

	api := &countingAPI{
		statuses: model.StatusSnapshot{1: model.StateReaggregating},
	}
	b := newTestBoard(api)
	loadRows(t, b, []model.Plan{stalePlan(1, "A")})

	_, cmd := b.Update(TickMsg(time.Now()))
	runCmd(t, b, cmd)

	if api.statusCalls != 1 {
		t.Fatalf("status calls = %d, want 1", api.statusCalls)
	}
	if len(api.lastStatusIDs) != 1 || api.lastStatusIDs[0] != 1 {
		t.Fatalf("polled ids = %v, want [1]", api.lastStatusIDs)
	}
	if got := b.watcher.Snapshot()[1]; got != model.StateReaggregating {
		t.Fatalf("snapshot state = %q, want %q", got, model.StateReaggregating)
	}
	// The grid refresh propagated the new status into the row.
	if b.rows[0].State != model.StateReaggregating {
		t.Fatalf("row state = %q, want %q", b.rows[0].State, model.StateReaggregating)
	}
	if b.pollInFlight {
		t.Fatal("pollInFlight still set after response")
	}
}

func TestTick_InFlightGuardSkipsOverlappingPoll(t *testing.T) {
	t.Parallel()

	api := &countingAPI{statuses: model.StatusSnapshot{1: model.StateReady}}
	b := newTestBoard(api)
	loadRows(t, b, []model.Plan{stalePlan(1, "A")})

	b.pollInFlight = true
	_, cmd := b.Update(TickMsg(time.Now()))
	runCmd(t, b, cmd)

	if api.statusCalls != 0 {
		t.Fatalf("status calls = %d, want 0 while a poll is in flight", api.statusCalls)
	}
}

func TestPollFailure_SilentlyIgnored(t *testing.T) {
	t.Parallel()

	api := &countingAPI{statusErr: errors.New("connection refused")}
	b := newTestBoard(api)
	loadRows(t, b, []model.Plan{stalePlan(1, "A")})

	_, cmd := b.Update(TickMsg(time.Now()))
	runCmd(t, b, cmd)

	if b.HasModal() {
		t.Fatal("poll failure must not surface a modal")
	}
	if b.pollInFlight {
		t.Fatal("pollInFlight must clear so the next tick retries")
	}
	if got := b.watcher.Snapshot()[1]; got != model.StateNeedsReagg {
		t.Fatalf("snapshot state = %q, want unchanged %q", got, model.StateNeedsReagg)
	}
}

func TestSelection_EnablesControlForOwnStalePlan(t *testing.T) {
	t.Parallel()

	api := &countingAPI{}
	b := newTestBoard(api)
	loadRows(t, b, []model.Plan{stalePlan(1, "A")})

	if b.control.label != watcher.LabelReaggregate || !b.control.enabled {
		t.Fatalf("control = (%q, %v), want enabled %q",
			b.control.label, b.control.enabled, watcher.LabelReaggregate)
	}
}

func TestEnter_TriggersReaggregationOptimistically(t *testing.T) {
	t.Parallel()

	api := &countingAPI{}
	b := newTestBoard(api)
	loadRows(t, b, []model.Plan{stalePlan(7, "A")})

	cmd := b.activateControl()
	if b.control.label != watcher.LabelInProgress || b.control.enabled {
		t.Fatalf("control = (%q, %v) before response, want disabled %q",
			b.control.label, b.control.enabled, watcher.LabelInProgress)
	}

	runCmd(t, b, cmd)

	if api.reaggCalls != 1 || api.lastReaggID != 7 {
		t.Fatalf("reaggregate calls = %d for plan %d, want 1 for plan 7", api.reaggCalls, api.lastReaggID)
	}
	// Success: control stays in progress, grid reload issued exactly once.
	if b.control.label != watcher.LabelInProgress {
		t.Fatalf("control label = %q after success, want %q", b.control.label, watcher.LabelInProgress)
	}
	if api.listCalls != 1 {
		t.Fatalf("list calls = %d, want 1 reload after success", api.listCalls)
	}
	if b.HasModal() {
		t.Fatal("no modal expected on success")
	}
}

func TestEnter_FailureRollsBackAndShowsModal(t *testing.T) {
	t.Parallel()

	api := &countingAPI{reaggErr: errors.New("server unavailable")}
	b := newTestBoard(api)
	loadRows(t, b, []model.Plan{stalePlan(7, "A")})

	cmd := b.activateControl()
	runCmd(t, b, cmd)

	if b.control.label != watcher.LabelReaggregate || !b.control.enabled {
		t.Fatalf("control = (%q, %v) after failure, want restored enabled %q",
			b.control.label, b.control.enabled, watcher.LabelReaggregate)
	}
	if api.listCalls != 0 {
		t.Fatalf("list calls = %d, want 0 on failure", api.listCalls)
	}
	modal := b.TopModal()
	if modal == nil || modal.ID() != "error" {
		t.Fatalf("top modal = %v, want error modal", modal)
	}
}

func TestEnter_DisabledControlDoesNothing(t *testing.T) {
	t.Parallel()

	api := &countingAPI{}
	b := newTestBoard(api)
	loadRows(t, b, []model.Plan{{ID: 1, Name: "A", Owner: "anna", State: model.StateReady}})

	if cmd := b.activateControl(); cmd != nil {
		t.Fatal("activateControl returned a command for a disabled control")
	}
	if api.reaggCalls != 0 {
		t.Fatalf("reaggregate calls = %d, want 0", api.reaggCalls)
	}
}

func TestCycleFilter_RefetchesAndInformsWatcher(t *testing.T) {
	t.Parallel()

	api := &countingAPI{}
	b := newTestBoard(api)
	loadRows(t, b, []model.Plan{stalePlan(1, "A")})

	cmd := b.cycleFilter()
	if b.filter != model.FilterShared {
		t.Fatalf("filter = %q, want %q", b.filter, model.FilterShared)
	}
	runCmd(t, b, cmd)
	if api.listCalls != 1 {
		t.Fatalf("list calls = %d, want 1 after filter change", api.listCalls)
	}

	// Under the shared filter the same stale plan no longer offers the
	// reaggregate action.
	loadRows(t, b, []model.Plan{stalePlan(1, "A")})
	if b.control.enabled || b.control.label != watcher.LabelNeedsReagg {
		t.Fatalf("control = (%q, %v), want disabled %q",
			b.control.label, b.control.enabled, watcher.LabelNeedsReagg)
	}
}

func TestReaggSuccess_DuringInFlightListingStillReloads(t *testing.T) {
	t.Parallel()

	api := &countingAPI{}
	b := newTestBoard(api)
	loadRows(t, b, []model.Plan{stalePlan(7, "A")})
	preTrigger := []model.Plan{stalePlan(7, "A")}

	reaggCmd := b.activateControl()

	// A plan-list fetch was already in flight when the trigger succeeded.
	b.listInFlight = true
	runCmd(t, b, reaggCmd)

	if api.listCalls != 0 {
		t.Fatalf("list calls = %d, want 0 while the old listing is in flight", api.listCalls)
	}
	if !b.reloadQueued {
		t.Fatal("queued reload was dropped while a listing was in flight")
	}

	// The stale listing lands: its pre-trigger rows must be discarded and
	// the queued reload issued.
	_, cmd := b.Update(plansLoadedMsg{filter: b.filter, plans: preTrigger})
	runCmd(t, b, cmd)

	if api.listCalls != 1 {
		t.Fatalf("list calls after successful reaggregation = %d, want 1", api.listCalls)
	}
	if b.control.label != watcher.LabelInProgress || b.control.enabled {
		t.Fatalf("control = (%q, %v), want still disabled %q",
			b.control.label, b.control.enabled, watcher.LabelInProgress)
	}
}

func TestPlansLoaded_StaleFilterResponseRefetches(t *testing.T) {
	t.Parallel()

	api := &countingAPI{}
	b := newTestBoard(api)

	b.filter = model.FilterTemplate
	cmd := b.handlePlansLoaded(plansLoadedMsg{filter: model.FilterMine, plans: []model.Plan{stalePlan(1, "A")}})
	if cmd == nil {
		t.Fatal("stale filter response should schedule a refetch")
	}
	if len(b.rows) != 0 {
		t.Fatalf("rows = %v, want stale response discarded", b.rows)
	}
}

func TestView_TruncatesLongNamesOnRuneBoundaries(t *testing.T) {
	t.Parallel()

	api := &countingAPI{}
	b := newTestBoard(api)
	b.width = 70
	b.height = 14

	// Wide enough to force truncation inside the multi-byte run.
	name := "Distrito único, región " + strings.Repeat("áéíóú", 20)
	loadRows(t, b, []model.Plan{stalePlan(1, name)})

	out := b.View()
	if out == "" {
		t.Fatal("empty view")
	}
	if !utf8.ValidString(out) {
		t.Fatal("view contains a rune split mid-sequence")
	}
}

func TestView_SmokeRender(t *testing.T) {
	t.Parallel()

	api := &countingAPI{}
	b := newTestBoard(api)
	b.width = 100
	b.height = 30
	loadRows(t, b, []model.Plan{
		stalePlan(1, "Senate draft"),
		{ID: 2, Name: "House draft", Owner: "anna", State: model.StateReady, Edited: time.Now()},
	})

	if out := b.View(); out == "" {
		t.Fatal("empty plans view")
	}

	b.switchTab(TabActivity)
	b.recordActivity(time.Now(), 2)
	if out := b.View(); out == "" {
		t.Fatal("empty activity view")
	}

	b.PushModal(NewErrorModal("Error", "boom"))
	if out := b.View(); out == "" {
		t.Fatal("empty modal view")
	}
}
