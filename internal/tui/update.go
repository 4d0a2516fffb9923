package tui

import (
	"context"
	"time"

	"github.com/publicmapping/planwatch/internal/model"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages.
func (b *PlanBoard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		return b, nil

	case tea.KeyMsg:
		return b.handleKeyPress(msg)

	case TickMsg:
		return b, b.handleTick()

	case statusesLoadedMsg:
		b.pollInFlight = false
		if msg.err != nil {
			// Poll failures are self-healing: the next tick retries.
			return b, nil
		}
		changes := b.countChanges(msg.snap)
		b.watcher.Reconcile(msg.snap)
		b.recordActivity(time.Now(), changes)
		return b, nil

	case plansLoadedMsg:
		return b, b.handlePlansLoaded(msg)

	case reaggDoneMsg:
		b.watcher.FinishReaggregation(msg.id, msg.err)
		return b, b.drainReloadQueue()
	}

	return b, nil
}

// handleTick issues a status poll unless one is in flight or the watcher
// suppresses polling, and always schedules the next tick.
func (b *PlanBoard) handleTick() tea.Cmd {
	next := tea.Tick(b.watcher.PollInterval(), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})

	if b.pollInFlight {
		return next
	}
	ids := b.watcher.PollPlanIDs()
	if ids == nil {
		return next
	}

	b.pollInFlight = true
	return tea.Batch(b.fetchStatusesCmd(ids), next)
}

// countChanges counts plans present in both the stored and the incoming
// snapshot whose status differs, for the activity chart.
func (b *PlanBoard) countChanges(next model.StatusSnapshot) int {
	changes := 0
	for id, oldState := range b.watcher.Snapshot() {
		if newState, ok := next[id]; ok && newState != oldState {
			changes++
		}
	}
	return changes
}

func (b *PlanBoard) handlePlansLoaded(msg plansLoadedMsg) tea.Cmd {
	b.listInFlight = false

	if msg.err != nil {
		b.lastListError = msg.err.Error()
		return b.drainReloadQueue()
	}
	if b.reloadQueued {
		// These rows answer a request issued before the reload was queued;
		// applying them would repaint pre-trigger statuses. Discard and
		// fetch fresh.
		return b.drainReloadQueue()
	}
	if msg.filter != b.filter {
		// Stale response for a filter the user already left; fetch the
		// current one instead.
		return b.fetchPlansCmd(b.filter)
	}

	b.lastListError = ""
	b.rows = msg.plans
	if b.selected >= len(b.rows) {
		b.selected = len(b.rows) - 1
	}
	if b.selected < 0 {
		b.selected = 0
	}

	b.watcher.PlansUpdated(msg.plans)
	if plan, ok := b.selectedPlan(); ok {
		b.watcher.PlanSelected(plan.ID)
	}
	return nil
}

// drainReloadQueue issues a plan-list fetch when the watcher asked the grid
// to reload. While a listing is already in flight the queue stays set and is
// drained when that response lands, so a requested reload is never dropped.
func (b *PlanBoard) drainReloadQueue() tea.Cmd {
	if !b.reloadQueued || b.listInFlight {
		return nil
	}
	b.reloadQueued = false
	return b.fetchPlansCmd(b.filter)
}

func (b *PlanBoard) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Force quit always works.
	if key.Matches(msg, b.keys.ForceQuit) {
		return b, tea.Quit
	}

	// Modal on top of the stack gets the key first.
	if modal := b.TopModal(); modal != nil {
		pop, cmd := modal.Update(msg)
		if pop {
			b.PopModal()
		}
		return b, cmd
	}

	switch {
	case key.Matches(msg, b.keys.Quit):
		return b, tea.Quit

	case key.Matches(msg, b.keys.Help):
		b.PushModal(NewHelpModal())
		return b, nil

	case key.Matches(msg, b.keys.NextTab):
		b.switchTab((b.activeTab + 1) % tabCount)
		return b, nil

	case key.Matches(msg, b.keys.PrevTab):
		b.switchTab((b.activeTab - 1 + tabCount) % tabCount)
		return b, nil

	case key.Matches(msg, b.keys.Up):
		b.moveSelection(-1)
		return b, nil

	case key.Matches(msg, b.keys.Down):
		b.moveSelection(1)
		return b, nil

	case key.Matches(msg, b.keys.Home):
		b.setSelection(0)
		return b, nil

	case key.Matches(msg, b.keys.End):
		b.setSelection(len(b.rows) - 1)
		return b, nil

	case key.Matches(msg, b.keys.CycleFilter):
		return b, b.cycleFilter()

	case key.Matches(msg, b.keys.Reload):
		return b, b.fetchPlansCmd(b.filter)

	case key.Matches(msg, b.keys.Enter):
		return b, b.activateControl()
	}

	return b, nil
}

func (b *PlanBoard) switchTab(idx int) {
	b.activeTab = idx
	b.watcher.TabSelected(idx)
}

func (b *PlanBoard) moveSelection(delta int) {
	b.setSelection(b.selected + delta)
}

func (b *PlanBoard) setSelection(idx int) {
	if b.activeTab != TabPlans || len(b.rows) == 0 {
		return
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(b.rows) {
		idx = len(b.rows) - 1
	}
	b.selected = idx
	b.watcher.PlanSelected(b.rows[idx].ID)
}

// cycleFilter advances mine → shared → template → mine. The watcher only
// records the filter; re-fetching the list is the grid's own concern.
func (b *PlanBoard) cycleFilter() tea.Cmd {
	switch b.filter {
	case model.FilterMine:
		b.filter = model.FilterShared
	case model.FilterShared:
		b.filter = model.FilterTemplate
	default:
		b.filter = model.FilterMine
	}
	b.watcher.FilterChanged(b.filter)
	return b.fetchPlansCmd(b.filter)
}

// activateControl runs the action button: begin the optimistic control
// update, then issue the reaggregation trigger.
func (b *PlanBoard) activateControl() tea.Cmd {
	if b.activeTab != TabPlans || !b.control.enabled {
		return nil
	}
	plan, ok := b.selectedPlan()
	if !ok {
		return nil
	}

	b.watcher.BeginReaggregation(plan.ID)
	return b.reaggregateCmd(plan.ID)
}

func (b *PlanBoard) fetchStatusesCmd(ids []model.PlanID) tea.Cmd {
	api := b.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		snap, err := api.PlanStatuses(ctx, ids)
		return statusesLoadedMsg{snap: snap, err: err}
	}
}

func (b *PlanBoard) fetchPlansCmd(filter model.FilterID) tea.Cmd {
	if b.listInFlight {
		return nil
	}
	b.listInFlight = true

	api := b.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		plans, err := api.ListPlans(ctx, filter)
		return plansLoadedMsg{filter: filter, plans: plans, err: err}
	}
}

func (b *PlanBoard) reaggregateCmd(id model.PlanID) tea.Cmd {
	api := b.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := api.Reaggregate(ctx, id)
		return reaggDoneMsg{id: id, err: err}
	}
}
