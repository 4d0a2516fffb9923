package tui

import (
	"time"

	"github.com/publicmapping/planwatch/internal/model"
	"github.com/publicmapping/planwatch/internal/watcher"

	tea "github.com/charmbracelet/bubbletea"
)

// Board tabs. The watcher suppresses polling off the Plans tab.
const (
	TabPlans = iota
	TabActivity
	tabCount
)

var tabTitles = [tabCount]string{"Plans", "Activity"}

// TickMsg drives the status poll.
type TickMsg time.Time

// statusesLoadedMsg carries a poll response.
type statusesLoadedMsg struct {
	snap model.StatusSnapshot
	err  error
}

// plansLoadedMsg carries a plan-list response (the grid's data-updated event).
type plansLoadedMsg struct {
	filter model.FilterID
	plans  []model.Plan
	err    error
}

// reaggDoneMsg carries the outcome of a reaggregation trigger.
type reaggDoneMsg struct {
	id  model.PlanID
	err error
}

// activityPoint records how many plans changed status in one poll.
type activityPoint struct {
	At      time.Time
	Changes int
}

const maxActivityPoints = 120

// controlState is the rendered state of the shared action button.
type controlState struct {
	label   string
	enabled bool
}

// PlanBoard is the main TUI model: a tabbed board with the plan grid, the
// action button, and a reaggregation activity chart, all driven by the
// status watcher.
type PlanBoard struct {
	width  int
	height int

	keys KeyMap

	api      model.PlanAPI
	username string

	watcher *watcher.Watcher

	activeTab int

	rows     []model.Plan
	selected int
	filter   model.FilterID

	control controlState

	modalStack []Modal

	// Async guards to avoid overlapping fetches.
	pollInFlight bool
	listInFlight bool

	// Set by the grid adapter when the watcher asks for a reload.
	reloadQueued bool

	activity []activityPoint

	// Last plan-list load error for the status line. Poll errors are
	// intentionally not surfaced; the next tick retries.
	lastListError string
}

// Config carries the board's dependencies.
type Config struct {
	API          model.PlanAPI
	Username     string
	PollInterval time.Duration
	Filter       model.FilterID
}

// NewPlanBoard creates the board and its watcher.
func NewPlanBoard(cfg Config) *PlanBoard {
	if cfg.Filter == "" {
		cfg.Filter = model.FilterMine
	}

	b := &PlanBoard{
		keys:     DefaultKeyMap(),
		api:      cfg.API,
		username: cfg.Username,
		filter:   cfg.Filter,
		control:  controlState{label: "Start", enabled: false},
	}

	b.watcher = watcher.New(watcher.Config{
		PollInterval: cfg.PollInterval,
		OwnerFilter:  model.FilterMine,
		InitialTab:   TabPlans,
		Grid:         boardGrid{b},
		Control:      boardControl{b},
		Notifier:     boardNotifier{b},
	})
	b.watcher.FilterChanged(cfg.Filter)

	return b
}

// Init starts the poll loop and the initial plan-list load.
func (b *PlanBoard) Init() tea.Cmd {
	return tea.Batch(
		b.fetchPlansCmd(b.filter),
		tea.Tick(b.watcher.PollInterval(), func(t time.Time) tea.Msg {
			return TickMsg(t)
		}),
	)
}

// selectedPlan returns the currently selected plan row, if any.
func (b *PlanBoard) selectedPlan() (model.Plan, bool) {
	if b.selected < 0 || b.selected >= len(b.rows) {
		return model.Plan{}, false
	}
	return b.rows[b.selected], true
}

// recordActivity appends one poll's change count to the activity history.
func (b *PlanBoard) recordActivity(at time.Time, changes int) {
	b.activity = append(b.activity, activityPoint{At: at, Changes: changes})
	if len(b.activity) > maxActivityPoints {
		b.activity = b.activity[len(b.activity)-maxActivityPoints:]
	}
}

// boardGrid adapts the board to the watcher's grid collaborator. Refresh
// re-renders row status cells from the snapshot; Reload queues a plan-list
// fetch that the update loop issues.
type boardGrid struct{ b *PlanBoard }

func (g boardGrid) Refresh() {
	snap := g.b.watcher.Snapshot()
	for i := range g.b.rows {
		if state, ok := snap[g.b.rows[i].ID]; ok {
			g.b.rows[i].State = state
		}
	}
}

func (g boardGrid) Reload() {
	g.b.reloadQueued = true
}

// boardControl adapts the action button to the watcher's start control.
type boardControl struct{ b *PlanBoard }

func (c boardControl) State() (string, bool) {
	return c.b.control.label, c.b.control.enabled
}

func (c boardControl) SetState(label string, enabled bool) {
	c.b.control.label = label
	c.b.control.enabled = enabled
}

// boardNotifier surfaces watcher errors as a blocking modal.
type boardNotifier struct{ b *PlanBoard }

func (n boardNotifier) Error(title, message string) {
	n.b.PushModal(NewErrorModal(title, message))
}

// PlanBoardPage adapts PlanBoard to the Page interface.
type PlanBoardPage struct {
	Board *PlanBoard
}

// NewPlanBoardPage wraps a PlanBoard as a Page.
func NewPlanBoardPage(b *PlanBoard) *PlanBoardPage {
	return &PlanBoardPage{Board: b}
}

func (p *PlanBoardPage) ID() string { return "planboard" }

func (p *PlanBoardPage) Init() tea.Cmd {
	return p.Board.Init()
}

func (p *PlanBoardPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	_, cmd := p.Board.Update(msg)
	return cmd, nil
}

func (p *PlanBoardPage) View(width, height int) string {
	p.Board.width = width
	p.Board.height = height
	return p.Board.View()
}
