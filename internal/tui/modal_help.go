package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModal shows key bindings and a short orientation.
type HelpModal struct {
	vp viewport.Model
}

// NewHelpModal creates the help modal.
func NewHelpModal() *HelpModal {
	return &HelpModal{vp: viewport.New(0, 0)}
}

func (m *HelpModal) ID() string { return "help" }

func (m *HelpModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		keys := DefaultKeyMap()
		if key.Matches(keyMsg, keys.Escape) || key.Matches(keyMsg, keys.Help) {
			return true, nil
		}
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return false, cmd
}

func (m *HelpModal) View(width, height int) string {
	modalWidth := width - 8
	modalHeight := height - 4
	contentWidth := modalWidth - 4
	contentHeight := modalHeight - 4

	m.vp.Width = contentWidth
	m.vp.Height = contentHeight
	m.vp.SetContent(helpContent())

	contentPane := lipgloss.NewStyle().
		Width(contentWidth).
		Height(contentHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		Render(m.vp.View())

	header := lipgloss.NewStyle().
		Width(contentWidth).
		Foreground(ColorAccent).
		Bold(true).
		Render("Plan Board Help")

	statusBar := lipgloss.NewStyle().
		Foreground(ColorDim).
		Render("up/down: Scroll | ?/h: Toggle Help | ESC: Close")

	modal := lipgloss.JoinVertical(lipgloss.Left, header, contentPane, statusBar)

	finalModal := lipgloss.NewStyle().
		Width(modalWidth).
		Height(modalHeight).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAccent).
		Render(modal)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, finalModal)
}

func helpContent() string {
	return `Redistricting Plan Board

NAVIGATION:
  Tab / ]        - Next tab (Plans, Activity)
  Shift+Tab / [  - Previous tab
  up/down or k/j - Move plan selection
  Home/End       - Jump to first/last plan
  Enter          - Run the action button (when enabled)
  Escape         - Close modal

ACTIONS:
  f              - Cycle plan filter (mine / shared / template)
  r              - Reload the plan list from the server
  ? or h         - Toggle this help
  q/Ctrl+C       - Quit

STATUS COLUMN:
  Ready                - plan statistics are current
  Needs reaggregation  - statistics are stale; owners can reaggregate
  Reaggregating        - the server is recomputing statistics
  Unknown              - the server does not know this plan

The board polls the server for plan statuses while the Plans tab is
visible and refreshes rows whose status changed. Reaggregation of your
own stale plans is started with the action button; progress surfaces
through the status column on later polls.
`
}
