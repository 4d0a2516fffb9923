package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// View renders the board.
func (b *PlanBoard) View() string {
	if b.width <= 0 || b.height <= 0 {
		return "Initializing plan board..."
	}

	// If a modal is on the stack, render it full-screen.
	if modal := b.TopModal(); modal != nil {
		return modal.View(b.width, b.height)
	}

	if b.height < 12 || b.width < 60 {
		return "Terminal too small. Resize to at least 60x12."
	}

	tabBar := b.renderTabBar()
	statusLine := b.renderStatusLine()

	contentHeight := b.height - lipgloss.Height(tabBar) - lipgloss.Height(statusLine)

	var content string
	switch b.activeTab {
	case TabActivity:
		content = b.renderActivity(b.width, contentHeight)
	default:
		content = b.renderPlansTab(b.width, contentHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusLine)
}

func (b *PlanBoard) renderTabBar() string {
	active := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent).
		Padding(0, 2)
	inactive := lipgloss.NewStyle().
		Foreground(ColorDim).
		Padding(0, 2)

	parts := make([]string, len(tabTitles))
	for i, title := range tabTitles {
		if i == b.activeTab {
			parts[i] = active.Render("[" + title + "]")
		} else {
			parts[i] = inactive.Render(" " + title + " ")
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderPlansTab renders the grid plus the action button.
func (b *PlanBoard) renderPlansTab(width, height int) string {
	controlBar := b.renderControl(width)
	gridHeight := height - lipgloss.Height(controlBar)

	grid := b.renderGrid(width, gridHeight)
	return lipgloss.JoinVertical(lipgloss.Left, grid, controlBar)
}

const (
	colWidthID     = 6
	colWidthOwner  = 14
	colWidthStatus = 22
	colWidthEdited = 17
)

// renderGrid renders the plan rows with the selection highlighted.
func (b *PlanBoard) renderGrid(width, height int) string {
	nameWidth := width - colWidthID - colWidthOwner - colWidthStatus - colWidthEdited - 6
	if nameWidth < 10 {
		nameWidth = 10
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorText)
	header := headerStyle.Render(fmt.Sprintf(" %-*s %-*s %-*s %-*s %-*s",
		colWidthID, "ID",
		nameWidth, "Plan",
		colWidthOwner, "Owner",
		colWidthStatus, "Status",
		colWidthEdited, "Edited"))

	lines := []string{header}

	if len(b.rows) == 0 {
		empty := lipgloss.NewStyle().Foreground(ColorDim).
			Render("  No plans for filter '" + string(b.filter) + "'")
		lines = append(lines, empty)
	}

	visible := height - 1
	if visible < 1 {
		visible = 1
	}
	start := 0
	if b.selected >= visible {
		start = b.selected - visible + 1
	}

	for i := start; i < len(b.rows) && i < start+visible; i++ {
		row := b.rows[i]

		name := runewidth.Truncate(row.Name, nameWidth, "…")
		edited := ""
		if !row.Edited.IsZero() {
			edited = row.Edited.Local().Format("2006-01-02 15:04")
		}

		status := lipgloss.NewStyle().
			Foreground(stateColor(string(row.State))).
			Render(fmt.Sprintf("%-*s", colWidthStatus, string(row.State)))

		line := fmt.Sprintf(" %-*d %s %-*s %s %-*s",
			colWidthID, row.ID,
			runewidth.FillRight(name, nameWidth),
			colWidthOwner, row.Owner,
			status,
			colWidthEdited, edited)

		if i == b.selected {
			line = lipgloss.NewStyle().
				Bold(true).
				Background(ColorBorder).
				Render(line)
		}
		lines = append(lines, line)
	}

	grid := strings.Join(lines, "\n")
	return lipgloss.NewStyle().Width(width).Height(height).Render(grid)
}

// renderControl renders the shared action button.
func (b *PlanBoard) renderControl(width int) string {
	style := lipgloss.NewStyle().
		Padding(0, 2).
		Border(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		Foreground(ColorDim)
	if b.control.enabled {
		style = style.
			BorderForeground(ColorAccent).
			Foreground(ColorAccent).
			Bold(true)
	}

	button := style.Render(b.control.label)

	hint := ""
	if b.control.enabled {
		hint = lipgloss.NewStyle().Foreground(ColorDim).Render("  enter to run")
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, button, hint)
}

func (b *PlanBoard) renderStatusLine() string {
	style := lipgloss.NewStyle().Foreground(ColorDim)

	left := fmt.Sprintf(" %s | filter: %s | %d plans | poll %s",
		b.username, b.filter, len(b.rows), b.watcher.PollInterval())

	if b.lastListError != "" {
		left += " | " + lipgloss.NewStyle().Foreground(ColorError).Render(b.lastListError)
	}

	right := "?: help  q: quit "
	pad := b.width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		pad = 1
	}
	return style.Render(left + strings.Repeat(" ", pad) + right)
}
