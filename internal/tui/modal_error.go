package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrorModal is a blocking notification with a title and message. It stays
// on top of the stack until dismissed with esc or enter.
type ErrorModal struct {
	title   string
	message string
}

// NewErrorModal creates an error modal.
func NewErrorModal(title, message string) *ErrorModal {
	return &ErrorModal{title: title, message: message}
}

func (m *ErrorModal) ID() string { return "error" }

func (m *ErrorModal) Update(msg tea.Msg) (bool, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(keyMsg, DefaultKeyMap().Escape) || key.Matches(keyMsg, DefaultKeyMap().Enter) {
			return true, nil
		}
	}
	return false, nil
}

func (m *ErrorModal) View(width, height int) string {
	boxWidth := 50
	if boxWidth > width-8 {
		boxWidth = width - 8
	}
	contentWidth := boxWidth - 4

	header := lipgloss.NewStyle().
		Width(contentWidth).
		Foreground(ColorError).
		Bold(true).
		Render(m.title)

	body := lipgloss.NewStyle().
		Width(contentWidth).
		Foreground(ColorText).
		Render(m.message)

	statusBar := lipgloss.NewStyle().
		Foreground(ColorDim).
		Render("Enter/ESC: Close")

	modal := lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", statusBar)

	box := lipgloss.NewStyle().
		Width(boxWidth).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1).
		Render(modal)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
