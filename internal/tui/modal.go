package tui

import tea "github.com/charmbracelet/bubbletea"

// Modal is a self-contained overlay that owns its own Update/View lifecycle.
// Modals are managed via a stack on PlanBoard; the topmost modal receives
// all input and renders full-screen.
type Modal interface {
	// ID returns a unique identifier used to deduplicate pushes.
	ID() string
	// Update processes a message. Return pop=true to close the modal.
	Update(msg tea.Msg) (pop bool, cmd tea.Cmd)
	// View renders the modal content for the given terminal dimensions.
	View(width, height int) string
}

// PushModal pushes a modal onto the stack. Deduplicates by ID.
func (b *PlanBoard) PushModal(modal Modal) {
	for _, existing := range b.modalStack {
		if existing.ID() == modal.ID() {
			return
		}
	}
	b.modalStack = append(b.modalStack, modal)
}

// PopModal removes the topmost modal from the stack.
func (b *PlanBoard) PopModal() {
	if len(b.modalStack) > 0 {
		b.modalStack = b.modalStack[:len(b.modalStack)-1]
	}
}

// TopModal returns the topmost modal, or nil if the stack is empty.
func (b *PlanBoard) TopModal() Modal {
	if len(b.modalStack) == 0 {
		return nil
	}
	return b.modalStack[len(b.modalStack)-1]
}

// HasModal returns true if any modal is on the stack.
func (b *PlanBoard) HasModal() bool {
	return len(b.modalStack) > 0
}
