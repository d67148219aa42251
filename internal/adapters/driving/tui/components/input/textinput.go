// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driving/tui/styles"
)

// ContextInput edits the evidence text of one field.
type ContextInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	fieldID   string
	width     int
}

// NewContextInput creates an unfocused context editor.
func NewContextInput(s *styles.Styles) *ContextInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Quote or page reference..."
	ti.CharLimit = 2000
	ti.Width = 50

	return &ContextInput{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Open starts editing fieldID with its current text.
func (c *ContextInput) Open(fieldID, text string) tea.Cmd {
	c.fieldID = fieldID
	c.textinput.SetValue(text)
	c.textinput.CursorEnd()
	return c.textinput.Focus()
}

// Close stops editing.
func (c *ContextInput) Close() {
	c.textinput.Blur()
	c.fieldID = ""
}

// Update handles input messages.
func (c *ContextInput) Update(msg tea.Msg) (*ContextInput, tea.Cmd) {
	var cmd tea.Cmd
	c.textinput, cmd = c.textinput.Update(msg)
	return c, cmd
}

// View renders the editor.
func (c *ContextInput) View() string {
	label := c.styles.Subtitle.Render(c.fieldID + " context: ")
	field := c.styles.InputField.Render(c.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// FieldID returns the field being edited, empty when closed.
func (c *ContextInput) FieldID() string {
	return c.fieldID
}

// Value returns the current text.
func (c *ContextInput) Value() string {
	return c.textinput.Value()
}

// Focused returns whether the editor is open.
func (c *ContextInput) Focused() bool {
	return c.textinput.Focused()
}

// SetWidth sets the width of the editor.
func (c *ContextInput) SetWidth(width int) {
	c.width = width
	inputWidth := width - len(c.fieldID) - 16
	if inputWidth < 20 {
		inputWidth = 20
	}
	c.textinput.Width = inputWidth
}

// Width returns the current width.
func (c *ContextInput) Width() int {
	return c.width
}
