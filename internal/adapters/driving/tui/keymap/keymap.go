// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the annotation form.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding

	// Up and Down move between rows.
	Up   key.Binding
	Down key.Binding

	// Next and Prev cycle the value of the current row.
	Next key.Binding
	Prev key.Binding

	// Clear blanks the current row.
	Clear key.Binding

	// Lock toggles the lock of the current field.
	Lock key.Binding

	// Context edits the evidence text of the current field.
	Context key.Binding

	// Suggest asks the AI provider to fill the form.
	Suggest key.Binding

	// Revert restores the value from before the suggestion.
	Revert key.Binding

	// ClearAI blanks the suggestion text, keeping the value.
	ClearAI key.Binding

	// Reasoning shows or hides the AI reasoning.
	Reasoning key.Binding

	// Submit stores the annotation.
	Submit key.Binding

	// Confirm and Cancel end text entry.
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l", " "),
			key.WithHelp("→/l", "next value"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous value"),
		),
		Clear: key.NewBinding(
			key.WithKeys("x", "backspace"),
			key.WithHelp("x", "clear"),
		),
		Lock: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "lock"),
		),
		Context: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit context"),
		),
		Suggest: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "suggest"),
		),
		Revert: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "revert AI"),
		),
		ClearAI: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear AI text"),
		),
		Reasoning: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "reasoning"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "submit"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Suggest, k.Submit, k.Help, k.Quit}
}

// EditHelp returns the bindings shown while editing text.
func (k *KeyMap) EditHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Next, k.Prev, k.Clear},
		{k.Lock, k.Context, k.Reasoning},
		{k.Suggest, k.Revert, k.ClearAI},
		{k.Submit, k.Help, k.Quit},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
