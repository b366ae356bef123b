// Package molecules provides mid-level TUI components.
package molecules

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Action is what a key press asked the input to do.
type Action int

const (
	ActionNone Action = iota
	ActionSubmit
	ActionCancel
)

// TitleInput wraps a single-line textinput with Enter-to-submit semantics.
// Enter on a blank value is ignored.
type TitleInput struct {
	input textinput.Model
}

// NewTitleInput creates an input with the given placeholder.
func NewTitleInput(placeholder string) TitleInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 0
	return TitleInput{input: ti}
}

// SetWidth sets the input width.
func (c *TitleInput) SetWidth(w int) {
	c.input.Width = w
}

// Focus gives focus to the input.
func (c *TitleInput) Focus() tea.Cmd {
	return c.input.Focus()
}

// Blur removes focus from the input.
func (c *TitleInput) Blur() {
	c.input.Blur()
}

// Focused reports whether the input has focus.
func (c TitleInput) Focused() bool {
	return c.input.Focused()
}

// Reset clears the input.
func (c *TitleInput) Reset() {
	c.input.Reset()
}

// SetValue replaces the input text and moves the cursor to the end.
func (c *TitleInput) SetValue(s string) {
	c.input.SetValue(s)
	c.input.CursorEnd()
}

// Value returns the current input text as typed.
func (c TitleInput) Value() string {
	return c.input.Value()
}

// Update handles key events. Enter submits a non-blank value, Esc cancels.
func (c TitleInput) Update(msg tea.Msg) (TitleInput, Action, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyEnter:
			if strings.TrimSpace(c.input.Value()) == "" {
				return c, ActionNone, nil
			}
			return c, ActionSubmit, nil
		case tea.KeyEsc:
			return c, ActionCancel, nil
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, ActionNone, cmd
}

// View renders the input.
func (c TitleInput) View() string {
	return c.input.View()
}
