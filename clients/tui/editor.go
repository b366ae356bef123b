package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/tasktrack/clients/tui/molecules"
	"github.com/dohr-michael/tasktrack/internal/tasks"
)

// EditState is the inline edit state of the view.
type EditState int

const (
	EditIdle EditState = iota
	EditEditing
)

// Editor tracks which task is being renamed. At most one task edits at a time.
type Editor struct {
	state EditState
	id    int64
	input molecules.TitleInput
}

// NewEditor returns an idle editor.
func NewEditor() Editor {
	return Editor{input: molecules.NewTitleInput("task title")}
}

// State returns the current edit state.
func (e Editor) State() EditState {
	return e.state
}

// Editing reports whether task id is being edited.
func (e Editor) Editing(id int64) bool {
	return e.state == EditEditing && e.id == id
}

// ID returns the task under edit, or 0 when idle.
func (e Editor) ID() int64 {
	if e.state != EditEditing {
		return 0
	}
	return e.id
}

// Buffer returns the pending title.
func (e Editor) Buffer() string {
	return e.input.Value()
}

// Begin moves to Editing with the task's current title in the buffer.
// Starting an edit while another is open replaces it.
func (e *Editor) Begin(t tasks.Task) tea.Cmd {
	e.state = EditEditing
	e.id = t.ID
	e.input.SetValue(t.Title)
	return e.input.Focus()
}

// Cancel returns to Idle and discards the buffer.
func (e *Editor) Cancel() {
	e.state = EditIdle
	e.id = 0
	e.input.Reset()
	e.input.Blur()
}

// Update feeds a key to the buffer. On a non-blank Enter it returns to Idle
// and reports the title to save; on Esc it cancels.
func (e *Editor) Update(msg tea.Msg) (save *Save, cmd tea.Cmd) {
	if e.state != EditEditing {
		return nil, nil
	}

	var action molecules.Action
	e.input, action, cmd = e.input.Update(msg)
	switch action {
	case molecules.ActionSubmit:
		save = &Save{ID: e.id, Title: e.input.Value()}
		e.Cancel()
	case molecules.ActionCancel:
		e.Cancel()
	}
	return save, cmd
}

// View renders the edit buffer.
func (e Editor) View() string {
	return e.input.View()
}

// Save is a confirmed rename.
type Save struct {
	ID    int64
	Title string
}
