package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dohr-michael/tasktrack/internal/tasks"
)

func TestEditorTransitions(t *testing.T) {
	e := NewEditor()
	assert.Equal(t, EditIdle, e.State())
	assert.Zero(t, e.ID())

	// Keys are ignored while idle.
	save, _ := e.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, save)

	e.Begin(tasks.Task{ID: 4, Title: "old"})
	assert.True(t, e.Editing(4))
	assert.False(t, e.Editing(5))
	assert.Equal(t, "old", e.Buffer())

	e.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("er")})
	assert.Equal(t, "older", e.Buffer())

	save, _ = e.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, save)
	assert.Equal(t, Save{ID: 4, Title: "older"}, *save)
	assert.Equal(t, EditIdle, e.State())
	assert.Empty(t, e.Buffer())
}

func TestEditorSwitchesTask(t *testing.T) {
	e := NewEditor()
	e.Begin(tasks.Task{ID: 1, Title: "one"})
	e.Begin(tasks.Task{ID: 2, Title: "two"})

	assert.False(t, e.Editing(1))
	assert.True(t, e.Editing(2))
	assert.Equal(t, "two", e.Buffer())
}

func TestEditorCancel(t *testing.T) {
	e := NewEditor()
	e.Begin(tasks.Task{ID: 1, Title: "one"})

	save, _ := e.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, save)
	assert.Equal(t, EditIdle, e.State())
}
