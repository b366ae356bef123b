package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	wsclient "github.com/dohr-michael/tasktrack/clients/ws"
	"github.com/dohr-michael/tasktrack/internal/events"
	ws "github.com/dohr-michael/tasktrack/internal/gateway/ws"
)

// Project converts a feed Frame into a typed tea.Msg.
// Returns nil for frames that don't map to a TUI message.
func Project(frame ws.Frame) tea.Msg {
	if frame.Event == "" {
		return nil
	}

	switch events.EventType(frame.Event) {
	case events.EventTaskCreated, events.EventTaskUpdated, events.EventTaskDeleted:
		evt, err := wsclient.TaskEvent(frame)
		if err != nil {
			return nil
		}
		return TaskEventMsg{Event: evt}
	default:
		return nil
	}
}
