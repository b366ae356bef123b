package tui

import (
	wsclient "github.com/dohr-michael/tasktrack/clients/ws"
	"github.com/dohr-michael/tasktrack/clients/state"
	"github.com/dohr-michael/tasktrack/internal/events"
)

// SnapshotMsg carries a client state snapshot published by the store.
type SnapshotMsg struct {
	Snapshot state.Snapshot
}

// TaskEventMsg carries a task event received from the feed.
type TaskEventMsg struct {
	Event events.Event
}

// FeedConnectedMsg signals a successful feed connection (or reconnection).
type FeedConnectedMsg struct {
	Client *wsclient.Client
}

// FeedDisconnectedMsg signals a lost or failed feed connection.
type FeedDisconnectedMsg struct {
	Err error
}

// opDoneMsg reports the end of a store operation. The outcome itself is
// already recorded in the store's error slot.
type opDoneMsg struct {
	op  string
	err error
}

// feedRetryMsg triggers a reconnection attempt.
type feedRetryMsg struct{}

// feedIdleMsg is returned by the feed listener for frames that carry no task event.
type feedIdleMsg struct{}
