package events

import (
	"testing"

	"github.com/dohr-michael/tasktrack/internal/tasks"
)

func TestTypedEvent_TaskCreated(t *testing.T) {
	payload := TaskCreatedPayload{Task: tasks.Task{ID: 7, Title: "Buy milk"}}
	evt := NewTypedEvent(SourceAPI, payload)

	if evt.Type != EventTaskCreated {
		t.Fatalf("expected type %q, got %q", EventTaskCreated, evt.Type)
	}
	if evt.ID == "" {
		t.Fatal("expected event id")
	}
	got, ok := GetTaskCreatedPayload(evt)
	if !ok {
		t.Fatal("GetTaskCreatedPayload returned false")
	}
	if got.Task != payload.Task {
		t.Fatalf("expected %+v, got %+v", payload.Task, got.Task)
	}
}

func TestTypedEvent_TaskUpdated(t *testing.T) {
	payload := TaskUpdatedPayload{Task: tasks.Task{ID: 7, Title: "Buy milk", Completed: true}}
	evt := NewTypedEvent(SourceAPI, payload)

	got, ok := GetTaskUpdatedPayload(evt)
	if !ok {
		t.Fatal("GetTaskUpdatedPayload returned false")
	}
	if !got.Task.Completed {
		t.Fatal("expected completed=true")
	}
}

func TestTypedEvent_TaskDeleted(t *testing.T) {
	evt := NewTypedEvent(SourceAPI, TaskDeletedPayload{ID: 9})

	got, ok := GetTaskDeletedPayload(evt)
	if !ok {
		t.Fatal("GetTaskDeletedPayload returned false")
	}
	if got.ID != 9 {
		t.Fatalf("expected id 9, got %d", got.ID)
	}
}

func TestExtractPayload_TypeMismatch(t *testing.T) {
	evt := NewTypedEvent(SourceAPI, TaskDeletedPayload{ID: 9})
	if _, ok := GetTaskCreatedPayload(evt); ok {
		t.Fatal("expected mismatch to fail")
	}
}
