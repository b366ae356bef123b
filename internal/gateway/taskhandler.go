package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dohr-michael/tasktrack/internal/events"
	"github.com/dohr-michael/tasktrack/internal/tasks"
)

const (
	msgTaskNotFound  = "Task not found"
	msgMissingTask   = "param is missing or the value is empty: task"
	msgInvalidJSON   = "invalid JSON body"
	msgInternalError = "internal server error"
)

const (
	// maxBodyBytes caps request bodies on task endpoints.
	maxBodyBytes = 1 << 20
	// publishTimeout bounds the wait for bus capacity after a mutation.
	publishTimeout = 2 * time.Second
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgTaskNotFound)
		return
	}

	task, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	p, status, msg := decodeTaskParams(w, r)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	draft := tasks.Draft{}
	if p.Title != nil {
		draft.Title = *p.Title
	}
	if p.Completed != nil {
		draft.Completed = *p.Completed
	}

	task, err := s.store.Create(r.Context(), draft)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.publish(r, events.TaskCreatedPayload{Task: task})
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgTaskNotFound)
		return
	}

	p, status, msg := decodeTaskParams(w, r)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	task, err := s.store.Update(r.Context(), id, p)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.publish(r, events.TaskUpdatedPayload{Task: task})
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(r)
	if !ok {
		writeError(w, http.StatusNotFound, msgTaskNotFound)
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.publish(r, events.TaskDeletedPayload{ID: id})
	w.WriteHeader(http.StatusNoContent)
}

// publish emits a task event once the mutation is committed. It waits for
// bus capacity, bounded by publishTimeout, even if the caller went away.
func (s *Server) publish(r *http.Request, payload events.EventPayload) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), publishTimeout)
	defer cancel()
	if err := s.bus.Publish(ctx, events.NewTypedEvent(events.SourceAPI, payload)); err != nil {
		slog.Warn("task event dropped", "event", payload.EventType(), "error", err)
	}
}

// writeStoreError maps store errors to HTTP responses.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *tasks.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, ve.Fields)
	case errors.Is(err, tasks.ErrNotFound):
		writeError(w, http.StatusNotFound, msgTaskNotFound)
	default:
		slog.Error("task store", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternalError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// taskID parses the {id} URL parameter. Anything but a positive integer
// is reported as not found.
func taskID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// decodeTaskParams reads the nested "task" object and keeps only title and
// completed. A non-zero status means the request must be rejected with msg.
func decodeTaskParams(w http.ResponseWriter, r *http.Request) (tasks.Patch, int, string) {
	var body map[string]json.RawMessage
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return tasks.Patch{}, http.StatusBadRequest, msgInvalidJSON
	}

	var fields map[string]json.RawMessage
	raw := bytes.TrimSpace(body["task"])
	if len(raw) == 0 || raw[0] != '{' {
		return tasks.Patch{}, http.StatusBadRequest, msgMissingTask
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return tasks.Patch{}, http.StatusBadRequest, msgInvalidJSON
	}
	if len(fields) == 0 {
		return tasks.Patch{}, http.StatusBadRequest, msgMissingTask
	}

	var p tasks.Patch
	if v, ok := fields["title"]; ok {
		if title, ok := castString(v); ok {
			p.Title = &title
		}
	}
	if v, ok := fields["completed"]; ok {
		if completed, ok := castBool(v); ok {
			p.Completed = &completed
		}
	}
	return p, 0, ""
}

// castString accepts JSON strings and scalars. null becomes the empty
// string so it fails validation; objects and arrays are dropped.
func castString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 'n':
		return "", true
	case '{', '[':
		return "", false
	default:
		return string(raw), true
	}
}

// castBool accepts booleans, numbers and the usual form strings.
// null, "" and non-scalars are dropped, leaving the field untouched.
func castBool(raw json.RawMessage) (bool, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false, false
	}

	var s string
	switch raw[0] {
	case 'n', '{', '[':
		return false, false
	case '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return false, false
		}
	default:
		s = string(raw)
	}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return false, false
	case "false", "f", "0", "off":
		return false, true
	default:
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n != 0, true
		}
		return true, true
	}
}
