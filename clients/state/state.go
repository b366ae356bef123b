// Package state holds the client-side mirror of the task list.
//
// A Store keeps the last known tasks, a single error slot and the active
// filter. Every mutation waits for the server; nothing is applied locally
// before the response arrives. When responses overlap, the one that
// resolves last wins.
package state

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/dohr-michael/tasktrack/internal/events"
	"github.com/dohr-michael/tasktrack/internal/tasks"
)

// API is the subset of the Task API client the store needs.
type API interface {
	ListTasks(ctx context.Context) ([]tasks.Task, error)
	CreateTask(ctx context.Context, t tasks.Task) (tasks.Task, error)
	UpdateTask(ctx context.Context, id int64, p tasks.Patch) (tasks.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Snapshot is an immutable view of the store. Its slices must not be modified.
type Snapshot struct {
	Version  uint64
	Tasks    []tasks.Task
	Filtered []tasks.Task
	Filter   Filter
	Error    string
}

// Remaining counts tasks not yet completed.
func (s Snapshot) Remaining() int {
	n := 0
	for _, t := range s.Tasks {
		if !t.Completed {
			n++
		}
	}
	return n
}

// Store is the observable task container.
type Store struct {
	api API

	mu       sync.RWMutex
	tasks    []tasks.Task
	filtered []tasks.Task
	filter   Filter
	err      string
	version  uint64

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// New creates an empty store backed by api.
func New(api API) *Store {
	return &Store{
		api:      api,
		tasks:    []tasks.Task{},
		filtered: []tasks.Task{},
		filter:   FilterAll,
		subs:     make(map[int]func(Snapshot)),
	}
}

// Subscribe registers fn to be called with a snapshot after every change.
// Snapshots may arrive out of order under concurrent operations; compare
// Version to discard stale ones.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
		})
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Tasks returns the full task list.
func (s *Store) Tasks() []tasks.Task {
	return s.Snapshot().Tasks
}

// FilteredTasks returns the tasks matching the active filter.
func (s *Store) FilteredTasks() []tasks.Task {
	return s.Snapshot().Filtered
}

// Filter returns the active filter.
func (s *Store) Filter() Filter {
	return s.Snapshot().Filter
}

// Error returns the error slot; empty means no error.
func (s *Store) Error() string {
	return s.Snapshot().Error
}

// LoadTasks replaces the local list with the server's.
func (s *Store) LoadTasks(ctx context.Context) error {
	list, err := s.api.ListTasks(ctx)
	if err != nil {
		s.fail("load tasks", err)
		return err
	}

	s.update(func() {
		s.tasks = append([]tasks.Task{}, list...)
		s.err = ""
	})
	return nil
}

// AddTask creates t on the server and appends the confirmed task.
func (s *Store) AddTask(ctx context.Context, t tasks.Task) (tasks.Task, error) {
	created, err := s.api.CreateTask(ctx, t)
	if err != nil {
		s.fail("add task", err)
		return tasks.Task{}, err
	}

	s.update(func() {
		s.tasks = upsert(s.tasks, created)
		s.err = ""
	})
	return created, nil
}

// UpdateTask applies p on the server and replaces the local copy with the response.
func (s *Store) UpdateTask(ctx context.Context, id int64, p tasks.Patch) (tasks.Task, error) {
	updated, err := s.api.UpdateTask(ctx, id, p)
	if err != nil {
		s.fail("update task", err)
		return tasks.Task{}, err
	}

	s.update(func() {
		s.tasks = replace(s.tasks, updated)
		s.err = ""
	})
	return updated, nil
}

// DeleteTask removes id on the server, then locally. On failure the task stays.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	if err := s.api.DeleteTask(ctx, id); err != nil {
		s.fail("delete task", err)
		return err
	}

	s.update(func() {
		s.tasks = remove(s.tasks, id)
		s.err = ""
	})
	return nil
}

// SetFilter changes the active filter without contacting the server.
func (s *Store) SetFilter(f Filter) error {
	if !f.Valid() {
		_, err := ParseFilter(string(f))
		return err
	}
	s.update(func() {
		s.filter = f
	})
	return nil
}

// ApplyEvent folds a feed event into the local list. It reports whether
// the event was a task event. The error slot is left alone.
func (s *Store) ApplyEvent(e events.Event) bool {
	switch e.Type {
	case events.EventTaskCreated:
		p, ok := events.GetTaskCreatedPayload(e)
		if !ok {
			return false
		}
		s.update(func() { s.tasks = upsert(s.tasks, p.Task) })
	case events.EventTaskUpdated:
		p, ok := events.GetTaskUpdatedPayload(e)
		if !ok {
			return false
		}
		s.update(func() { s.tasks = replace(s.tasks, p.Task) })
	case events.EventTaskDeleted:
		p, ok := events.GetTaskDeletedPayload(e)
		if !ok {
			return false
		}
		s.update(func() { s.tasks = remove(s.tasks, p.ID) })
	default:
		return false
	}
	return true
}

func (s *Store) fail(op string, err error) {
	slog.Debug("task client", "op", op, "error", err)
	s.update(func() {
		s.err = failureMessage(op, err)
	})
}

// failureMessage formats the error slot, e.g. "Failed to add task: ...".
func failureMessage(op string, err error) string {
	return "Failed to " + op + ": " + err.Error()
}

// update runs fn under the write lock, recomputes the filtered selector,
// bumps the version and notifies subscribers outside the lock.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	s.filtered = Apply(s.filter, s.tasks)
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Version:  s.version,
		Tasks:    s.tasks,
		Filtered: s.filtered,
		Filter:   s.filter,
		Error:    s.err,
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// The helpers below never modify their input: published snapshots share
// the previous slice.

func upsert(list []tasks.Task, t tasks.Task) []tasks.Task {
	if i := indexOf(list, t.ID); i >= 0 {
		return replaceAt(list, i, t)
	}
	out := make([]tasks.Task, len(list), len(list)+1)
	copy(out, list)
	return append(out, t)
}

func replace(list []tasks.Task, t tasks.Task) []tasks.Task {
	if i := indexOf(list, t.ID); i >= 0 {
		return replaceAt(list, i, t)
	}
	return list
}

func replaceAt(list []tasks.Task, i int, t tasks.Task) []tasks.Task {
	out := slices.Clone(list)
	out[i] = t
	return out
}

func remove(list []tasks.Task, id int64) []tasks.Task {
	i := indexOf(list, id)
	if i < 0 {
		return list
	}
	out := make([]tasks.Task, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func indexOf(list []tasks.Task, id int64) int {
	return slices.IndexFunc(list, func(t tasks.Task) bool { return t.ID == id })
}
