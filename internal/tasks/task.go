// Package tasks holds the task record and its authoritative store.
package tasks

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a task id does not exist.
var ErrNotFound = errors.New("task not found")

// Task is the single domain record.
// ID is zero on client-constructed instances that have not been persisted yet.
type Task struct {
	ID        int64  `json:"id,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Persisted reports whether the task carries a server-assigned id.
func (t Task) Persisted() bool {
	return t.ID > 0
}

// Draft holds the fields accepted on creation.
type Draft struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Patch holds the fields accepted on update. Nil fields are left untouched.
type Patch struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Completed == nil
}

// Apply returns t with the patch merged in.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// SetTitle returns a patch that only changes the title.
func SetTitle(title string) Patch {
	return Patch{Title: &title}
}

// SetCompleted returns a patch that only changes the completion flag.
func SetCompleted(completed bool) Patch {
	return Patch{Completed: &completed}
}

const msgBlank = "can't be blank"

// ValidationError maps field names to their error messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		for _, msg := range e.Fields[name] {
			parts = append(parts, fmt.Sprintf("%s %s", titleCase(name), msg))
		}
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Add records a message for a field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks the invariants of a task about to be persisted.
func Validate(t Task) error {
	var ve ValidationError
	if strings.TrimSpace(t.Title) == "" {
		ve.Add("title", msgBlank)
	}
	if len(ve.Fields) > 0 {
		return &ve
	}
	return nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
