package state

import (
	"fmt"

	"github.com/dohr-michael/tasktrack/internal/tasks"
)

// Filter is a client-side view predicate.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterCompleted Filter = "completed"
	FilterPending   Filter = "pending"
)

// Filters lists every filter in display order.
var Filters = []Filter{FilterAll, FilterCompleted, FilterPending}

// ParseFilter validates a filter name.
func ParseFilter(s string) (Filter, error) {
	f := Filter(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown filter %q (want all, completed or pending)", s)
	}
	return f, nil
}

// Valid reports whether f is one of the known filters.
func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterCompleted, FilterPending:
		return true
	}
	return false
}

// Match reports whether t is visible under f.
func (f Filter) Match(t tasks.Task) bool {
	switch f {
	case FilterCompleted:
		return t.Completed
	case FilterPending:
		return !t.Completed
	default:
		return true
	}
}

// Next cycles all → completed → pending → all.
func (f Filter) Next() Filter {
	for i, x := range Filters {
		if x == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

// Apply returns the tasks matching f in their original order.
func Apply(f Filter, list []tasks.Task) []tasks.Task {
	out := make([]tasks.Task, 0, len(list))
	for _, t := range list {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
