package store

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"todo-api/internal/models"
)

// Filter represents optional criteria for listing tasks. Nil pointers
// mean the criterion is not applied; supplied criteria AND together.
type Filter struct {
	Completed *bool
	Priority  *models.TaskPriority
	Tag       *string
	Overdue   *bool
}

// ParseFilter builds a Filter from query parameters. The policy is
// lenient: unrecognized parameters and malformed values are ignored, so
// listing never fails on account of the query string.
func ParseFilter(values url.Values) Filter {
	var f Filter

	if v := values.Get("completed"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Completed = &b
		}
	}
	if v := values.Get("priority"); v != "" {
		p := models.TaskPriority(v)
		f.Priority = &p
	}
	if v := values.Get("tags"); v != "" {
		f.Tag = &v
	}
	if v := values.Get("overdue"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Overdue = &b
		}
	}

	return f
}

// Matches evaluates the filter against one task at the given time.
func (f Filter) Matches(t models.Task, now time.Time) bool {
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Tag != nil && !t.HasTag(*f.Tag) {
		return false
	}
	if f.Overdue != nil {
		// A task with no due date is never overdue.
		overdue := t.DueDate != nil && t.DueDate.Before(now)
		if overdue != *f.Overdue {
			return false
		}
	}
	return true
}

// TimeDependent reports whether the filter's result can change without
// any task being mutated. Such results must not be cached.
func (f Filter) TimeDependent() bool {
	return f.Overdue != nil
}

// Key returns a stable signature of the filter, usable as a cache key.
func (f Filter) Key() string {
	var parts []string
	if f.Completed != nil {
		parts = append(parts, fmt.Sprintf("completed=%t", *f.Completed))
	}
	if f.Priority != nil {
		parts = append(parts, "priority="+string(*f.Priority))
	}
	if f.Tag != nil {
		parts = append(parts, "tags="+*f.Tag)
	}
	if f.Overdue != nil {
		parts = append(parts, fmt.Sprintf("overdue=%t", *f.Overdue))
	}
	return strings.Join(parts, "&")
}
