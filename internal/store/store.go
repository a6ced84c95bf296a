package store

import (
	"sort"
	"sync"
	"time"

	"todo-api/internal/models"
)

// now is a small indirection to allow test stubbing.
var now = time.Now

// TaskInput carries the fields of a create, replace or patch payload.
// Nil pointers mean the field was absent from the payload; DueDate is the
// exception, since a task may legitimately have no due date at all.
type TaskInput struct {
	Title       *string
	Description *string
	Completed   *bool
	Priority    *models.TaskPriority
	DueDate     *time.Time
	Tags        *[]string
	Locked      *bool
}

// TaskStore holds the authoritative in-memory set of tasks. A single
// mutex serializes all access so that readers always observe a
// consistent snapshot and two concurrent creates never share an id.
type TaskStore struct {
	mu     sync.Mutex
	tasks  map[int64]models.Task
	nextID int64
}

// New creates an empty TaskStore. Ids start at 1 and are never reused,
// even after deletion.
func New() *TaskStore {
	return &TaskStore{
		tasks:  make(map[int64]models.Task),
		nextID: 1,
	}
}

// cloneTask returns a copy that shares no mutable state with the stored
// record, so callers can never observe or cause a mid-mutation view.
func cloneTask(t models.Task) models.Task {
	out := t
	out.Tags = append([]string{}, t.Tags...)
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	return out
}

// isLocked is the lock guard: Replace, Patch and Delete consult it before
// validating or touching anything else.
func isLocked(t models.Task) bool {
	return t.Locked
}

// List returns every stored task matching the filter, ascending by id.
// It never fails; an empty result is valid.
func (s *TaskStore) List(f Filter) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.Matches(t, ts) {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the task with the given id, or ErrNotFound.
func (s *TaskStore) Get(id int64) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, ErrNotFound
	}
	return cloneTask(t), nil
}

// Create validates the payload, assigns the next unused id, stamps
// createdAt and inserts the new task. Absent optional fields take their
// defaults (empty description, not completed, medium priority, no tags).
func (s *TaskStore) Create(in TaskInput) (models.Task, error) {
	if err := validateInput(in, true); err != nil {
		return models.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := models.Task{
		ID:        s.nextID,
		Title:     *in.Title,
		Priority:  models.PriorityMedium,
		CreatedAt: now(),
		Tags:      []string{},
	}
	s.nextID++

	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}
	if in.Tags != nil {
		t.Tags = models.NormalizeTags(*in.Tags)
	}
	if in.Locked != nil {
		t.Locked = *in.Locked
	}

	s.tasks[t.ID] = t
	return cloneTask(t), nil
}

// Replace overwrites every field of an existing task except id and
// createdAt. The payload must supply all fields; a partial payload is an
// incomplete replace and fails validation. The lock check runs before
// any validation, so a locked task always reports ErrLocked.
func (s *TaskStore) Replace(id int64, in TaskInput) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[id]
	if !ok {
		return models.Task{}, ErrNotFound
	}
	if isLocked(existing) {
		return models.Task{}, ErrLocked
	}

	if missing := missingFields(in); len(missing) > 0 {
		return models.Task{}, &ValidationError{Fields: missing}
	}
	if err := validateInput(in, true); err != nil {
		return models.Task{}, err
	}

	t := models.Task{
		ID:          existing.ID,
		Title:       *in.Title,
		Description: *in.Description,
		Completed:   *in.Completed,
		Priority:    *in.Priority,
		CreatedAt:   existing.CreatedAt,
		Tags:        models.NormalizeTags(*in.Tags),
		Locked:      *in.Locked,
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}

	s.tasks[id] = t
	return cloneTask(t), nil
}

// Patch overwrites only the fields present in the payload; absent fields
// keep their current value. Lock check precedes validation, as in Replace.
func (s *TaskStore) Patch(id int64, in TaskInput) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[id]
	if !ok {
		return models.Task{}, ErrNotFound
	}
	if isLocked(existing) {
		return models.Task{}, ErrLocked
	}

	if err := validateInput(in, false); err != nil {
		return models.Task{}, err
	}

	t := cloneTask(existing)
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		d := *in.DueDate
		t.DueDate = &d
	}
	if in.Tags != nil {
		t.Tags = models.NormalizeTags(*in.Tags)
	}
	if in.Locked != nil {
		t.Locked = *in.Locked
	}

	s.tasks[id] = t
	return cloneTask(t), nil
}

// Delete permanently removes a task. Its id is never reissued. Locked
// tasks cannot be deleted.
func (s *TaskStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if isLocked(existing) {
		return ErrLocked
	}

	delete(s.tasks, id)
	return nil
}

// SetLocked flips only the locked flag and deliberately bypasses the lock
// guard. This is the one sanctioned way to unlock a task; every other
// mutation on a locked task is rejected, including a patch that would
// clear the flag.
func (s *TaskStore) SetLocked(id int64, locked bool) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[id]
	if !ok {
		return models.Task{}, ErrNotFound
	}

	existing.Locked = locked
	s.tasks[id] = existing
	return cloneTask(existing), nil
}

// missingFields lists the fields a full replace payload failed to supply.
// DueDate is exempt: a task without a due date is a complete task.
func missingFields(in TaskInput) []string {
	var missing []string
	if in.Title == nil {
		missing = append(missing, "title")
	}
	if in.Description == nil {
		missing = append(missing, "description")
	}
	if in.Completed == nil {
		missing = append(missing, "completed")
	}
	if in.Priority == nil {
		missing = append(missing, "priority")
	}
	if in.Tags == nil {
		missing = append(missing, "tags")
	}
	if in.Locked == nil {
		missing = append(missing, "locked")
	}
	return missing
}

// validateInput applies the per-field rules to every field present in the
// payload. When requireTitle is set (create and replace), an absent or
// empty title is an error; for patch, only a present-but-empty title is.
func validateInput(in TaskInput, requireTitle bool) error {
	var bad []string
	if requireTitle && in.Title == nil {
		bad = append(bad, "title")
	}
	if in.Title != nil && *in.Title == "" {
		bad = append(bad, "title")
	}
	if in.Priority != nil && !in.Priority.IsValid() {
		bad = append(bad, "priority")
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}
