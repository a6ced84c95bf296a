package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"todo-api/internal/cache"
	"todo-api/internal/models"
	"todo-api/internal/realtime"
	"todo-api/internal/store"

	"github.com/gin-gonic/gin"
)

// TaskHandler serves the task endpoints. It owns the references to the
// shared store, the list-response cache and the realtime hub; nothing in
// this package is package-level state.
type TaskHandler struct {
	store    *store.TaskStore
	cache    cache.Cache[string, []models.Task]
	cacheTTL time.Duration
	hub      *realtime.Hub
}

// NewTaskHandler wires a handler to its collaborators. A ttl of zero
// disables the list cache; a nil hub disables event broadcasting.
func NewTaskHandler(s *store.TaskStore, hub *realtime.Hub, ttl time.Duration) *TaskHandler {
	return &TaskHandler{
		store:    s,
		cache:    cache.NewSimpleCache[string, []models.Task](),
		cacheTTL: ttl,
		hub:      hub,
	}
}

// TaskRequest represents the request payload for creating, replacing or
// patching a task. Pointer fields distinguish "absent" from a zero value.
type TaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Completed   *bool                `json:"completed"`
	Priority    *models.TaskPriority `json:"priority"`
	DueDate     *string              `json:"dueDate"`
	Tags        *[]string            `json:"tags"`
	Locked      *bool                `json:"locked"`
}

// SetLockRequest represents a minimal request to change only the lock flag
type SetLockRequest struct {
	Locked *bool `json:"locked" binding:"required"`
}

func parseDateFlexible(dateStr string) (time.Time, bool) {
	if dateStr == "" {
		return time.Time{}, false
	}
	layouts := []string{
		"2006-01-02",  // ISO date
		time.RFC3339,  // full RFC3339
		"2 Jan 2006",  // e.g., 30 Oct 2025
		"02 Jan 2006", // zero-padded day
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// toInput converts the JSON payload into the store's input type. A
// dueDate that is present but unparseable is reported like any other
// decode failure.
func (r TaskRequest) toInput() (store.TaskInput, error) {
	in := store.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		Priority:    r.Priority,
		Tags:        r.Tags,
		Locked:      r.Locked,
	}
	if r.DueDate != nil && *r.DueDate != "" {
		due, ok := parseDateFlexible(*r.DueDate)
		if !ok {
			return store.TaskInput{}, errors.New("dueDate must be an ISO date or RFC3339 timestamp")
		}
		in.DueDate = &due
	}
	return in, nil
}

// writeStoreError maps a store failure onto the HTTP boundary:
// NotFound -> 404, Locked -> 403, ValidationError -> 400.
func writeStoreError(c *gin.Context, err error) {
	var ve *store.ValidationError
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Task not found",
		})
	case errors.Is(err, store.ErrLocked):
		c.JSON(http.StatusForbidden, gin.H{
			"error": store.LockedMessage,
		})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  ve.Error(),
			"fields": ve.Fields,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to process task",
		})
	}
}

// broadcast publishes a task lifecycle event to all websocket clients.
func (h *TaskHandler) broadcast(eventType string, taskID int64) {
	if h.hub == nil {
		return
	}
	evt := map[string]any{
		"type":    eventType,
		"taskId":  taskID,
		"version": 1,
	}
	if bytes, err := json.Marshal(evt); err == nil {
		h.hub.Broadcast(bytes)
	}
}

// invalidate drops every cached list; any mutation can change any result.
func (h *TaskHandler) invalidate() {
	h.cache.Clear()
}

func parseTaskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Task ID must be an integer",
		})
		return 0, false
	}
	return id, true
}

/*
*
ListTasks handles GET /api/tasks
Returns all tasks matching the optional filter criteria, ascending by id.
Query params: completed, priority, tags, overdue; unknown or malformed
criteria are ignored rather than rejected.
*/
func (h *TaskHandler) ListTasks(c *gin.Context) {
	filter := store.ParseFilter(c.Request.URL.Query())

	// Overdue results drift with the clock, so only time-independent
	// queries go through the cache.
	cacheable := h.cacheTTL > 0 && !filter.TimeDependent()
	if cacheable {
		if tasks, ok := h.cache.Get(filter.Key()); ok {
			c.JSON(http.StatusOK, tasks)
			return
		}
	}

	tasks := h.store.List(filter)
	if cacheable {
		h.cache.Set(filter.Key(), tasks, h.cacheTTL)
	}

	c.JSON(http.StatusOK, tasks)
}

/*
*
CreateTask handles POST /api/tasks
Creates a new task; title is required, priority defaults to medium.
*/
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	task, err := h.store.Create(input)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	h.invalidate()
	h.broadcast("task_created", task.ID)

	c.JSON(http.StatusCreated, task)
}

// GetTaskByID handles GET /api/tasks/:id
// Returns a single task
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := h.store.Get(id)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// ReplaceTask handles PUT /api/tasks/:id
// Overwrites every field except id and createdAt; the payload must be
// complete. A locked task rejects the replace before any validation.
func (h *TaskHandler) ReplaceTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	task, err := h.store.Replace(id, input)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	h.invalidate()
	h.broadcast("task_updated", task.ID)

	c.JSON(http.StatusOK, task)
}

// PatchTask handles PATCH /api/tasks/:id
// Updates only the fields present in the payload.
func (h *TaskHandler) PatchTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	input, err := req.toInput()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	task, err := h.store.Patch(id, input)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	h.invalidate()
	h.broadcast("task_updated", task.ID)

	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/:id
// Removes a task permanently; its id is never reissued.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	if err := h.store.Delete(id); err != nil {
		writeStoreError(c, err)
		return
	}

	h.invalidate()
	h.broadcast("task_deleted", id)

	c.Status(http.StatusNoContent)
}

// SetTaskLock handles PATCH /api/tasks/:id/lock
// Flips only the locked flag. This endpoint bypasses the lock guard and
// is the only way to unlock a task.
func (h *TaskHandler) SetTaskLock(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	var req SetLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	task, err := h.store.SetLocked(id, *req.Locked)
	if err != nil {
		writeStoreError(c, err)
		return
	}

	h.invalidate()
	h.broadcast("task_lock_changed", task.ID)

	c.JSON(http.StatusOK, task)
}
