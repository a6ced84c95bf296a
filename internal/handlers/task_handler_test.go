package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"todo-api/internal/models"
	"todo-api/internal/realtime"
	"todo-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter(ttl time.Duration) (*gin.Engine, *store.TaskStore) {
	gin.SetMode(gin.TestMode)
	s := store.New()
	h := NewTaskHandler(s, realtime.NewHub(), ttl)

	r := gin.New()
	r.GET("/api/tasks", h.ListTasks)
	r.GET("/api/tasks/:id", h.GetTaskByID)
	r.POST("/api/tasks", h.CreateTask)
	r.PUT("/api/tasks/:id", h.ReplaceTask)
	r.PATCH("/api/tasks/:id", h.PatchTask)
	r.PATCH("/api/tasks/:id/lock", h.SetTaskLock)
	r.DELETE("/api/tasks/:id", h.DeleteTask)
	return r, s
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTask_Success(t *testing.T) {
	r, _ := newTestRouter(0)

	w := doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{
		"title":    "Buy milk",
		"priority": "high",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, int64(1), created.ID)
	require.Equal(t, "Buy milk", created.Title)
	require.False(t, created.Completed)
	require.Equal(t, models.PriorityHigh, created.Priority)
	require.False(t, created.CreatedAt.IsZero())
}

func TestCreateTask_MissingTitle(t *testing.T) {
	r, _ := newTestRouter(0)

	w := doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error  string   `json:"error"`
		Fields []string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Fields, "title")
}

func TestCreateTask_BadDueDate(t *testing.T) {
	r, _ := newTestRouter(0)

	w := doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{
		"title":   "x",
		"dueDate": "not-a-date",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTask_NotFound(t *testing.T) {
	r, _ := newTestRouter(0)

	w := doJSON(t, r, http.MethodGet, "/api/tasks/9999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTask_NonNumericID(t *testing.T) {
	r, _ := newTestRouter(0)

	w := doJSON(t, r, http.MethodGet, "/api/tasks/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReplaceTask_FullPayload(t *testing.T) {
	r, _ := newTestRouter(0)

	w := doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{"title": "before"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/tasks/1", map[string]any{
		"title":       "after",
		"description": "replaced",
		"completed":   true,
		"priority":    "low",
		"dueDate":     "2030-01-01",
		"tags":        []string{"work"},
		"locked":      false,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var replaced models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &replaced))
	require.Equal(t, int64(1), replaced.ID)
	require.Equal(t, "after", replaced.Title)
	require.True(t, replaced.Completed)
	require.Equal(t, models.PriorityLow, replaced.Priority)
	require.NotNil(t, replaced.DueDate)
	require.Equal(t, []string{"work"}, replaced.Tags)
}

func TestReplaceTask_PartialPayloadRejected(t *testing.T) {
	r, _ := newTestRouter(0)

	doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{"title": "a"})

	w := doJSON(t, r, http.MethodPut, "/api/tasks/1", map[string]any{"title": "b"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Fields []string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Fields, "completed")
}

func TestPatchTask_LockedTask(t *testing.T) {
	r, _ := newTestRouter(0)

	w := doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{
		"title":  "Do not touch",
		"locked": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/api/tasks/1", map[string]any{"completed": true})
	require.Equal(t, http.StatusForbidden, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "This task is locked and cannot be modified.", resp.Error)
}

func TestLockedTask_ReportsLockedEvenForInvalidPayload(t *testing.T) {
	r, _ := newTestRouter(0)

	doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{
		"title":  "locked",
		"locked": true,
	})

	// An empty title would normally be a validation failure; the lock
	// check must win.
	w := doJSON(t, r, http.MethodPut, "/api/tasks/1", map[string]any{"title": ""})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/tasks/1", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestLockEndpoint_UnlocksTask(t *testing.T) {
	r, _ := newTestRouter(0)

	doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{
		"title":  "locked",
		"locked": true,
	})

	// Unlocking through PATCH /api/tasks/:id is rejected...
	w := doJSON(t, r, http.MethodPatch, "/api/tasks/1", map[string]any{"locked": false})
	require.Equal(t, http.StatusForbidden, w.Code)

	// ...but the dedicated lock endpoint bypasses the guard.
	w = doJSON(t, r, http.MethodPatch, "/api/tasks/1/lock", map[string]any{"locked": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/api/tasks/1", map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteTask(t *testing.T) {
	r, _ := newTestRouter(0)

	doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{"title": "a"})

	w := doJSON(t, r, http.MethodDelete, "/api/tasks/1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Body.Bytes())

	w = doJSON(t, r, http.MethodGet, "/api/tasks/1", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/tasks/9999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTasks_Filters(t *testing.T) {
	r, _ := newTestRouter(0)

	doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{
		"title":    "open high",
		"priority": "high",
	})
	doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{
		"title":     "done high",
		"priority":  "high",
		"completed": true,
	})
	doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{
		"title":    "open low",
		"priority": "low",
		"tags":     []string{"work"},
	})

	w := doJSON(t, r, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all, 3)

	w = doJSON(t, r, http.MethodGet, "/api/tasks?completed=false&priority=high", nil)
	var filtered []models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filtered))
	require.Len(t, filtered, 1)
	require.Equal(t, "open high", filtered[0].Title)

	w = doJSON(t, r, http.MethodGet, "/api/tasks?tags=work", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filtered))
	require.Len(t, filtered, 1)
	require.Equal(t, "open low", filtered[0].Title)
}

func TestListTasks_Overdue(t *testing.T) {
	r, _ := newTestRouter(0)

	past := time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
	future := time.Now().Add(24 * time.Hour).Format(time.RFC3339)

	doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{
		"title":   "past due",
		"dueDate": past,
	})
	doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{
		"title":   "future due",
		"dueDate": future,
	})
	doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{
		"title": "no due date",
	})

	w := doJSON(t, r, http.MethodGet, "/api/tasks?overdue=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var overdue []models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &overdue))
	require.Len(t, overdue, 1)
	require.Equal(t, "past due", overdue[0].Title)
}

func TestListTasks_CacheInvalidatedOnMutation(t *testing.T) {
	r, _ := newTestRouter(time.Minute)

	doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{"title": "a"})

	w := doJSON(t, r, http.MethodGet, "/api/tasks", nil)
	var tasks []models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)

	// A mutation must clear the cached list.
	doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{"title": "b"})

	w = doJSON(t, r, http.MethodGet, "/api/tasks", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	require.Len(t, tasks, 2)
}

func TestTaskIDsNeverReusedAcrossHTTP(t *testing.T) {
	r, _ := newTestRouter(0)

	for i := 0; i < 3; i++ {
		w := doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{
			"title": fmt.Sprintf("t%d", i),
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, http.MethodDelete, "/api/tasks/3", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/tasks", map[string]any{"title": "next"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, int64(4), created.ID)
}
