package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/ratelimit"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
	"github.com/BuzzLyutic/taskflow-api/internal/service"
	"github.com/BuzzLyutic/taskflow-api/pkg/respond"
)

const token = "Bearer test-token-123"

type envelope struct {
	Data  json.RawMessage    `json:"data"`
	Error *respond.ErrorBody `json:"error"`
	Meta  respond.Meta       `json:"meta"`
}

func setupRouter(t *testing.T, store repo.TaskRepository) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	svc := service.NewTaskService(store, nil, logger)
	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig(), logger)
	return NewRouter(NewTaskHandler(svc, logger), limiter, logger, 10*1024)
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", token)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decodeTask(t *testing.T, env envelope) model.Task {
	t.Helper()
	var task model.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	return task
}

func TestTaskHandler_Create(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantMsg  string
		check    func(*testing.T, *httptest.ResponseRecorder, model.Task)
	}{
		{
			name:     "defaults",
			body:     `{"title":"Write report"}`,
			wantCode: http.StatusCreated,
			check: func(t *testing.T, w *httptest.ResponseRecorder, task model.Task) {
				assert.NotEmpty(t, task.ID)
				assert.Equal(t, "Write report", task.Title)
				assert.Equal(t, model.StatusTodo, task.Status)
				assert.Equal(t, 3, task.Priority)
				assert.Nil(t, task.ClosedAt)
				assert.Nil(t, task.Description)
				assert.Equal(t, "/api/tasks/"+task.ID, w.Header().Get("Location"))
			},
		},
		{
			name:     "all fields",
			body:     `{"title":"  Ship it  ","priority":5,"due_date":"2030-05-01","status":"in_progress","description":"notes"}`,
			wantCode: http.StatusCreated,
			check: func(t *testing.T, _ *httptest.ResponseRecorder, task model.Task) {
				assert.Equal(t, "Ship it", task.Title)
				assert.Equal(t, 5, task.Priority)
				require.NotNil(t, task.DueDate)
				assert.Equal(t, "2030-05-01", *task.DueDate)
				assert.Equal(t, model.StatusInProgress, task.Status)
				require.NotNil(t, task.Description)
				assert.Equal(t, "notes", *task.Description)
			},
		},
		{
			name:     "created done is closed",
			body:     `{"title":"Already finished","status":"done"}`,
			wantCode: http.StatusCreated,
			check: func(t *testing.T, _ *httptest.ResponseRecorder, task model.Task) {
				assert.NotNil(t, task.ClosedAt)
			},
		},
		{name: "missing title", body: `{"priority":2}`, wantCode: http.StatusBadRequest, wantMsg: "title is required"},
		{name: "blank title", body: `{"title":"   "}`, wantCode: http.StatusBadRequest, wantMsg: "title must not be empty"},
		{name: "fractional priority", body: `{"title":"x","priority":3.5}`, wantCode: http.StatusBadRequest, wantMsg: "priority must be an integer"},
		{name: "priority out of range", body: `{"title":"x","priority":9}`, wantCode: http.StatusBadRequest, wantMsg: "priority must be between 1 and 5 (got 9)"},
		{name: "bad status", body: `{"title":"x","status":"archived"}`, wantCode: http.StatusBadRequest, wantMsg: "status must be one of: todo, in_progress, done (got 'archived')"},
		{name: "bad due date", body: `{"title":"x","due_date":"tomorrow"}`, wantCode: http.StatusBadRequest, wantMsg: "due_date must be a valid ISO-8601 date"},
		{name: "malformed json", body: `{"title":`, wantCode: http.StatusBadRequest, wantMsg: "invalid JSON body"},
		{name: "empty body", body: ``, wantCode: http.StatusBadRequest, wantMsg: "invalid JSON body"},
		{name: "array body", body: `[1,2]`, wantCode: http.StatusBadRequest, wantMsg: "request body must be a JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupRouter(t, repo.NewMemoryRepo())
			w, env := do(t, router, http.MethodPost, "/api/tasks", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.NotEmpty(t, env.Meta.RequestID)
			assert.NotEmpty(t, env.Meta.Timestamp)

			if tt.wantMsg != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, respond.CodeValidationError, env.Error.Code)
				assert.Equal(t, tt.wantMsg, env.Error.Message)
				assert.Equal(t, "null", string(env.Data))
				return
			}
			assert.Nil(t, env.Error)
			if tt.check != nil {
				tt.check(t, w, decodeTask(t, env))
			}
		})
	}
}

func TestTaskHandler_OversizedBody(t *testing.T) {
	router := setupRouter(t, repo.NewMemoryRepo())

	body := fmt.Sprintf(`{"title":"x","description":%q}`, strings.Repeat("a", 11*1024))
	w, env := do(t, router, http.MethodPost, "/api/tasks", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, respond.CodeValidationError, env.Error.Code)
	assert.Equal(t, "request body too large", env.Error.Message)
}

func TestTaskHandler_Lifecycle(t *testing.T) {
	router := setupRouter(t, repo.NewMemoryRepo())

	_, env := do(t, router, http.MethodPost, "/api/tasks", `{"title":"Lifecycle","due_date":"2030-01-01"}`)
	created := decodeTask(t, env)
	path := "/api/tasks/" + created.ID

	t.Run("get", func(t *testing.T) {
		w, env := do(t, router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, created.ID, decodeTask(t, env).ID)
	})

	var closedAt time.Time
	t.Run("close", func(t *testing.T) {
		w, env := do(t, router, http.MethodPatch, path, `{"status":"done"}`)
		require.Equal(t, http.StatusOK, w.Code)
		task := decodeTask(t, env)
		assert.Equal(t, model.StatusDone, task.Status)
		require.NotNil(t, task.ClosedAt)
		closedAt = *task.ClosedAt
	})

	t.Run("reopen keeps closed_at", func(t *testing.T) {
		w, env := do(t, router, http.MethodPatch, path, `{"status":"todo"}`)
		require.Equal(t, http.StatusOK, w.Code)
		task := decodeTask(t, env)
		assert.Equal(t, model.StatusTodo, task.Status)
		require.NotNil(t, task.ClosedAt)
		assert.True(t, closedAt.Equal(*task.ClosedAt))
	})

	t.Run("null due_date clears it", func(t *testing.T) {
		w, env := do(t, router, http.MethodPatch, path, `{"due_date":null}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, decodeTask(t, env).DueDate)
	})

	t.Run("invalid update writes nothing", func(t *testing.T) {
		w, env := do(t, router, http.MethodPatch, path, `{"title":"Renamed","priority":0}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, env.Error)

		_, env = do(t, router, http.MethodGet, path, "")
		assert.Equal(t, "Lifecycle", decodeTask(t, env).Title)
	})

	t.Run("delete", func(t *testing.T) {
		w, env := do(t, router, http.MethodDelete, path, "")
		require.Equal(t, http.StatusOK, w.Code)
		var ack model.DeleteResult
		require.NoError(t, json.Unmarshal(env.Data, &ack))
		assert.True(t, ack.Deleted)
		assert.Equal(t, created.ID, ack.ID)
	})

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		t.Run("deleted is invisible to "+method, func(t *testing.T) {
			w, env := do(t, router, method, path, `{"title":"ghost"}`)
			assert.Equal(t, http.StatusNotFound, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, respond.CodeNotFound, env.Error.Code)
			assert.Equal(t, fmt.Sprintf("Task %s not found", created.ID), env.Error.Message)
		})
	}
}

func TestTaskHandler_UpdateMissingBeforeValidation(t *testing.T) {
	router := setupRouter(t, repo.NewMemoryRepo())

	w, env := do(t, router, http.MethodPatch, "/api/tasks/nope", `{"priority":42}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Task nope not found", env.Error.Message)
}

func TestTaskHandler_ListAndStats(t *testing.T) {
	router := setupRouter(t, repo.NewMemoryRepo())

	statuses := []string{"todo", "in_progress", "done", "todo", "todo"}
	for i, st := range statuses {
		body := fmt.Sprintf(`{"title":"Task %d","priority":%d,"status":%q}`, i, i+1, st)
		w, _ := do(t, router, http.MethodPost, "/api/tasks", body)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	t.Run("filter and paginate", func(t *testing.T) {
		w, env := do(t, router, http.MethodGet, "/api/tasks?status=todo&limit=2&page=2&sort=priority&order=asc", "")
		require.Equal(t, http.StatusOK, w.Code)

		var page model.TaskPage
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Equal(t, model.Pagination{Page: 2, Limit: 2, Total: 3, Pages: 2}, page.Pagination)
		require.Len(t, page.Tasks, 1)
		assert.Equal(t, 5, page.Tasks[0].Priority)
	})

	t.Run("garbage params fall back", func(t *testing.T) {
		w, env := do(t, router, http.MethodGet, "/api/tasks?page=abc&limit=0&sort=bogus", "")
		require.Equal(t, http.StatusOK, w.Code)

		var page model.TaskPage
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Equal(t, 1, page.Pagination.Page)
		assert.Equal(t, 20, page.Pagination.Limit)
		assert.Len(t, page.Tasks, 5)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		_, env := do(t, router, http.MethodGet, "/api/tasks?page=99", "")
		var raw struct {
			Tasks json.RawMessage `json:"tasks"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &raw))
		assert.Equal(t, "[]", string(raw.Tasks))
	})

	t.Run("stats", func(t *testing.T) {
		w, env := do(t, router, http.MethodGet, "/api/stats", "")
		require.Equal(t, http.StatusOK, w.Code)

		var stats model.Stats
		require.NoError(t, json.Unmarshal(env.Data, &stats))
		assert.Equal(t, 5, stats.TotalTasks)
		assert.Equal(t, map[model.Status]int{
			model.StatusTodo:       3,
			model.StatusInProgress: 1,
			model.StatusDone:       1,
		}, stats.ByStatus)
	})
}

func TestRouter_RateLimit(t *testing.T) {
	router := setupRouter(t, repo.NewMemoryRepo())

	for i := 0; i < 120; i++ {
		w, _ := do(t, router, http.MethodGet, "/api/tasks", "")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w, env := do(t, router, http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, respond.CodeRateLimited, env.Error.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRouter_AuthAndHealth(t *testing.T) {
	router := setupRouter(t, repo.NewMemoryRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	router := setupRouter(t, repo.NewMemoryRepo())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(`{"title":"traced"}`))
	req.Header.Set("Authorization", token)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-42", env.Meta.RequestID)
}

type brokenRepo struct{ repo.TaskRepository }

func (brokenRepo) List(context.Context, model.TaskFilter) ([]model.Task, error) {
	return nil, errors.New("connection refused")
}

func TestTaskHandler_InternalError(t *testing.T) {
	router := setupRouter(t, brokenRepo{})

	w, env := do(t, router, http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, respond.CodeInternal, env.Error.Code)
}
