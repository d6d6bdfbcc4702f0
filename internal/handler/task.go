package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/middleware"
	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
	"github.com/BuzzLyutic/taskflow-api/internal/service"
	"github.com/BuzzLyutic/taskflow-api/pkg/respond"
)

var (
	errInvalidJSON = errors.New("invalid JSON body")
	errNotObject   = errors.New("request body must be a JSON object")
	errTooLarge    = errors.New("request body too large")
)

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger.Named("handler"),
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	task, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%s", task.ID))
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := model.ParseListQuery(q.Get("page"), q.Get("limit"), q.Get("status"), q.Get("sort"), q.Get("order"))

	page, err := h.service.List(r.Context(), query)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, page)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	task, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, res)
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, stats)
}

// decodeInput keeps numbers as json.Number so the validator can tell 3 from
// 3.5, and keeps explicit nulls distinct from absent keys.
func decodeInput(r *http.Request) (service.Input, error) {
	var body bytes.Buffer
	if _, err := body.ReadFrom(r.Body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errTooLarge
		}
		return nil, errInvalidJSON
	}

	dec := json.NewDecoder(&body)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errInvalidJSON
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return service.Input(obj), nil
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errTooLarge):
		respond.Error(w, r, http.StatusRequestEntityTooLarge, respond.CodeValidationError, err.Error())
	case errors.Is(err, errInvalidJSON), errors.Is(err, errNotObject):
		respond.Error(w, r, http.StatusBadRequest, respond.CodeValidationError, err.Error())
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, respond.CodeValidationError, err.Error())
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, respond.CodeNotFound, fmt.Sprintf("Task %s not found", chi.URLParam(r, "id")))
	default:
		h.logger.Error("internal error",
			zap.String("request_id", middleware.GetReqID(r)),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respond.Error(w, r, http.StatusInternalServerError, respond.CodeInternal, "internal error")
	}
}
