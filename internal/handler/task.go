package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hiroki-koketsu/go-todo/internal/model"
	"github.com/hiroki-koketsu/go-todo/internal/service"
	"github.com/hiroki-koketsu/go-todo/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-todo/internal/handler")

var errTrailingData = errors.New("unexpected data after JSON body")

const (
	routeTasks = "/api/tasks"
	routeTask  = "/api/tasks/{id}"
)

// TaskHandler handles HTTP requests for tasks.
type TaskHandler struct {
	svc     *service.TaskService
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger, metrics *telemetry.Metrics) *TaskHandler {
	return &TaskHandler{
		svc:     svc,
		logger:  logger,
		metrics: metrics,
	}
}

// Routes returns the chi router with task routes.
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// List returns all tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.List")
	defer span.End()

	tasks, err := h.svc.List(ctx)
	if err != nil {
		h.fail(ctx, w, span, http.MethodGet, routeTasks, start, err)
		return
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	h.logger.InfoContext(ctx, "tasks listed", slog.Int("count", len(tasks)))

	h.respondJSON(w, http.StatusOK, tasks)
	h.recordMetrics(ctx, http.MethodGet, routeTasks, http.StatusOK, start)
}

// Create adds a new task.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.Create")
	defer span.End()

	var req model.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		h.recordMetrics(ctx, http.MethodPost, routeTasks, http.StatusBadRequest, start)
		return
	}

	task, err := h.svc.Create(ctx, &req)
	if err != nil {
		h.fail(ctx, w, span, http.MethodPost, routeTasks, start, err)
		return
	}

	span.SetAttributes(attribute.Int64("task.id", task.ID))
	h.logger.InfoContext(ctx, "task created", slog.Int64("id", task.ID))

	h.respondJSON(w, http.StatusCreated, task)
	h.recordMetrics(ctx, http.MethodPost, routeTasks, http.StatusCreated, start)
}

// GetByID returns a task by ID.
func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.GetByID",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	task, err := h.svc.Get(ctx, id)
	if err != nil {
		h.fail(ctx, w, span, http.MethodGet, routeTask, start, err)
		return
	}

	h.respondJSON(w, http.StatusOK, task)
	h.recordMetrics(ctx, http.MethodGet, routeTask, http.StatusOK, start)
}

// Update modifies an existing task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.Update",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	var req model.UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		h.recordMetrics(ctx, http.MethodPut, routeTask, http.StatusBadRequest, start)
		return
	}

	task, err := h.svc.Update(ctx, id, &req)
	if err != nil {
		h.fail(ctx, w, span, http.MethodPut, routeTask, start, err)
		return
	}

	h.logger.InfoContext(ctx, "task updated", slog.Int64("id", task.ID))

	h.respondJSON(w, http.StatusOK, task)
	h.recordMetrics(ctx, http.MethodPut, routeTask, http.StatusOK, start)
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	id := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.Delete",
		trace.WithAttributes(attribute.String("task.id", id)),
	)
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		h.fail(ctx, w, span, http.MethodDelete, routeTask, start, err)
		return
	}

	h.logger.InfoContext(ctx, "task deleted", slog.String("id", id))

	w.WriteHeader(http.StatusNoContent)
	h.recordMetrics(ctx, http.MethodDelete, routeTask, http.StatusNoContent, start)
}

// fail maps a service error to its HTTP status. Storage details are logged, never returned.
func (h *TaskHandler) fail(ctx context.Context, w http.ResponseWriter, span trace.Span, method, route string, start time.Time, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.ErrorContext(ctx, "request failed", slog.String("route", route), slog.Any("error", err))
	default:
		h.logger.WarnContext(ctx, "request rejected", slog.String("route", route), slog.Any("error", err))
	}

	h.respondError(w, status, model.Message(err))
	h.recordMetrics(ctx, method, route, status, start)
}

// decodeJSON decodes a single JSON value from the body and rejects anything after it.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailingData
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, data)
}

func (h *TaskHandler) respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Message: message})
}

func (h *TaskHandler) recordMetrics(ctx context.Context, method, route string, status int, start time.Time) {
	duration := time.Since(start).Seconds()

	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)

	h.metrics.RequestCounter.Add(ctx, 1, attrs)
	h.metrics.RequestDuration.Record(ctx, duration, attrs)
}
