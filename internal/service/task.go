package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/hiroki-koketsu/go-todo/internal/model"
)

// Store is the persistence contract the service depends on.
type Store interface {
	Create(ctx context.Context, task *model.Task) (*model.Task, error)
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	List(ctx context.Context) ([]*model.Task, error)
	Update(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, id int64) error
}

// TaskService validates task requests before they reach the store.
type TaskService struct {
	store Store
}

// NewTaskService creates a TaskService backed by store.
func NewTaskService(store Store) *TaskService {
	return &TaskService{store: store}
}

// List returns every task, newest first.
func (s *TaskService) List(ctx context.Context) ([]*model.Task, error) {
	return s.store.List(ctx)
}

// Get returns the task identified by rawID.
func (s *TaskService) Get(ctx context.Context, rawID string) (*model.Task, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Create validates req and stores a new task.
func (s *TaskService) Create(ctx context.Context, req *model.CreateTaskRequest) (*model.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, req.Task())
}

// Update applies a partial update to the task identified by rawID.
func (s *TaskService) Update(ctx context.Context, rawID string, req *model.UpdateTaskRequest) (*model.Task, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.Update(ctx, id, req.Patch())
}

// Delete removes the task identified by rawID.
func (s *TaskService) Delete(ctx context.Context, rawID string) error {
	id, err := ParseID(rawID)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// ParseID parses a base-10 task id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, model.ErrInvalidID
	}
	return id, nil
}
