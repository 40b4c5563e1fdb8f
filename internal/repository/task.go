package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hiroki-koketsu/go-todo/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/go-todo/internal/repository")

// TaskRepository stores tasks in the tasks table.
type TaskRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a TaskRepository.
type Option func(*TaskRepository)

// WithClock overrides the clock used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(r *TaskRepository) {
		r.now = now
	}
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *gorm.DB, opts ...Option) *TaskRepository {
	r := &TaskRepository{
		db: db,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create inserts task and returns the persisted row with its id and timestamps.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.Create",
		trace.WithAttributes(attribute.String("task.title", task.Title)),
	)
	defer span.End()

	now := r.now()
	row := &model.Task{
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fail(span, model.StorageError("create task", err))
	}

	span.SetAttributes(attribute.Int64("task.id", row.ID))
	return row, nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.GetByID",
		trace.WithAttributes(attribute.Int64("task.id", id)),
	)
	defer span.End()

	task, err := find(r.db.WithContext(ctx), id)
	if err != nil {
		span.SetAttributes(attribute.Bool("task.found", false))
		if errors.Is(err, model.ErrTaskNotFound) {
			return nil, err
		}
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return task, nil
}

// List returns all tasks, newest first.
func (r *TaskRepository) List(ctx context.Context) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.List")
	defer span.End()

	tasks := make([]*model.Task, 0)
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, fail(span, model.StorageError("list tasks", err))
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// Update merges patch into the stored row and rewrites it in a single
// transaction. updated_at is always refreshed.
func (r *TaskRepository) Update(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.Update",
		trace.WithAttributes(attribute.Int64("task.id", id)),
	)
	defer span.End()

	var updated *model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := find(tx, id)
		if err != nil {
			return err
		}

		patch.Apply(task)
		task.UpdatedAt = r.now()
		if task.UpdatedAt.Before(task.CreatedAt) {
			task.UpdatedAt = task.CreatedAt
		}

		res := tx.Model(&model.Task{}).Where("id = ?", id).Updates(map[string]any{
			"title":       task.Title,
			"description": task.Description,
			"status":      task.Status,
			"updated_at":  task.UpdatedAt,
		})
		if res.Error != nil {
			return model.StorageError("update task", res.Error)
		}
		if res.RowsAffected == 0 {
			return model.ErrTaskNotFound
		}

		updated, err = find(tx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			span.SetAttributes(attribute.Bool("task.found", false))
			return nil, err
		}
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return updated, nil
}

// Delete removes a task permanently.
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "TaskRepository.Delete",
		trace.WithAttributes(attribute.Int64("task.id", id)),
	)
	defer span.End()

	res := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id)
	if res.Error != nil {
		return fail(span, model.StorageError("delete task", res.Error))
	}
	if res.RowsAffected == 0 {
		span.SetAttributes(attribute.Bool("task.found", false))
		return model.ErrTaskNotFound
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return nil
}

// Count returns the current number of tasks.
func (r *TaskRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Count(&n).Error; err != nil {
		return 0, model.StorageError("count tasks", err)
	}
	return n, nil
}

func find(db *gorm.DB, id int64) (*model.Task, error) {
	var task model.Task
	if err := db.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrTaskNotFound
		}
		return nil, model.StorageError("find task", err)
	}
	return &task, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
