package service

import (
	"context"
	"errors"
	"testing"

	"github.com/hiroki-koketsu/go-todo/internal/database"
	"github.com/hiroki-koketsu/go-todo/internal/model"
	"github.com/hiroki-koketsu/go-todo/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func newService(t *testing.T) *TaskService {
	t.Helper()

	db, err := database.Open(database.MemoryPath, logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	return NewTaskService(repository.NewTaskRepository(db))
}

func ptr[T any](v T) *T { return &v }

func TestTaskService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	created, err := svc.Create(ctx, &model.CreateTaskRequest{Title: "Buy milk"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, "1")
	require.NoError(t, err)

	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, "", got.Description)
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))
}

func TestTaskService_CreateTrimsTitle(t *testing.T) {
	svc := newService(t)

	created, err := svc.Create(context.Background(), &model.CreateTaskRequest{Title: "  padded  ", Description: " kept ", Status: ptr(model.StatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, "padded", created.Title)
	assert.Equal(t, " kept ", created.Description)
	assert.Equal(t, model.StatusCompleted, created.Status)
}

func TestTaskService_CreateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  model.CreateTaskRequest
		want error
	}{
		{"missing title", model.CreateTaskRequest{}, model.ErrTitleRequired},
		{"whitespace title", model.CreateTaskRequest{Title: " \t\n"}, model.ErrTitleRequired},
		{"whitespace title with valid status", model.CreateTaskRequest{Title: "  ", Status: ptr(model.StatusCompleted), Description: "x"}, model.ErrTitleRequired},
		{"unknown status", model.CreateTaskRequest{Title: "ok", Status: ptr(model.Status("archived"))}, model.ErrInvalidStatus},
		{"explicit empty status", model.CreateTaskRequest{Title: "ok", Status: ptr(model.Status(""))}, model.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t)
			_, err := svc.Create(context.Background(), &tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, model.ErrInvalidInput)

			tasks, err := svc.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, tasks)
		})
	}
}

func TestTaskService_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	seen := make(map[int64]bool)
	for i := 0; i < 20; i++ {
		task, err := svc.Create(ctx, &model.CreateTaskRequest{Title: "task"})
		require.NoError(t, err)
		assert.False(t, seen[task.ID], "id %d reused", task.ID)
		seen[task.ID] = true
	}
}

func TestTaskService_UpdateStatusOnly(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	created, err := svc.Create(ctx, &model.CreateTaskRequest{Title: "Write report", Description: "Q3"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "1", &model.UpdateTaskRequest{Status: ptr(model.StatusCompleted)})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Write report", updated.Title)
	assert.Equal(t, "Q3", updated.Description)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func TestTaskService_UpdateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Create(ctx, &model.CreateTaskRequest{Title: "keep"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "1", &model.UpdateTaskRequest{Title: ptr("   ")})
	assert.ErrorIs(t, err, model.ErrTitleRequired)

	_, err = svc.Update(ctx, "1", &model.UpdateTaskRequest{Status: ptr(model.Status("archived"))})
	assert.ErrorIs(t, err, model.ErrInvalidStatus)

	_, err = svc.Update(ctx, "one", &model.UpdateTaskRequest{})
	assert.ErrorIs(t, err, model.ErrInvalidID)

	got, err := svc.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Title)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestTaskService_UpdateTrimsTitle(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Create(ctx, &model.CreateTaskRequest{Title: "old"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "1", &model.UpdateTaskRequest{Title: ptr("  new  ")})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
}

func TestTaskService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Get(ctx, "999999")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.Update(ctx, "999999", &model.UpdateTaskRequest{Status: ptr(model.StatusCompleted)})
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = svc.Delete(ctx, "999999")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTaskService_InvalidID(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	for _, raw := range []string{"", "abc", "1.5", "1e3", "0x10"} {
		t.Run(raw, func(t *testing.T) {
			_, err := svc.Get(ctx, raw)
			assert.ErrorIs(t, err, model.ErrInvalidInput)

			err = svc.Delete(ctx, raw)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}
}

func TestTaskService_ToggleTwiceRestoresStatus(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	created, err := svc.Create(ctx, &model.CreateTaskRequest{Title: "flip"})
	require.NoError(t, err)

	status := created.Status
	for i := 0; i < 2; i++ {
		next := status.Toggle()
		updated, err := svc.Update(ctx, "1", &model.UpdateTaskRequest{Status: &next})
		require.NoError(t, err)
		status = updated.Status
	}
	assert.Equal(t, created.Status, status)
}

func TestTaskService_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	t1, err := svc.Create(ctx, &model.CreateTaskRequest{Title: "T1"})
	require.NoError(t, err)
	t2, err := svc.Create(ctx, &model.CreateTaskRequest{Title: "T2"})
	require.NoError(t, err)

	tasks, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, t2.ID, tasks[0].ID)
	assert.Equal(t, t1.ID, tasks[1].ID)
}

func TestTaskService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Create(ctx, &model.CreateTaskRequest{Title: "gone soon"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "1"))

	_, err = svc.Get(ctx, "1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

type failingStore struct{ Store }

func (failingStore) List(context.Context) ([]*model.Task, error) {
	return nil, model.StorageError("list tasks", errors.New("disk I/O error"))
}

func TestTaskService_StorageFailure(t *testing.T) {
	svc := NewTaskService(failingStore{})

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, model.ErrStorage)
	assert.Equal(t, "Internal Server Error", model.Message(err))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	id, err = ParseID("-3")
	require.NoError(t, err)
	assert.EqualValues(t, -3, id)

	_, err = ParseID("forty-two")
	assert.ErrorIs(t, err, model.ErrInvalidID)
}
