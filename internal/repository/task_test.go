package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hiroki-koketsu/go-todo/internal/database"
	"github.com/hiroki-koketsu/go-todo/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.MemoryPath, logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func newTask(title string) *model.Task {
	return &model.Task{Title: title, Status: model.StatusPending}
}

func TestTaskRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(setupTestDB(t))

	first, err := repo.Create(ctx, newTask("first"))
	require.NoError(t, err)
	second, err := repo.Create(ctx, newTask("second"))
	require.NoError(t, err)

	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)
	assert.Equal(t, "first", first.Title)
	assert.Equal(t, model.StatusPending, first.Status)
	assert.False(t, first.CreatedAt.IsZero())
	assert.True(t, first.CreatedAt.Equal(first.UpdatedAt))
}

func TestTaskRepository_IDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(setupTestDB(t))

	first, err := repo.Create(ctx, newTask("first"))
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, first.ID))

	second, err := repo.Create(ctx, newTask("second"))
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)
}

func TestTaskRepository_StatusCheckConstraint(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewTaskRepository(db)

	_, err := repo.Create(ctx, &model.Task{Title: "bad", Status: "archived"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStorage)

	var n int64
	require.NoError(t, db.Model(&model.Task{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestTaskRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(setupTestDB(t))

	created, err := repo.Create(ctx, &model.Task{Title: "read me", Description: "details", Status: model.StatusCompleted})
	require.NoError(t, err)

	t.Run("existing task", func(t *testing.T) {
		found, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "read me", found.Title)
		assert.Equal(t, "details", found.Description)
		assert.Equal(t, model.StatusCompleted, found.Status)
		assert.True(t, created.CreatedAt.Equal(found.CreatedAt))
	})

	t.Run("non-existent task", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999999)
		assert.ErrorIs(t, err, model.ErrTaskNotFound)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestTaskRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("empty database", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t))
		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})

	t.Run("newest first", func(t *testing.T) {
		repo := NewTaskRepository(setupTestDB(t), WithClock(stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))))
		for _, title := range []string{"T1", "T2", "T3"} {
			_, err := repo.Create(ctx, newTask(title))
			require.NoError(t, err)
		}

		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, "T3", tasks[0].Title)
		assert.Equal(t, "T2", tasks[1].Title)
		assert.Equal(t, "T1", tasks[2].Title)
	})

	t.Run("same timestamp falls back to id", func(t *testing.T) {
		fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		repo := NewTaskRepository(setupTestDB(t), WithClock(func() time.Time { return fixed }))
		for _, title := range []string{"T1", "T2"} {
			_, err := repo.Create(ctx, newTask(title))
			require.NoError(t, err)
		}

		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, "T2", tasks[0].Title)
		assert.Equal(t, "T1", tasks[1].Title)
	})
}

func TestTaskRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(setupTestDB(t), WithClock(stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))))

	created, err := repo.Create(ctx, &model.Task{Title: "Original", Description: "keep me", Status: model.StatusPending})
	require.NoError(t, err)

	t.Run("partial update keeps other fields", func(t *testing.T) {
		completed := model.StatusCompleted
		updated, err := repo.Update(ctx, created.ID, model.TaskPatch{Status: &completed})
		require.NoError(t, err)

		assert.Equal(t, "Original", updated.Title)
		assert.Equal(t, "keep me", updated.Description)
		assert.Equal(t, model.StatusCompleted, updated.Status)
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("empty patch still refreshes updated_at", func(t *testing.T) {
		before, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)

		updated, err := repo.Update(ctx, created.ID, model.TaskPatch{})
		require.NoError(t, err)
		assert.Equal(t, before.Title, updated.Title)
		assert.True(t, updated.UpdatedAt.After(before.UpdatedAt))
	})

	t.Run("all fields", func(t *testing.T) {
		title, desc, status := "Renamed", "", model.StatusPending
		updated, err := repo.Update(ctx, created.ID, model.TaskPatch{Title: &title, Description: &desc, Status: &status})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, "", updated.Description)
		assert.Equal(t, model.StatusPending, updated.Status)
	})

	t.Run("non-existent task", func(t *testing.T) {
		title := "x"
		_, err := repo.Update(ctx, 999999, model.TaskPatch{Title: &title})
		assert.ErrorIs(t, err, model.ErrTaskNotFound)
	})

	t.Run("clock behind created_at", func(t *testing.T) {
		back := NewTaskRepository(repo.db, WithClock(func() time.Time { return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC) }))
		updated, err := back.Update(ctx, created.ID, model.TaskPatch{})
		require.NoError(t, err)
		assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
	})
}

func TestTaskRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(setupTestDB(t))

	created, err := repo.Create(ctx, newTask("To Be Deleted"))
	require.NoError(t, err)

	t.Run("delete existing task", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, created.ID))

		_, err := repo.GetByID(ctx, created.ID)
		assert.ErrorIs(t, err, model.ErrTaskNotFound)
	})

	t.Run("delete twice", func(t *testing.T) {
		assert.ErrorIs(t, repo.Delete(ctx, created.ID), model.ErrTaskNotFound)
	})
}

func TestTaskRepository_Count(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(setupTestDB(t))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, newTask("task"))
		require.NoError(t, err)
	}

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
