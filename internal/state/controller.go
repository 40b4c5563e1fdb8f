// Package state keeps an in-memory mirror of the task list for a front end.
package state

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/hiroki-koketsu/go-todo/internal/model"
)

// ErrTaskNotFound is returned by ToggleStatus when the id is not in the mirror.
var ErrTaskNotFound = errors.New("Task not found")

// ErrEmptyResponse is returned when the API answers a mutation without a task.
var ErrEmptyResponse = errors.New("empty response from server")

// API is the subset of the task client the controller drives.
type API interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, req model.CreateTaskRequest) (*model.Task, error)
	Update(ctx context.Context, id int64, req model.UpdateTaskRequest) (*model.Task, error)
	Delete(ctx context.Context, id int64) error
	ToggleStatus(ctx context.Context, id int64, current model.Status) (*model.Task, error)
}

// Controller mirrors the server's task list and tracks loading and error state.
// Successful mutations patch the mirror locally instead of refetching.
type Controller struct {
	api API

	mu       sync.RWMutex
	tasks    []model.Task
	inflight int
	errMsg   string
}

// NewController creates a Controller with an empty mirror. Call Refresh to load it.
func NewController(api API) *Controller {
	return &Controller{api: api, tasks: []model.Task{}}
}

// Tasks returns a copy of the mirror.
func (c *Controller) Tasks() []model.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.tasks)
}

// Loading reports whether an operation is in flight.
func (c *Controller) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inflight > 0
}

// Err returns the message of the last failed operation, or "".
func (c *Controller) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errMsg
}

// Refresh replaces the mirror with the server's list.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.run(func() error {
		tasks, err := c.api.List(ctx)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.tasks = slices.Clone(tasks)
		if c.tasks == nil {
			c.tasks = []model.Task{}
		}
		c.mu.Unlock()
		return nil
	})
}

// Create creates a task and prepends it to the mirror.
func (c *Controller) Create(ctx context.Context, req model.CreateTaskRequest) (*model.Task, error) {
	var created *model.Task
	err := c.run(func() error {
		task, err := c.api.Create(ctx, req)
		if err != nil {
			return err
		}
		if task == nil {
			return ErrEmptyResponse
		}
		c.mu.Lock()
		c.tasks = append([]model.Task{*task}, c.tasks...)
		c.mu.Unlock()
		created = task
		return nil
	})
	return created, err
}

// Update updates a task and replaces it in the mirror.
func (c *Controller) Update(ctx context.Context, id int64, req model.UpdateTaskRequest) (*model.Task, error) {
	var updated *model.Task
	err := c.run(func() error {
		task, err := c.api.Update(ctx, id, req)
		if err != nil {
			return err
		}
		if task == nil {
			return ErrEmptyResponse
		}
		c.replace(*task)
		updated = task
		return nil
	})
	return updated, err
}

// ToggleStatus flips the status of a mirrored task.
func (c *Controller) ToggleStatus(ctx context.Context, id int64) (*model.Task, error) {
	var updated *model.Task
	err := c.run(func() error {
		current, ok := c.find(id)
		if !ok {
			return ErrTaskNotFound
		}
		task, err := c.api.ToggleStatus(ctx, id, current.Status)
		if err != nil {
			return err
		}
		if task == nil {
			return ErrEmptyResponse
		}
		c.replace(*task)
		updated = task
		return nil
	})
	return updated, err
}

// Delete deletes a task and removes it from the mirror.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	return c.run(func() error {
		if err := c.api.Delete(ctx, id); err != nil {
			return err
		}
		c.mu.Lock()
		c.tasks = slices.DeleteFunc(c.tasks, func(t model.Task) bool { return t.ID == id })
		c.mu.Unlock()
		return nil
	})
}

// run brackets op with the loading counter and records its failure. The
// counter is released even if op panics.
func (c *Controller) run(op func() error) (err error) {
	c.mu.Lock()
	c.inflight++
	c.errMsg = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.inflight--
		if r := recover(); r != nil {
			c.errMsg = "Unexpected error"
			panic(r)
		}
		if err != nil {
			c.errMsg = err.Error()
			if c.errMsg == "" {
				c.errMsg = "Unexpected error"
			}
		}
	}()

	return op()
}

func (c *Controller) find(id int64) (model.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func (c *Controller) replace(task model.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.tasks {
		if c.tasks[i].ID == task.ID {
			c.tasks[i] = task
		}
	}
}
