package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
)

// MemoryRepo keeps every task, deleted ones included, in process memory.
// One RWMutex guards the map, so each read-modify-write is atomic.
type MemoryRepo struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
	order []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		tasks: make(map[string]*model.Task),
	}
}

func (r *MemoryRepo) Create(_ context.Context, t model.Task) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.ID]; exists {
		return model.Task{}, fmt.Errorf("task %s already exists", t.ID)
	}
	stored := t.Clone()
	r.tasks[t.ID] = &stored
	r.order = append(r.order, t.ID)
	return stored.Clone(), nil
}

func (r *MemoryRepo) Get(_ context.Context, id string) (model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, err := r.live(id)
	if err != nil {
		return model.Task{}, err
	}
	return t.Clone(), nil
}

func (r *MemoryRepo) List(_ context.Context, filter model.TaskFilter) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]model.Task, 0, len(r.order))
	for _, id := range r.order {
		t := r.tasks[id]
		if t.IsDeleted() {
			continue
		}
		if filter.Status != nil && string(t.Status) != *filter.Status {
			continue
		}
		tasks = append(tasks, t.Clone())
	}
	return tasks, nil
}

func (r *MemoryRepo) Update(_ context.Context, id string, fn MutateFunc) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.live(id)
	if err != nil {
		return model.Task{}, err
	}
	draft := t.Clone()
	if err := fn(&draft); err != nil {
		return model.Task{}, err
	}
	draft.ID = t.ID
	*t = draft
	return draft.Clone(), nil
}

func (r *MemoryRepo) SoftDelete(_ context.Context, id string, at time.Time) (model.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.live(id)
	if err != nil {
		return model.Task{}, err
	}
	t.DeletedAt = &at
	return t.Clone(), nil
}

// Lookup returns the stored record whether or not it is soft-deleted.
// It is not part of TaskRepository and exists for inspection in tests.
func (r *MemoryRepo) Lookup(id string) (model.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return t.Clone(), true
}

func (r *MemoryRepo) live(id string) (*model.Task, error) {
	t, ok := r.tasks[id]
	if !ok || t.IsDeleted() {
		return nil, ErrorNotFound
	}
	return t, nil
}
