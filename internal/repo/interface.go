package repo

import (
	"context"
	"errors"
	"time"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
)

var ErrorNotFound = errors.New("not found")

// MutateFunc edits a task in place. Returning an error aborts the update and
// leaves the stored record untouched.
type MutateFunc func(t *model.Task) error

// TaskRepository определяет интерфейс для работы с задачами.
// Soft-deleted tasks are invisible to every method: Get, Update and
// SoftDelete report ErrorNotFound for them and List skips them.
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	// List returns matching tasks in insertion order.
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	// Update runs fn and stores the result atomically with respect to other
	// writers of the same id.
	Update(ctx context.Context, id string, fn MutateFunc) (model.Task, error)
	SoftDelete(ctx context.Context, id string, at time.Time) (model.Task, error)
}
