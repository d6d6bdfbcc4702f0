package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
	"github.com/BuzzLyutic/taskflow-api/internal/repo"
	"github.com/BuzzLyutic/taskflow-api/internal/validate"
)

var (
	ErrValidation = errors.New("validation error")
)

// ValidationError carries the first rejected field. It matches ErrValidation
// with errors.Is.
type ValidationError struct {
	Field   string
	Reason  validate.Reason
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func rejected(res validate.Result) error {
	return &ValidationError{Field: res.Field, Reason: res.Reason, Message: res.Message}
}

// Input is a decoded request body. A key that is present with a nil value
// is an explicit JSON null, which is different from an absent key.
type Input map[string]any

// Notifier receives created tasks. Implementations must not block.
type Notifier interface {
	TaskCreated(ctx context.Context, t model.Task)
}

type nopNotifier struct{}

func (nopNotifier) TaskCreated(context.Context, model.Task) {}

type TaskService struct {
	repo     repo.TaskRepository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewTaskService(repo repo.TaskRepository, notifier Notifier, logger *zap.Logger) *TaskService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &TaskService{
		repo:     repo,
		notifier: notifier,
		logger:   logger.Named("tasks"),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// WithClock replaces the time source. Tests only.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

// timestamp keeps millisecond precision so every store round-trips it exactly.
func (s *TaskService) timestamp() time.Time {
	return s.now().Truncate(time.Millisecond)
}

func (s *TaskService) Create(ctx context.Context, in Input) (model.Task, error) {
	title := validate.Title(in["title"])
	if !title.Valid {
		return model.Task{}, rejected(title)
	}

	task := model.Task{
		ID:       s.newID(),
		Title:    title.Value.(string),
		Status:   model.DefaultStatus,
		Priority: model.DefaultPriority,
	}

	if v, ok := in["priority"]; ok {
		res := validate.Priority(v)
		if !res.Valid {
			return model.Task{}, rejected(res)
		}
		task.Priority = res.Value.(int)
	}

	if v, ok := in["due_date"]; ok && v != nil {
		res := validate.DueDate(v)
		if !res.Valid {
			return model.Task{}, rejected(res)
		}
		due := res.Value.(string)
		task.DueDate = &due
	}

	if v, ok := in["status"]; ok {
		res := validate.Status(v)
		if !res.Valid {
			return model.Task{}, rejected(res)
		}
		task.Status = res.Value.(model.Status)
	}

	if v, ok := in["description"]; ok {
		res := validate.Description(v)
		if !res.Valid {
			return model.Task{}, rejected(res)
		}
		// an empty description on create is stored as null
		if d := res.Value.(*string); d != nil && *d != "" {
			task.Description = d
		}
	}

	now := s.timestamp()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == model.StatusDone {
		task.ClosedAt = &now
	}

	created, err := s.repo.Create(ctx, task)
	if err != nil {
		return model.Task{}, err
	}

	s.notify(ctx, created)
	return created, nil
}

// notify never lets the side effect affect the create outcome.
func (s *TaskService) notify(ctx context.Context, t model.Task) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("notifier panicked", zap.String("task_id", t.ID), zap.Any("panic", rec))
		}
	}()
	s.notifier.TaskCreated(context.WithoutCancel(ctx), t)
}

func (s *TaskService) Get(ctx context.Context, id string) (model.Task, error) {
	return s.repo.Get(ctx, id)
}

// Update applies only the fields present in the input. The first invalid
// field aborts the whole update and nothing is written.
func (s *TaskService) Update(ctx context.Context, id string, in Input) (model.Task, error) {
	return s.repo.Update(ctx, id, func(t *model.Task) error {
		if v, ok := in["title"]; ok {
			res := validate.Title(v)
			if !res.Valid {
				return rejected(res)
			}
			t.Title = res.Value.(string)
		}

		if v, ok := in["description"]; ok {
			res := validate.Description(v)
			if !res.Valid {
				return rejected(res)
			}
			t.Description = res.Value.(*string)
		}

		if v, ok := in["priority"]; ok {
			res := validate.Priority(v)
			if !res.Valid {
				return rejected(res)
			}
			t.Priority = res.Value.(int)
		}

		if v, ok := in["due_date"]; ok {
			if v == nil {
				t.DueDate = nil
			} else {
				res := validate.DueDate(v)
				if !res.Valid {
					return rejected(res)
				}
				due := res.Value.(string)
				t.DueDate = &due
			}
		}

		now := s.timestamp()
		if now.Before(t.CreatedAt) {
			now = t.CreatedAt
		}

		if v, ok := in["status"]; ok {
			res := validate.Status(v)
			if !res.Valid {
				return rejected(res)
			}
			transition(t, res.Value.(model.Status), now)
		}

		t.UpdatedAt = now
		return nil
	})
}

// transition moves t to next. Any state may follow any other. The first
// entry into done stamps ClosedAt, and ClosedAt is never cleared or moved.
func transition(t *model.Task, next model.Status, now time.Time) {
	if next == model.StatusDone && t.Status != model.StatusDone && t.ClosedAt == nil {
		closed := now
		t.ClosedAt = &closed
	}
	t.Status = next
}

func (s *TaskService) Delete(ctx context.Context, id string) (model.DeleteResult, error) {
	t, err := s.repo.SoftDelete(ctx, id, s.timestamp())
	if err != nil {
		return model.DeleteResult{}, err
	}
	return model.DeleteResult{Deleted: true, ID: t.ID}, nil
}

var sortAccessors = map[model.SortKey]func(model.Task) int64{
	model.SortCreatedAt: func(t model.Task) int64 { return t.CreatedAt.UnixNano() },
	model.SortUpdatedAt: func(t model.Task) int64 { return t.UpdatedAt.UnixNano() },
	model.SortPriority:  func(t model.Task) int64 { return int64(t.Priority) },
}

// List filters, sorts and then paginates. Total and Pages describe the
// filtered set, not the returned page.
func (s *TaskService) List(ctx context.Context, q model.ListQuery) (model.TaskPage, error) {
	tasks, err := s.repo.List(ctx, model.TaskFilter{Status: q.Status})
	if err != nil {
		return model.TaskPage{}, err
	}

	key, ok := sortAccessors[q.Sort]
	if !ok {
		key = sortAccessors[model.SortCreatedAt]
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if q.Order == model.OrderAsc {
			return key(tasks[i]) < key(tasks[j])
		}
		return key(tasks[i]) > key(tasks[j])
	})

	limit := min(model.MaxLimit, max(1, q.Limit))
	page := max(1, q.Page)
	total := len(tasks)

	start := total
	if page-1 <= total/limit {
		start = (page - 1) * limit
	}
	end := min(total, start+limit)

	pageTasks := tasks[start:end:end]
	if pageTasks == nil {
		pageTasks = []model.Task{}
	}

	return model.TaskPage{
		Tasks: pageTasks,
		Pagination: model.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

func (s *TaskService) GetStats(ctx context.Context) (model.Stats, error) {
	tasks, err := s.repo.List(ctx, model.TaskFilter{})
	if err != nil {
		return model.Stats{}, err
	}

	stats := model.Stats{
		TotalTasks: len(tasks),
		ByStatus:   make(map[model.Status]int, len(model.Statuses)),
	}
	for _, st := range model.Statuses {
		stats.ByStatus[st] = 0
	}
	for _, t := range tasks {
		stats.ByStatus[t.Status]++
	}
	return stats, nil
}
