package model

import "time"

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists every lifecycle state in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

const (
	DefaultPriority = 3
	DefaultStatus   = StatusTodo
)

// Task is the stored record. DeletedAt never leaves the service boundary.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      Status     `json:"status"`
	Priority    int        `json:"priority"`
	DueDate     *string    `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at"`
	DeletedAt   *time.Time `json:"-"`
}

func (t Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	c := t
	c.Description = clonePtr(t.Description)
	c.DueDate = clonePtr(t.DueDate)
	c.ClosedAt = clonePtr(t.ClosedAt)
	c.DeletedAt = clonePtr(t.DeletedAt)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// TaskFilter is passed to the store. Status is free-form on purpose:
// an unknown value matches nothing.
type TaskFilter struct {
	Status *string
}

type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

type Stats struct {
	TotalTasks int            `json:"total_tasks"`
	ByStatus   map[Status]int `json:"by_status"`
}
