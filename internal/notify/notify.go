// Package notify delivers task notifications to an external channel.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
)

type Notification struct {
	TaskID    string    `json:"task_id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func TaskCreated(t model.Task, to string) Notification {
	return Notification{
		TaskID:    t.ID,
		To:        to,
		Subject:   fmt.Sprintf("New task created: %s", t.Title),
		Body:      fmt.Sprintf("Task %s has been created with priority %d.", t.ID, t.Priority),
		CreatedAt: t.CreatedAt,
	}
}

// Sink hands a notification to a transport. Send may block up to ctx's
// deadline.
type Sink interface {
	Send(ctx context.Context, n Notification) error
	Close() error
}
