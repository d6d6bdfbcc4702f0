package repo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
)

//go:embed schema.sql
var Schema string

var ErrorConflict = errors.New("conflict")

const taskColumns = `id, title, description, status, priority, due_date, created_at, updated_at, closed_at, deleted_at`

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool: pool,
	}
}

// EnsureSchema creates the tasks table when it is missing. It is idempotent.
func (r *TaskRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, title, description, status, priority, due_date, created_at, updated_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+taskColumns,
		t.ID, t.Title, t.Description, string(t.Status), t.Priority, t.DueDate, t.CreatedAt, t.UpdatedAt, t.ClosedAt,
	)
	created, err := scanTask(row)
	return created, r.mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, id string) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	return r.one(scanTask(row))
}

func (r *TaskRepo) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE deleted_at IS NULL AND ($1::text IS NULL OR status = $1)
		ORDER BY seq
	`, filter.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update locks the row for the duration of fn.
func (r *TaskRepo) Update(ctx context.Context, id string, fn MutateFunc) (model.Task, error) {
	var updated model.Task
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := r.one(scanTask(tx.QueryRow(ctx, `
			SELECT `+taskColumns+`
			FROM tasks
			WHERE id = $1 AND deleted_at IS NULL
			FOR UPDATE
		`, id)))
		if err != nil {
			return err
		}

		if err := fn(&current); err != nil {
			return err
		}

		updated, err = scanTask(tx.QueryRow(ctx, `
			UPDATE tasks
			SET title = $2, description = $3, status = $4, priority = $5, due_date = $6,
			    updated_at = $7, closed_at = $8
			WHERE id = $1
			RETURNING `+taskColumns,
			id, current.Title, current.Description, string(current.Status), current.Priority, current.DueDate,
			current.UpdatedAt, current.ClosedAt,
		))
		return r.mapError(err)
	})
	return updated, err
}

func (r *TaskRepo) SoftDelete(ctx context.Context, id string, at time.Time) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET deleted_at = $2
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+taskColumns,
		id, at,
	)
	return r.one(scanTask(row))
}

func (r *TaskRepo) one(t model.Task, err error) (model.Task, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return ErrorConflict
		}
	}
	return err
}

func scanTask(row pgx.Row) (model.Task, error) {
	var (
		t      model.Task
		status string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.Priority, &t.DueDate,
		&t.CreatedAt, &t.UpdatedAt, &t.ClosedAt, &t.DeletedAt)
	t.Status = model.Status(status)
	return t, err
}
