package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-slot-service/internal/domain"
)

// TaskFilter captures listing parameters.
type TaskFilter struct {
	RequesterID *string
	CertifierID *string
	Statuses    []domain.TaskStatus
	Limit       int
	Offset      int
}

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// UpdateStatus writes the new status and sets or clears the completion
	// and rejection timestamps so they stay consistent with it.
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, certifierID *string, at time.Time) error
	UpdateDetails(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
	// List returns tasks ordered by time_submitted, ties broken by task_id.
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	CountActiveByRegion(ctx context.Context, region domain.Region) (int, error)
}

type taskRepository struct {
	q Querier
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (task_name, description, project_number, notes, requester_id, certifier_id, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING task_id, time_submitted`

	return r.q.QueryRow(ctx, query,
		task.Name,
		task.Description,
		task.ProjectNumber,
		task.Notes,
		task.RequesterID,
		task.CertifierID,
		task.Status,
	).Scan(&task.ID, &task.TimeSubmitted)
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	const query = `
        SELECT task_id, task_name, description, project_number, notes, requester_id, certifier_id,
               status, time_submitted, time_completed, time_rejected
        FROM tasks WHERE task_id=$1`

	var task domain.Task
	if err := r.q.QueryRow(ctx, query, id).Scan(
		&task.ID,
		&task.Name,
		&task.Description,
		&task.ProjectNumber,
		&task.Notes,
		&task.RequesterID,
		&task.CertifierID,
		&task.Status,
		&task.TimeSubmitted,
		&task.TimeCompleted,
		&task.TimeRejected,
	); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, certifierID *string, at time.Time) error {
	const query = `
        UPDATE tasks SET status=$2,
            time_completed = CASE WHEN $2 = 'completed' THEN $3 ELSE NULL END,
            time_rejected  = CASE WHEN $2 = 'rejected'  THEN $3 ELSE NULL END,
            certifier_id   = COALESCE($4, certifier_id)
        WHERE task_id=$1`

	cmd, err := r.q.Exec(ctx, query, id, status, at, certifierID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) UpdateDetails(ctx context.Context, task *domain.Task) error {
	const query = `
        UPDATE tasks SET task_name=$2, description=$3, project_number=$4, notes=$5
        WHERE task_id=$1`

	cmd, err := r.q.Exec(ctx, query,
		task.ID,
		task.Name,
		task.Description,
		task.ProjectNumber,
		task.Notes,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM tasks WHERE task_id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	base := `SELECT task_id, task_name, description, project_number, notes, requester_id, certifier_id,
                    status, time_submitted, time_completed, time_rejected
             FROM tasks`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.CertifierID != nil {
		args = append(args, *filter.CertifierID)
		clauses = append(clauses, fmt.Sprintf("certifier_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY time_submitted ASC, task_id ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepository) CountActiveByRegion(ctx context.Context, region domain.Region) (int, error) {
	const query = `
        SELECT COUNT(*)
        FROM tasks t
        JOIN requesters r ON t.requester_id = r.requester_id
        WHERE t.status = 'active' AND r.region = $1`

	var count int
	if err := r.q.QueryRow(ctx, query, int(region)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanTasks(rows pgx.Rows) ([]domain.Task, error) {
	var result []domain.Task
	for rows.Next() {
		var task domain.Task
		if err := rows.Scan(
			&task.ID,
			&task.Name,
			&task.Description,
			&task.ProjectNumber,
			&task.Notes,
			&task.RequesterID,
			&task.CertifierID,
			&task.Status,
			&task.TimeSubmitted,
			&task.TimeCompleted,
			&task.TimeRejected,
		); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}
