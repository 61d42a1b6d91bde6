package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/model"
)

// CreateDependencyTask inserts a new dependency task.
// Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateDependencyTask(ctx context.Context, d model.DependencyTask) error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("dependency task title must not be empty")
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Status == "" {
		d.Status = model.DependencyNotStarted
	}
	if !d.Status.Valid() {
		return fmt.Errorf("invalid dependency status %q", d.Status)
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = now
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO dependency_tasks (
			id, parent_task_id, blocker_id, title, description,
			assignee_id, assignee_name, assigner_id, assigner_name,
			status, due_date, submitted_for_review,
			accepted_by_id, accepted_by_name, accepted_at,
			rejected_by_id, rejected_by_name, rejected_at, rejection_reason,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ParentTaskID, d.BlockerID, d.Title, d.Description,
		d.AssigneeID, d.AssigneeName, d.AssignerID, d.AssignerName,
		string(d.Status), d.DueDate.UTC(), boolToInt(d.SubmittedForReview),
		d.AcceptedByID, d.AcceptedByName, d.AcceptedAt,
		d.RejectedByID, d.RejectedByName, d.RejectedAt, d.RejectionReason,
		d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating dependency task: %w", err)
	}
	return nil
}

// UpdateDependencyTask writes every mutable field as a single logical write.
func (s *SQLiteStore) UpdateDependencyTask(ctx context.Context, d model.DependencyTask) error {
	if !d.Status.Valid() {
		return fmt.Errorf("invalid dependency status %q", d.Status)
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE dependency_tasks SET
			title = ?, description = ?, status = ?, due_date = ?,
			submitted_for_review = ?,
			accepted_by_id = ?, accepted_by_name = ?, accepted_at = ?,
			rejected_by_id = ?, rejected_by_name = ?, rejected_at = ?,
			rejection_reason = ?, updated_at = ?
		WHERE id = ?`,
		d.Title, d.Description, string(d.Status), d.DueDate.UTC(),
		boolToInt(d.SubmittedForReview),
		d.AcceptedByID, d.AcceptedByName, d.AcceptedAt,
		d.RejectedByID, d.RejectedByName, d.RejectedAt,
		d.RejectionReason, d.UpdatedAt.UTC(),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating dependency task %s: %w", d.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("dependency task %s: %w", d.ID, ErrNotFound)
	}
	return nil
}

// GetDependencyTaskByID retrieves a single dependency task by ID.
func (s *SQLiteStore) GetDependencyTaskByID(ctx context.Context, id string) (*model.DependencyTask, error) {
	row := s.q.QueryRowxContext(ctx, "SELECT * FROM dependency_tasks WHERE id = ?", id)

	d, err := scanDependencyTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("dependency task %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting dependency task %s: %w", id, err)
	}
	return &d, nil
}

// GetDependencyTasksForBlocker returns every dependency task spawned by a
// blocker, in creation order.
func (s *SQLiteStore) GetDependencyTasksForBlocker(ctx context.Context, blockerID string) ([]model.DependencyTask, error) {
	return s.queryDependencyTasks(ctx,
		"SELECT * FROM dependency_tasks WHERE blocker_id = ? ORDER BY created_at, id", blockerID)
}

// GetDependencyTasksForAssignee returns the dependency tasks assigned to a
// helper, most recently updated first.
func (s *SQLiteStore) GetDependencyTasksForAssignee(ctx context.Context, assigneeID string) ([]model.DependencyTask, error) {
	return s.queryDependencyTasks(ctx,
		"SELECT * FROM dependency_tasks WHERE assignee_id = ? ORDER BY updated_at DESC", assigneeID)
}

func (s *SQLiteStore) queryDependencyTasks(ctx context.Context, query string, args ...interface{}) ([]model.DependencyTask, error) {
	rows, err := s.q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying dependency tasks: %w", err)
	}
	defer rows.Close()

	var deps []model.DependencyTask
	for rows.Next() {
		d, err := scanDependencyTask(rows)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

// scanDependencyTask scans a row from either sqlx.Rows or sqlx.Row.
func scanDependencyTask(row interface{ Scan(dest ...interface{}) error }) (model.DependencyTask, error) {
	var (
		d            model.DependencyTask
		status       string
		submittedInt int
	)

	err := row.Scan(
		&d.ID, &d.ParentTaskID, &d.BlockerID, &d.Title, &d.Description,
		&d.AssigneeID, &d.AssigneeName, &d.AssignerID, &d.AssignerName,
		&status, &d.DueDate, &submittedInt,
		&d.AcceptedByID, &d.AcceptedByName, &d.AcceptedAt,
		&d.RejectedByID, &d.RejectedByName, &d.RejectedAt, &d.RejectionReason,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DependencyTask{}, err
		}
		return model.DependencyTask{}, fmt.Errorf("scanning dependency task row: %w", err)
	}

	d.Status = model.DependencyStatus(status)
	d.SubmittedForReview = submittedInt != 0

	return d, nil
}
