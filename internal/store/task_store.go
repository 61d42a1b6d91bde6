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

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// CreateTask inserts a new task. Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateTask(ctx context.Context, t model.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title must not be empty")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = model.StatusNotStarted
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid task status %q", t.Status)
	}
	if t.Priority < model.PriorityCritical || t.Priority > model.PriorityLowest {
		t.Priority = model.PriorityMedium
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, assignee_id, assigner_id,
			priority, due_date, status, rework_count, quality_rating,
			active_blocker_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.AssigneeID, t.AssignerID,
		t.Priority, t.DueDate, string(t.Status), t.ReworkCount, t.QualityRating,
		t.ActiveBlockerID, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// UpdateTask writes every mutable task field as a single logical write.
func (s *SQLiteStore) UpdateTask(ctx context.Context, t model.Task) error {
	if !t.Status.Valid() {
		return fmt.Errorf("invalid task status %q", t.Status)
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now().UTC()
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, assignee_id = ?, assigner_id = ?,
			priority = ?, due_date = ?, status = ?, rework_count = ?,
			quality_rating = ?, active_blocker_id = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, t.AssigneeID, t.AssignerID,
		t.Priority, t.DueDate, string(t.Status), t.ReworkCount,
		t.QualityRating, t.ActiveBlockerID, t.UpdatedAt.UTC(),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", t.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

// GetTaskByID retrieves a single task, including its blocker history.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	row := s.q.QueryRowxContext(ctx, "SELECT * FROM tasks WHERE id = ?", id)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}

	blockers, err := s.GetBlockersForTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading blockers for task %s: %w", id, err)
	}
	task.Blockers = blockers

	return &task, nil
}

// GetTasks retrieves tasks matching the provided filter options.
// Blocker history is not loaded for list queries.
func (s *SQLiteStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	var conditions []string
	var args []interface{}

	if filter.AssigneeID != nil {
		conditions = append(conditions, "assignee_id = ?")
		args = append(args, *filter.AssigneeID)
	}
	if filter.AssignerID != nil {
		conditions = append(conditions, "assigner_id = ?")
		args = append(args, *filter.AssignerID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		conditions = append(conditions, "priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, "(title LIKE ? OR description LIKE ?)")
		q := "%" + *filter.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT * FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "updated_at"
	if filter.SortBy != "" {
		allowedSorts := map[string]bool{
			"title":      true,
			"priority":   true,
			"due_date":   true,
			"created_at": true,
			"updated_at": true,
		}
		if allowedSorts[filter.SortBy] {
			sortBy = filter.SortBy
		}
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// scanTask scans a task row from either sqlx.Rows or sqlx.Row.
func scanTask(row interface{ Scan(dest ...interface{}) error }) (model.Task, error) {
	var (
		task      model.Task
		status    string
		dueDate   *time.Time
		rating    *int
		blockerID *string
	)

	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.AssigneeID, &task.AssignerID,
		&task.Priority, &dueDate, &status, &task.ReworkCount, &rating,
		&blockerID, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, err
		}
		return model.Task{}, fmt.Errorf("scanning task row: %w", err)
	}

	task.Status = model.Status(status)
	task.DueDate = dueDate
	task.QualityRating = rating
	task.ActiveBlockerID = blockerID

	return task, nil
}