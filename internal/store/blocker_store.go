package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/model"
)

// CreateBlocker appends a blocker to a task's history.
// Generates a UUID if ID is empty.
func (s *SQLiteStore) CreateBlocker(ctx context.Context, b model.Blocker) error {
	if strings.TrimSpace(b.Reason) == "" {
		return fmt.Errorf("blocker reason must not be empty")
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	helperIDs, err := marshalJSON(nonNil(b.MentionedHelperIDs))
	if err != nil {
		return err
	}
	depIDs, err := marshalJSON(nonNil(b.DependencyTaskIDs))
	if err != nil {
		return err
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO blockers (
			id, task_id, reason, created_by_id, created_by_name,
			mentioned_helper_ids, dependency_task_ids,
			resolved, auto_resolved, resolved_by_id, resolved_by_name, resolved_at,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.TaskID, b.Reason, b.CreatedByID, b.CreatedByName,
		helperIDs, depIDs,
		boolToInt(b.Resolved), boolToInt(b.AutoResolved),
		b.ResolvedByID, b.ResolvedByName, b.ResolvedAt,
		b.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating blocker: %w", err)
	}
	return nil
}

// UpdateBlocker mutates a history entry in place. Blockers are never
// deleted; updates add dependency-task ids and resolution fields only.
func (s *SQLiteStore) UpdateBlocker(ctx context.Context, b model.Blocker) error {
	helperIDs, err := marshalJSON(nonNil(b.MentionedHelperIDs))
	if err != nil {
		return err
	}
	depIDs, err := marshalJSON(nonNil(b.DependencyTaskIDs))
	if err != nil {
		return err
	}

	result, err := s.q.ExecContext(ctx, `
		UPDATE blockers SET
			reason = ?, mentioned_helper_ids = ?, dependency_task_ids = ?,
			resolved = ?, auto_resolved = ?,
			resolved_by_id = ?, resolved_by_name = ?, resolved_at = ?
		WHERE id = ?`,
		b.Reason, helperIDs, depIDs,
		boolToInt(b.Resolved), boolToInt(b.AutoResolved),
		b.ResolvedByID, b.ResolvedByName, b.ResolvedAt,
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("updating blocker %s: %w", b.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("blocker %s: %w", b.ID, ErrNotFound)
	}
	return nil
}

// GetBlockerByID retrieves a single blocker by ID.
func (s *SQLiteStore) GetBlockerByID(ctx context.Context, id string) (*model.Blocker, error) {
	row := s.q.QueryRowxContext(ctx, "SELECT * FROM blockers WHERE id = ?", id)

	b, err := scanBlocker(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("blocker %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting blocker %s: %w", id, err)
	}
	return &b, nil
}

// GetBlockersForTask returns a task's blocker history in creation order.
func (s *SQLiteStore) GetBlockersForTask(ctx context.Context, taskID string) ([]model.Blocker, error) {
	rows, err := s.q.QueryxContext(ctx,
		"SELECT * FROM blockers WHERE task_id = ? ORDER BY created_at, id", taskID)
	if err != nil {
		return nil, fmt.Errorf("querying blockers for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var blockers []model.Blocker
	for rows.Next() {
		b, err := scanBlocker(rows)
		if err != nil {
			return nil, err
		}
		blockers = append(blockers, b)
	}
	return blockers, rows.Err()
}

// scanBlocker scans a blocker row from either sqlx.Rows or sqlx.Row.
func scanBlocker(row interface{ Scan(dest ...interface{}) error }) (model.Blocker, error) {
	var (
		b            model.Blocker
		helperIDs    string
		depIDs       string
		resolvedInt  int
		autoResolved int
	)

	err := row.Scan(
		&b.ID, &b.TaskID, &b.Reason, &b.CreatedByID, &b.CreatedByName,
		&helperIDs, &depIDs,
		&resolvedInt, &autoResolved,
		&b.ResolvedByID, &b.ResolvedByName, &b.ResolvedAt,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Blocker{}, err
		}
		return model.Blocker{}, fmt.Errorf("scanning blocker row: %w", err)
	}

	b.Resolved = resolvedInt != 0
	b.AutoResolved = autoResolved != 0

	if helperIDs != "" {
		if err := json.Unmarshal([]byte(helperIDs), &b.MentionedHelperIDs); err != nil {
			return model.Blocker{}, fmt.Errorf("unmarshaling mentioned_helper_ids: %w", err)
		}
	}
	if depIDs != "" {
		if err := json.Unmarshal([]byte(depIDs), &b.DependencyTaskIDs); err != nil {
			return model.Blocker{}, fmt.Errorf("unmarshaling dependency_task_ids: %w", err)
		}
	}

	return b, nil
}

// nonNil substitutes an empty slice so JSON columns store [] rather than null.
func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
