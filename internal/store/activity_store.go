package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/model"
)

// AppendActivity appends an immutable entry to an entity's activity log.
// Entries are never reordered or deduplicated.
func (s *SQLiteStore) AppendActivity(ctx context.Context, e model.ActivityEntry) error {
	if e.EntityID == "" {
		return fmt.Errorf("activity entry entity id must not be empty")
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Seq == 0 {
		seq, err := s.nextSeq(ctx, "activity_entries",
			"entity_kind = ? AND entity_id = ?", string(e.EntityKind), e.EntityID)
		if err != nil {
			return err
		}
		e.Seq = seq
	}

	metadata, err := marshalJSON(nonNilMeta(e.Metadata))
	if err != nil {
		return err
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO activity_entries (
			id, entity_kind, entity_id, seq, type, title, description,
			actor_id, actor_name, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.EntityKind), e.EntityID, e.Seq, e.Type, e.Title, e.Description,
		e.ActorID, e.ActorName, metadata, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending activity entry: %w", err)
	}
	return nil
}

// GetActivity returns an entity's activity log in append order.
func (s *SQLiteStore) GetActivity(ctx context.Context, kind model.EntityKind, entityID string) ([]model.ActivityEntry, error) {
	rows, err := s.q.QueryxContext(ctx, `
		SELECT * FROM activity_entries
		WHERE entity_kind = ? AND entity_id = ?
		ORDER BY seq`,
		string(kind), entityID)
	if err != nil {
		return nil, fmt.Errorf("querying activity for %s %s: %w", kind, entityID, err)
	}
	defer rows.Close()

	var entries []model.ActivityEntry
	for rows.Next() {
		var (
			e        model.ActivityEntry
			kindStr  string
			metadata string
		)
		err := rows.Scan(
			&e.ID, &kindStr, &e.EntityID, &e.Seq, &e.Type, &e.Title, &e.Description,
			&e.ActorID, &e.ActorName, &metadata, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		e.EntityKind = model.EntityKind(kindStr)
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling activity metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AppendReworkRecord appends a rework-history record for a task.
func (s *SQLiteStore) AppendReworkRecord(ctx context.Context, r model.ReworkRecord) error {
	if strings.TrimSpace(r.Reason) == "" {
		return fmt.Errorf("rework reason must not be empty")
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO rework_history (
			id, task_id, rework_number, rejector_id, rejector_name, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TaskID, r.ReworkNumber, r.RejectorID, r.RejectorName, r.Reason,
		r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending rework record: %w", err)
	}
	return nil
}

// GetReworkHistory returns a task's rework records in request order.
func (s *SQLiteStore) GetReworkHistory(ctx context.Context, taskID string) ([]model.ReworkRecord, error) {
	rows, err := s.q.QueryxContext(ctx,
		"SELECT * FROM rework_history WHERE task_id = ? ORDER BY rework_number", taskID)
	if err != nil {
		return nil, fmt.Errorf("querying rework history for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var records []model.ReworkRecord
	for rows.Next() {
		var r model.ReworkRecord
		err := rows.Scan(
			&r.ID, &r.TaskID, &r.ReworkNumber, &r.RejectorID, &r.RejectorName,
			&r.Reason, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning rework record row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// AddProgressNote appends a progress note to a task or dependency task.
func (s *SQLiteStore) AddProgressNote(ctx context.Context, n model.ProgressNote) error {
	if strings.TrimSpace(n.Text) == "" {
		return fmt.Errorf("progress note text must not be empty")
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Seq == 0 {
		seq, err := s.nextSeq(ctx, "progress_notes",
			"entity_kind = ? AND entity_id = ?", string(n.EntityKind), n.EntityID)
		if err != nil {
			return err
		}
		n.Seq = seq
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO progress_notes (
			id, entity_kind, entity_id, seq, author_id, author_name, text, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, string(n.EntityKind), n.EntityID, n.Seq, n.AuthorID, n.AuthorName,
		n.Text, n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("adding progress note: %w", err)
	}
	return nil
}

// GetProgressNotes returns an entity's progress notes in append order.
func (s *SQLiteStore) GetProgressNotes(ctx context.Context, kind model.EntityKind, entityID string) ([]model.ProgressNote, error) {
	rows, err := s.q.QueryxContext(ctx, `
		SELECT * FROM progress_notes
		WHERE entity_kind = ? AND entity_id = ?
		ORDER BY seq`,
		string(kind), entityID)
	if err != nil {
		return nil, fmt.Errorf("querying progress notes for %s %s: %w", kind, entityID, err)
	}
	defer rows.Close()

	var notes []model.ProgressNote
	for rows.Next() {
		var (
			n       model.ProgressNote
			kindStr string
		)
		err := rows.Scan(
			&n.ID, &kindStr, &n.EntityID, &n.Seq, &n.AuthorID, &n.AuthorName,
			&n.Text, &n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning progress note row: %w", err)
		}
		n.EntityKind = model.EntityKind(kindStr)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// AddFeedback appends a manager feedback entry to a task.
func (s *SQLiteStore) AddFeedback(ctx context.Context, f model.FeedbackEntry) error {
	if strings.TrimSpace(f.Text) == "" {
		return fmt.Errorf("feedback text must not be empty")
	}
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	if f.Seq == 0 {
		seq, err := s.nextSeq(ctx, "feedback_entries", "task_id = ?", f.TaskID)
		if err != nil {
			return err
		}
		f.Seq = seq
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO feedback_entries (
			id, task_id, seq, manager_id, manager_name, text, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.TaskID, f.Seq, f.ManagerID, f.ManagerName, f.Text, f.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("adding feedback entry: %w", err)
	}
	return nil
}

// GetFeedback returns a task's manager feedback in append order.
func (s *SQLiteStore) GetFeedback(ctx context.Context, taskID string) ([]model.FeedbackEntry, error) {
	rows, err := s.q.QueryxContext(ctx,
		"SELECT * FROM feedback_entries WHERE task_id = ? ORDER BY seq", taskID)
	if err != nil {
		return nil, fmt.Errorf("querying feedback for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var entries []model.FeedbackEntry
	for rows.Next() {
		var f model.FeedbackEntry
		err := rows.Scan(
			&f.ID, &f.TaskID, &f.Seq, &f.ManagerID, &f.ManagerName,
			&f.Text, &f.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning feedback row: %w", err)
		}
		entries = append(entries, f)
	}
	return entries, rows.Err()
}

// nonNilMeta substitutes an empty map so metadata columns store {} rather
// than null.
func nonNilMeta(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
