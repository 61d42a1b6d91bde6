package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/model"
)

// CreateNotification inserts a new notification record. Notifications are
// write-once; the only later mutation is the read-flag flip.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	metadata, err := marshalJSON(nonNilMeta(n.Metadata))
	if err != nil {
		return err
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, type, message, metadata, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.RecipientID, n.Type, n.Message, metadata,
		boolToInt(n.Read), n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	return nil
}

// GetUnreadNotifications retrieves a recipient's unread notifications,
// ordered by creation time descending.
func (s *SQLiteStore) GetUnreadNotifications(ctx context.Context, recipientID string) ([]model.Notification, error) {
	rows, err := s.q.QueryxContext(ctx, `
		SELECT * FROM notifications
		WHERE recipient_id = ? AND read = 0
		ORDER BY created_at DESC`,
		recipientID)
	if err != nil {
		return nil, fmt.Errorf("querying unread notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var (
			n        model.Notification
			metadata string
			readInt  int
		)
		err := rows.Scan(
			&n.ID, &n.RecipientID, &n.Type, &n.Message, &metadata,
			&readInt, &n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		n.Read = readInt != 0
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &n.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling notification metadata: %w", err)
			}
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	return nil
}
