package store

import (
	"context"

	"github.com/nhle/taskflow/internal/model"
)

// TaskFilter controls filtering, sorting, and pagination for task queries.
type TaskFilter struct {
	AssigneeID *string
	AssignerID *string
	Status     *model.Status
	Priority   *int
	Query      *string // search title + description
	SortBy     string  // "priority", "due_date", "created_at", "updated_at", "title"
	SortDesc   bool
	Limit      int
	Offset     int
}

// Store is the persistence collaborator for the workflow engine. The
// engine never assumes atomic multi-entity writes outside WithTx.
type Store interface {
	// === Tasks ===

	CreateTask(ctx context.Context, t model.Task) error
	UpdateTask(ctx context.Context, t model.Task) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	// === Blockers ===

	CreateBlocker(ctx context.Context, b model.Blocker) error
	UpdateBlocker(ctx context.Context, b model.Blocker) error
	GetBlockerByID(ctx context.Context, id string) (*model.Blocker, error)
	GetBlockersForTask(ctx context.Context, taskID string) ([]model.Blocker, error)

	// === Dependency tasks ===

	CreateDependencyTask(ctx context.Context, d model.DependencyTask) error
	UpdateDependencyTask(ctx context.Context, d model.DependencyTask) error
	GetDependencyTaskByID(ctx context.Context, id string) (*model.DependencyTask, error)
	GetDependencyTasksForBlocker(ctx context.Context, blockerID string) ([]model.DependencyTask, error)
	GetDependencyTasksForAssignee(ctx context.Context, assigneeID string) ([]model.DependencyTask, error)

	// === Ordered logs ===

	AppendActivity(ctx context.Context, e model.ActivityEntry) error
	GetActivity(ctx context.Context, kind model.EntityKind, entityID string) ([]model.ActivityEntry, error)
	AppendReworkRecord(ctx context.Context, r model.ReworkRecord) error
	GetReworkHistory(ctx context.Context, taskID string) ([]model.ReworkRecord, error)
	AddProgressNote(ctx context.Context, n model.ProgressNote) error
	GetProgressNotes(ctx context.Context, kind model.EntityKind, entityID string) ([]model.ProgressNote, error)
	AddFeedback(ctx context.Context, f model.FeedbackEntry) error
	GetFeedback(ctx context.Context, taskID string) ([]model.FeedbackEntry, error)

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context, recipientID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	// WithTx runs fn against a transaction-backed view of the store and
	// commits if fn returns nil. Within fn, every call sees and joins the
	// same transaction. Calling WithTx on a transactional view reuses the
	// open transaction rather than nesting.
	WithTx(ctx context.Context, fn func(Store) error) error
}
