package model

import "time"

// Status is the lifecycle state of a task.
type Status string

// Task status constants. Overdue is deliberately absent: it is a derived
// overlay computed from the due date, never a stored status.
const (
	StatusNotStarted     Status = "not_started"
	StatusInProgress     Status = "in_progress"
	StatusBlocked        Status = "blocked"
	StatusSubmitted      Status = "submitted"
	StatusUnderReview    Status = "under_review"
	StatusReworkRequired Status = "rework_required"
	StatusAccepted       Status = "accepted"
	StatusCompleted      Status = "completed"
)

// Valid reports whether s is one of the defined task statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusBlocked, StatusSubmitted,
		StatusUnderReview, StatusReworkRequired, StatusAccepted, StatusCompleted:
		return true
	}
	return false
}

// Normalized priority constants (lower number = higher priority).
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
	PriorityLowest   = 5
)

// Task is the primary unit of assigned work.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" db:"id"`

	// Title is the human-readable summary of the task.
	Title string `json:"title" db:"title"`

	// Description is the full body text.
	Description string `json:"description" db:"description"`

	// AssigneeID is the employee responsible for the work.
	AssigneeID string `json:"assignee_id" db:"assignee_id"`

	// AssignerID is the manager who created and reviews the task.
	AssignerID string `json:"assigner_id" db:"assigner_id"`

	// Priority is the normalized priority level (use Priority* constants).
	Priority int `json:"priority" db:"priority"`

	// DueDate is when the work is expected to be done, if set.
	DueDate *time.Time `json:"due_date,omitempty" db:"due_date"`

	// Status is the current lifecycle state.
	Status Status `json:"status" db:"status"`

	// ReworkCount is how many times the task was sent back for rework.
	// Monotonically non-decreasing.
	ReworkCount int `json:"rework_count" db:"rework_count"`

	// QualityRating is the 1-5 rating recorded when work is accepted.
	QualityRating *int `json:"quality_rating,omitempty" db:"quality_rating"`

	// ActiveBlockerID points at the single unresolved blocker, if any.
	// A task is in status blocked if and only if this is set.
	ActiveBlockerID *string `json:"active_blocker_id,omitempty" db:"active_blocker_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Blockers is the append-only blocker history, populated by queries
	// that load the task with its history.
	Blockers []Blocker `json:"blockers,omitempty" db:"-"`
}

// Overdue reports whether the task's due date has passed without the work
// reaching a terminal state. Derived at read time, never stored.
func (t *Task) Overdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status == StatusAccepted || t.Status == StatusCompleted {
		return false
	}
	return now.After(*t.DueDate)
}

// ReworkRecord captures a single rework request on a task.
type ReworkRecord struct {
	ID           string    `json:"id" db:"id"`
	TaskID       string    `json:"task_id" db:"task_id"`
	ReworkNumber int       `json:"rework_number" db:"rework_number"`
	RejectorID   string    `json:"rejector_id" db:"rejector_id"`
	RejectorName string    `json:"rejector_name" db:"rejector_name"`
	Reason       string    `json:"reason" db:"reason"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ProgressNote is a free-form update appended by whoever is doing the work.
type ProgressNote struct {
	ID         string     `json:"id" db:"id"`
	EntityKind EntityKind `json:"entity_kind" db:"entity_kind"`
	EntityID   string     `json:"entity_id" db:"entity_id"`
	Seq        int        `json:"seq" db:"seq"`
	AuthorID   string     `json:"author_id" db:"author_id"`
	AuthorName string     `json:"author_name" db:"author_name"`
	Text       string     `json:"text" db:"text"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// FeedbackEntry is a manager comment on a task, kept in order.
type FeedbackEntry struct {
	ID          string    `json:"id" db:"id"`
	TaskID      string    `json:"task_id" db:"task_id"`
	Seq         int       `json:"seq" db:"seq"`
	ManagerID   string    `json:"manager_id" db:"manager_id"`
	ManagerName string    `json:"manager_name" db:"manager_name"`
	Text        string    `json:"text" db:"text"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
