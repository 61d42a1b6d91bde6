package model

import "time"

// DependencyStatus is the lifecycle state of a dependency task.
// The lifecycle is strictly linear: not_started -> in_progress -> completed.
type DependencyStatus string

const (
	DependencyNotStarted DependencyStatus = "not_started"
	DependencyInProgress DependencyStatus = "in_progress"
	DependencyCompleted  DependencyStatus = "completed"
)

// Valid reports whether s is one of the defined dependency statuses.
func (s DependencyStatus) Valid() bool {
	switch s {
	case DependencyNotStarted, DependencyInProgress, DependencyCompleted:
		return true
	}
	return false
}

// Next returns the direct successor in the linear lifecycle, or "" when s
// is terminal.
func (s DependencyStatus) Next() DependencyStatus {
	switch s {
	case DependencyNotStarted:
		return DependencyInProgress
	case DependencyInProgress:
		return DependencyCompleted
	}
	return ""
}

// DependencyTask is delegated sub-work tied to exactly one blocker and one
// parent task, assigned to a helper and reviewed by the parent task's owner.
type DependencyTask struct {
	ID           string `json:"id" db:"id"`
	ParentTaskID string `json:"parent_task_id" db:"parent_task_id"`
	BlockerID    string `json:"blocker_id" db:"blocker_id"`

	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`

	AssigneeID   string `json:"assignee_id" db:"assignee_id"`
	AssigneeName string `json:"assignee_name" db:"assignee_name"`
	AssignerID   string `json:"assigner_id" db:"assigner_id"`
	AssignerName string `json:"assigner_name" db:"assigner_name"`

	Status  DependencyStatus `json:"status" db:"status"`
	DueDate time.Time        `json:"due_date" db:"due_date"`

	// Review overlay. SubmittedForReview is set when the helper marks the
	// work completed; rejection clears it and forces status back to
	// in_progress so the helper can redo the work.
	SubmittedForReview bool       `json:"submitted_for_review" db:"submitted_for_review"`
	AcceptedByID       *string    `json:"accepted_by_id,omitempty" db:"accepted_by_id"`
	AcceptedByName     *string    `json:"accepted_by_name,omitempty" db:"accepted_by_name"`
	AcceptedAt         *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`
	RejectedByID       *string    `json:"rejected_by_id,omitempty" db:"rejected_by_id"`
	RejectedByName     *string    `json:"rejected_by_name,omitempty" db:"rejected_by_name"`
	RejectedAt         *time.Time `json:"rejected_at,omitempty" db:"rejected_at"`
	RejectionReason    string     `json:"rejection_reason,omitempty" db:"rejection_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Accepted reports whether this dependency task has passed review.
func (d *DependencyTask) Accepted() bool {
	return d.Status == DependencyCompleted &&
		d.SubmittedForReview &&
		d.AcceptedByID != nil &&
		d.RejectedByID == nil
}

// Overdue reports whether the due date has passed without acceptance.
// Derived only; there is no escalation or expiry behaviour attached.
func (d *DependencyTask) Overdue(now time.Time) bool {
	return !d.Accepted() && now.After(d.DueDate)
}
