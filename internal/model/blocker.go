package model

import "time"

// Blocker is a declared impediment on a task. Blockers live in the task's
// append-only history: entries are never deleted, only mutated to record
// spawned dependency tasks and, eventually, resolution.
type Blocker struct {
	// ID is the unique identifier for this blocker.
	ID string `json:"id" db:"id"`

	// TaskID is the task this blocker belongs to.
	TaskID string `json:"task_id" db:"task_id"`

	// Reason is the impediment description. Never empty.
	Reason string `json:"reason" db:"reason"`

	// CreatedByID / CreatedByName identify the declaring actor.
	CreatedByID   string `json:"created_by_id" db:"created_by_id"`
	CreatedByName string `json:"created_by_name" db:"created_by_name"`

	// MentionedHelperIDs are the teammates asked to help clear the
	// blocker. May be empty; a blocker can be resolved manually.
	MentionedHelperIDs []string `json:"mentioned_helper_ids" db:"-"`

	// DependencyTaskIDs are the ids of the dependency tasks spawned for
	// the mentioned helpers, written back after creation.
	DependencyTaskIDs []string `json:"dependency_task_ids" db:"-"`

	// Resolved is set once the blocker is cleared, manually or
	// automatically. AutoResolved distinguishes the two.
	Resolved       bool       `json:"resolved" db:"resolved"`
	AutoResolved   bool       `json:"auto_resolved" db:"auto_resolved"`
	ResolvedByID   *string    `json:"resolved_by_id,omitempty" db:"resolved_by_id"`
	ResolvedByName *string    `json:"resolved_by_name,omitempty" db:"resolved_by_name"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
