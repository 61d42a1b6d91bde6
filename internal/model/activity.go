package model

import "time"

// EntityKind identifies which entity an ordered log entry belongs to.
type EntityKind string

const (
	KindTask           EntityKind = "task"
	KindDependencyTask EntityKind = "dependency_task"
)

// Activity entry types.
const (
	ActivityTaskCreated        = "task_created"
	ActivityStatusChange       = "status_change"
	ActivityBlockerDeclared    = "blocker_declared"
	ActivityBlockerResolved    = "blocker_resolved"
	ActivityReworkRequested    = "rework_requested"
	ActivityDependencyCreated  = "dependency_created"
	ActivityDependencyAccepted = "dependency_accepted"
	ActivityDependencyRejected = "dependency_rejected"
	ActivityProgressNote       = "progress_note"
	ActivityFeedback           = "manager_feedback"
)

// Metadata keys used on activity entries.
const (
	MetaPreviousStatus = "previous_status"
	MetaNewStatus      = "new_status"
	MetaReason         = "reason"
	MetaQualityRating  = "quality_rating"
	MetaBlockerID      = "blocker_id"
	MetaDependencyID   = "dependency_task_id"
)

// ActivityEntry is an immutable, timestamped history record. Entries are
// append-only on both tasks and dependency tasks and are never reordered
// or deduplicated by the engine.
type ActivityEntry struct {
	ID          string            `json:"id" db:"id"`
	EntityKind  EntityKind        `json:"entity_kind" db:"entity_kind"`
	EntityID    string            `json:"entity_id" db:"entity_id"`
	Seq         int               `json:"seq" db:"seq"`
	Type        string            `json:"type" db:"type"`
	Title       string            `json:"title" db:"title"`
	Description string            `json:"description" db:"description"`
	ActorID     string            `json:"actor_id" db:"actor_id"`
	ActorName   string            `json:"actor_name" db:"actor_name"`
	Metadata    map[string]string `json:"metadata,omitempty" db:"-"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}
