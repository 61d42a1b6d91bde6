package model

import "time"

// Notification types.
const (
	NotifyTaskSubmitted      = "task_submitted"
	NotifyTaskReworkRequired = "task_rework_required"
	NotifyTaskAccepted       = "task_accepted"
	NotifyBlockerDeclared    = "blocker_declared"
	NotifyBlockerResolved    = "blocker_resolved"
	NotifyHelpRequested      = "help_requested"
	NotifyDependencyReady    = "dependency_ready_for_review"
	NotifyDependencyRejected = "dependency_rejected"
	NotifyManagerFeedback    = "manager_feedback"
)

// Notification is a user-facing alert about workflow activity. Records are
// write-once; the only permitted mutation is flipping the read flag.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	// RecipientID is the actor this notification is addressed to.
	RecipientID string `json:"recipient_id" db:"recipient_id"`

	// Type classifies the notification (use Notify* constants).
	Type string `json:"type" db:"type"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Metadata carries entity references for presentation layers.
	Metadata map[string]string `json:"metadata,omitempty" db:"-"`

	// Read indicates whether the recipient has seen this notification.
	Read bool `json:"read" db:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
