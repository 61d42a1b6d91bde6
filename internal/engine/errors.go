package engine

import (
	"errors"
	"fmt"

	"github.com/nhle/taskflow/internal/model"
)

// ValidationError reports a missing or malformed field for an operation.
// Nothing is mutated when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// AuthorizationError reports that the actor's role or identity does not
// permit the requested operation. Nothing is mutated when one is returned.
type AuthorizationError struct {
	ActorID   string
	Role      model.Role
	Operation string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization: actor %s (%s) may not %s", e.ActorID, e.Role, e.Operation)
}

// ConflictError reports that a precondition on entity state no longer
// holds, such as resolving an already-resolved blocker or accepting an
// already-accepted dependency task. Idempotent callers may treat it as a
// safe no-op.
type ConflictError struct {
	EntityID string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.EntityID, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuthorization reports whether err is (or wraps) an AuthorizationError.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
