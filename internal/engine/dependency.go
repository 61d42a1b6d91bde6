package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/internal/watch"
)

// createDependencyTasks spawns one dependency task per helper under an
// open transaction. Helpers that fail (unknown identity, write error) are
// reported without aborting the rest; the caller receives the ids that
// succeeded.
func (e *Engine) createDependencyTasks(ctx context.Context, s store.Store, parent *model.Task, b *model.Blocker, helperIDs []string, assigner model.Actor, now time.Time) ([]string, []HelperFailure) {
	due := now.Add(e.dueOffset)
	if parent.DueDate != nil {
		due = *parent.DueDate
	}

	var created []string
	var failures []HelperFailure
	for _, helperID := range helperIDs {
		helper, err := e.identity.Lookup(ctx, helperID)
		if err != nil {
			failures = append(failures, HelperFailure{HelperID: helperID, Err: err.Error()})
			continue
		}

		dep := model.DependencyTask{
			ID:           uuid.New().String(),
			ParentTaskID: parent.ID,
			BlockerID:    b.ID,
			Title:        fmt.Sprintf("Help resolve blocker on %q", parent.Title),
			Description:  b.Reason,
			AssigneeID:   helper.ID,
			AssigneeName: helper.Name,
			AssignerID:   assigner.ID,
			AssignerName: assigner.Name,
			Status:       model.DependencyNotStarted,
			DueDate:      due,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.CreateDependencyTask(ctx, dep); err != nil {
			failures = append(failures, HelperFailure{HelperID: helperID, Err: err.Error()})
			continue
		}
		if err := s.AppendActivity(ctx, e.newActivity(
			model.KindDependencyTask, dep.ID, model.ActivityDependencyCreated,
			"Dependency Task Created",
			fmt.Sprintf("Created to resolve a blocker in %q", parent.Title),
			assigner, now,
			map[string]string{model.MetaBlockerID: b.ID},
		)); err != nil {
			failures = append(failures, HelperFailure{HelperID: helperID, Err: err.Error()})
			continue
		}
		created = append(created, dep.ID)
	}
	return created, failures
}

// AdvanceDependencyStatus moves a dependency task along its linear
// lifecycle. Only the assigned helper may advance it. Reaching completed
// submits the work for review and notifies the parent-task owner; it does
// not by itself resolve anything.
func (e *Engine) AdvanceDependencyStatus(ctx context.Context, depTaskID string, newStatus model.DependencyStatus, actorID string) error {
	actor, err := e.identity.Lookup(ctx, actorID)
	if err != nil {
		return fmt.Errorf("looking up actor: %w", err)
	}
	if !newStatus.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown dependency status %q", newStatus)}
	}

	parentID, err := e.parentTaskID(ctx, depTaskID)
	if err != nil {
		return err
	}
	unlock := e.locks.lock(parentID)
	defer unlock()

	var (
		dep       model.DependencyTask
		parent    model.Task
		completed bool
	)
	err = e.store.WithTx(ctx, func(s store.Store) error {
		d, err := s.GetDependencyTaskByID(ctx, depTaskID)
		if err != nil {
			return err
		}
		if actor.ID != d.AssigneeID {
			return &AuthorizationError{ActorID: actor.ID, Role: actor.Role, Operation: "advance this dependency task"}
		}
		if d.Status == newStatus {
			return nil
		}
		if d.Status.Next() != newStatus {
			return &ConflictError{
				EntityID: d.ID,
				Reason:   fmt.Sprintf("dependency lifecycle is linear; cannot move from %s to %s", d.Status, newStatus),
			}
		}

		now := e.clock.Now()
		prev := d.Status
		d.Status = newStatus
		if newStatus == model.DependencyCompleted {
			// Completion opens a fresh review round.
			d.SubmittedForReview = true
			d.RejectedByID = nil
			d.RejectedByName = nil
			d.RejectedAt = nil
			d.RejectionReason = ""
			completed = true
		}
		d.UpdatedAt = now
		if err := s.UpdateDependencyTask(ctx, *d); err != nil {
			return err
		}

		if err := s.AppendActivity(ctx, e.newActivity(
			model.KindDependencyTask, d.ID, model.ActivityStatusChange,
			fmt.Sprintf("Status changed to %s", newStatus), "",
			actor, now,
			map[string]string{
				model.MetaPreviousStatus: string(prev),
				model.MetaNewStatus:      string(newStatus),
			},
		)); err != nil {
			return err
		}

		if completed {
			p, err := s.GetTaskByID(ctx, d.ParentTaskID)
			if err != nil {
				return err
			}
			parent = *p
		}
		dep = *d
		return nil
	})
	if err != nil {
		return err
	}

	if completed {
		e.dispatcher.Dispatch(ctx, []string{parent.AssigneeID}, model.NotifyDependencyReady,
			fmt.Sprintf("%s completed %q; ready for your review", actor.Name, dep.Title),
			map[string]string{"task_id": parent.ID, model.MetaDependencyID: dep.ID})
	}
	if dep.ID != "" {
		e.publish(watch.EventDependencyUpdated, parentID, dep.ID, string(dep.Status), dep.UpdatedAt)
	}
	return nil
}

// AcceptDependencyTask records the parent-task owner's approval and runs
// the auto-resolution check in the same transaction, so a reader can never
// observe the acceptance while the blocker is mid-resolution.
func (e *Engine) AcceptDependencyTask(ctx context.Context, depTaskID, reviewerID string) error {
	reviewer, err := e.identity.Lookup(ctx, reviewerID)
	if err != nil {
		return fmt.Errorf("looking up reviewer: %w", err)
	}

	parentID, err := e.parentTaskID(ctx, depTaskID)
	if err != nil {
		return err
	}
	unlock := e.locks.lock(parentID)
	defer unlock()

	var (
		dep      model.DependencyTask
		parent   model.Task
		resolved bool
	)
	err = e.store.WithTx(ctx, func(s store.Store) error {
		d, err := s.GetDependencyTaskByID(ctx, depTaskID)
		if err != nil {
			return err
		}
		p, err := s.GetTaskByID(ctx, d.ParentTaskID)
		if err != nil {
			return err
		}
		if reviewer.ID != p.AssigneeID && reviewer.ID != p.AssignerID {
			return &AuthorizationError{ActorID: reviewer.ID, Role: reviewer.Role, Operation: "review this dependency task"}
		}
		if d.AcceptedByID != nil {
			return &ConflictError{EntityID: d.ID, Reason: "dependency task is already accepted"}
		}
		if d.Status != model.DependencyCompleted || !d.SubmittedForReview {
			return &ConflictError{EntityID: d.ID, Reason: "dependency task is not submitted for review"}
		}

		now := e.clock.Now()
		d.AcceptedByID = &reviewer.ID
		d.AcceptedByName = &reviewer.Name
		d.AcceptedAt = &now
		d.UpdatedAt = now
		if err := s.UpdateDependencyTask(ctx, *d); err != nil {
			return err
		}

		meta := map[string]string{model.MetaDependencyID: d.ID}
		if err := s.AppendActivity(ctx, e.newActivity(
			model.KindDependencyTask, d.ID, model.ActivityDependencyAccepted,
			"Dependency Task Accepted", "", reviewer, now, meta,
		)); err != nil {
			return err
		}
		if err := s.AppendActivity(ctx, e.newActivity(
			model.KindTask, p.ID, model.ActivityDependencyAccepted,
			fmt.Sprintf("Dependency Task Accepted: %s", d.Title), "",
			reviewer, now, meta,
		)); err != nil {
			return err
		}

		resolved, err = e.maybeResolve(ctx, s, p, reviewer, now)
		if err != nil {
			return err
		}

		dep = *d
		parent = *p
		return nil
	})
	if err != nil {
		return err
	}

	e.publish(watch.EventDependencyUpdated, parent.ID, dep.ID, string(dep.Status), dep.UpdatedAt)
	if resolved {
		e.notifyAutoResolved(ctx, &parent)
		e.publish(watch.EventBlockerResolved, parent.ID, dep.BlockerID, string(parent.Status), parent.UpdatedAt)
	}
	return nil
}

// RejectDependencyTask sends the work back to the helper: review fields,
// including an acceptance that has not yet resolved the blocker, are
// cleared and the status forced to in_progress, never not_started.
func (e *Engine) RejectDependencyTask(ctx context.Context, depTaskID, reviewerID, reason string) error {
	reviewer, err := e.identity.Lookup(ctx, reviewerID)
	if err != nil {
		return fmt.Errorf("looking up reviewer: %w", err)
	}
	if strings.TrimSpace(reason) == "" {
		return &ValidationError{Field: "reason", Reason: "rejection requires a non-empty reason"}
	}

	parentID, err := e.parentTaskID(ctx, depTaskID)
	if err != nil {
		return err
	}
	unlock := e.locks.lock(parentID)
	defer unlock()

	var (
		dep    model.DependencyTask
		parent model.Task
	)
	err = e.store.WithTx(ctx, func(s store.Store) error {
		d, err := s.GetDependencyTaskByID(ctx, depTaskID)
		if err != nil {
			return err
		}
		p, err := s.GetTaskByID(ctx, d.ParentTaskID)
		if err != nil {
			return err
		}
		if reviewer.ID != p.AssigneeID && reviewer.ID != p.AssignerID {
			return &AuthorizationError{ActorID: reviewer.ID, Role: reviewer.Role, Operation: "review this dependency task"}
		}
		if !d.SubmittedForReview {
			return &ConflictError{EntityID: d.ID, Reason: "dependency task is not submitted for review"}
		}

		// A prior acceptance may be retracted, but only while the blocker
		// is still unresolved. Once resolution has fired, the acceptance
		// already had its effect on the parent task.
		if d.AcceptedByID != nil {
			b, err := s.GetBlockerByID(ctx, d.BlockerID)
			if err != nil {
				return err
			}
			if b.Resolved {
				return &ConflictError{EntityID: d.ID, Reason: "acceptance already resolved the blocker"}
			}
		}

		now := e.clock.Now()
		d.SubmittedForReview = false
		d.Status = model.DependencyInProgress
		d.AcceptedByID = nil
		d.AcceptedByName = nil
		d.AcceptedAt = nil
		d.RejectedByID = &reviewer.ID
		d.RejectedByName = &reviewer.Name
		d.RejectedAt = &now
		d.RejectionReason = reason
		d.UpdatedAt = now
		if err := s.UpdateDependencyTask(ctx, *d); err != nil {
			return err
		}

		meta := map[string]string{
			model.MetaDependencyID: d.ID,
			model.MetaReason:       reason,
		}
		if err := s.AppendActivity(ctx, e.newActivity(
			model.KindDependencyTask, d.ID, model.ActivityDependencyRejected,
			"Dependency Task Rejected", reason, reviewer, now, meta,
		)); err != nil {
			return err
		}
		if err := s.AppendActivity(ctx, e.newActivity(
			model.KindTask, p.ID, model.ActivityDependencyRejected,
			fmt.Sprintf("Dependency Task Rejected: %s", d.Title), reason,
			reviewer, now, meta,
		)); err != nil {
			return err
		}

		dep = *d
		parent = *p
		return nil
	})
	if err != nil {
		return err
	}

	e.dispatcher.Dispatch(ctx, []string{dep.AssigneeID}, model.NotifyDependencyRejected,
		fmt.Sprintf("%q needs more work: %s", dep.Title, reason),
		map[string]string{"task_id": parent.ID, model.MetaDependencyID: dep.ID})
	e.publish(watch.EventDependencyUpdated, parent.ID, dep.ID, string(dep.Status), dep.UpdatedAt)
	return nil
}

// parentTaskID resolves the lock key for a dependency task before the
// serialized section begins.
func (e *Engine) parentTaskID(ctx context.Context, depTaskID string) (string, error) {
	d, err := e.store.GetDependencyTaskByID(ctx, depTaskID)
	if err != nil {
		return "", err
	}
	return d.ParentTaskID, nil
}
