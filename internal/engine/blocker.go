package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/internal/watch"
)

// DeclareBlockerRequest records an impediment on a task and optionally
// delegates sub-work to the mentioned helpers.
type DeclareBlockerRequest struct {
	TaskID    string
	Reason    string
	HelperIDs []string
	ActorID   string
}

// HelperFailure reports one helper whose dependency task could not be
// created. The other helpers' tasks are unaffected.
type HelperFailure struct {
	HelperID string
	Err      string
}

// DeclareBlockerResult is the structured outcome of DeclareBlocker,
// including the partial result of dependency-task creation.
type DeclareBlockerResult struct {
	Blocker              *model.Blocker
	CreatedDependencyIDs []string
	Failures             []HelperFailure
}

// DeclareBlocker is the only path by which a task reaches status blocked.
// It creates the blocker record, spawns one dependency task per mentioned
// helper, and flips the task to blocked with the active-blocker pointer
// set, all in one transaction.
func (e *Engine) DeclareBlocker(ctx context.Context, req DeclareBlockerRequest) (*DeclareBlockerResult, error) {
	actor, err := e.identity.Lookup(ctx, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("looking up actor: %w", err)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, &ValidationError{Field: "reason", Reason: "blocker requires a non-empty reason"}
	}

	unlock := e.locks.lock(req.TaskID)
	defer unlock()

	helperIDs := dedupIDs(req.HelperIDs)

	var (
		result DeclareBlockerResult
		task   model.Task
	)
	err = e.store.WithTx(ctx, func(s store.Store) error {
		t, err := s.GetTaskByID(ctx, req.TaskID)
		if err != nil {
			return err
		}
		if t.ActiveBlockerID != nil {
			return &ConflictError{EntityID: t.ID, Reason: "task already has an active blocker"}
		}
		if t.Status != model.StatusNotStarted && t.Status != model.StatusInProgress {
			return &ConflictError{
				EntityID: t.ID,
				Reason:   fmt.Sprintf("cannot declare a blocker on a task in status %s", t.Status),
			}
		}

		now := e.clock.Now()
		blocker := model.Blocker{
			ID:                 uuid.New().String(),
			TaskID:             t.ID,
			Reason:             req.Reason,
			CreatedByID:        actor.ID,
			CreatedByName:      actor.Name,
			MentionedHelperIDs: helperIDs,
			CreatedAt:          now,
		}
		if err := s.CreateBlocker(ctx, blocker); err != nil {
			return err
		}

		// Spawn one dependency task per mentioned helper. A failure for
		// one helper must not abort creation for the others.
		createdIDs, failures := e.createDependencyTasks(ctx, s, t, &blocker, helperIDs, actor, now)
		blocker.DependencyTaskIDs = createdIDs
		if err := s.UpdateBlocker(ctx, blocker); err != nil {
			return err
		}

		prev := t.Status
		t.Status = model.StatusBlocked
		t.ActiveBlockerID = &blocker.ID
		t.UpdatedAt = now
		if err := s.UpdateTask(ctx, *t); err != nil {
			return err
		}

		if err := s.AppendActivity(ctx, e.newActivity(
			model.KindTask, t.ID, model.ActivityBlockerDeclared,
			"Blocker Declared", req.Reason, actor, now,
			map[string]string{
				model.MetaPreviousStatus: string(prev),
				model.MetaNewStatus:      string(t.Status),
				model.MetaReason:         req.Reason,
				model.MetaBlockerID:      blocker.ID,
			},
		)); err != nil {
			return err
		}

		result = DeclareBlockerResult{
			Blocker:              &blocker,
			CreatedDependencyIDs: createdIDs,
			Failures:             failures,
		}
		task = *t
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.notifyBlockerDeclared(ctx, &task, result.Blocker, actor)
	e.publish(watch.EventBlockerDeclared, task.ID, result.Blocker.ID, string(task.Status), task.UpdatedAt)
	return &result, nil
}

// notifyBlockerDeclared alerts the mentioned helpers and, separately and
// unconditionally, the task's assigner. A helper who is also the assigner
// is notified once.
func (e *Engine) notifyBlockerDeclared(ctx context.Context, task *model.Task, b *model.Blocker, actor model.Actor) {
	meta := map[string]string{
		"task_id":           task.ID,
		model.MetaBlockerID: b.ID,
	}

	var helpers []string
	for _, id := range b.MentionedHelperIDs {
		if id != task.AssignerID {
			helpers = append(helpers, id)
		}
	}
	e.dispatcher.Dispatch(ctx, helpers, model.NotifyHelpRequested,
		fmt.Sprintf("%s needs your help on %q: %s", actor.Name, task.Title, b.Reason), meta)

	e.dispatcher.Dispatch(ctx, []string{task.AssignerID}, model.NotifyBlockerDeclared,
		fmt.Sprintf("%q is blocked: %s", task.Title, b.Reason), meta)
}

// ManualResolve clears a blocker by hand: the path for blockers with no
// dependency tasks, or for a human overriding the coordinator.
func (e *Engine) ManualResolve(ctx context.Context, taskID, blockerID, actorID string) error {
	actor, err := e.identity.Lookup(ctx, actorID)
	if err != nil {
		return fmt.Errorf("looking up actor: %w", err)
	}

	unlock := e.locks.lock(taskID)
	defer unlock()

	var task model.Task
	err = e.store.WithTx(ctx, func(s store.Store) error {
		t, err := s.GetTaskByID(ctx, taskID)
		if err != nil {
			return err
		}
		b, err := s.GetBlockerByID(ctx, blockerID)
		if err != nil {
			return err
		}
		if b.TaskID != t.ID {
			return &ValidationError{Field: "blocker_id", Reason: "blocker does not belong to this task"}
		}
		if b.Resolved {
			return &ConflictError{EntityID: b.ID, Reason: "blocker is already resolved"}
		}
		if actor.ID != t.AssigneeID && actor.ID != t.AssignerID && !actor.IsManager() {
			return &AuthorizationError{ActorID: actor.ID, Role: actor.Role, Operation: "resolve this blocker"}
		}

		now := e.clock.Now()
		b.Resolved = true
		b.AutoResolved = false
		b.ResolvedByID = &actor.ID
		b.ResolvedByName = &actor.Name
		b.ResolvedAt = &now
		if err := s.UpdateBlocker(ctx, *b); err != nil {
			return err
		}

		prev := t.Status
		if t.ActiveBlockerID != nil && *t.ActiveBlockerID == b.ID {
			t.ActiveBlockerID = nil
			t.Status = model.StatusInProgress
		}
		t.UpdatedAt = now
		if err := s.UpdateTask(ctx, *t); err != nil {
			return err
		}

		if err := s.AppendActivity(ctx, e.newActivity(
			model.KindTask, t.ID, model.ActivityBlockerResolved,
			"Blocker Resolved", b.Reason, actor, now,
			map[string]string{
				model.MetaPreviousStatus: string(prev),
				model.MetaNewStatus:      string(t.Status),
				model.MetaBlockerID:      b.ID,
			},
		)); err != nil {
			return err
		}

		task = *t
		return nil
	})
	if err != nil {
		return err
	}

	e.dispatcher.Dispatch(ctx, []string{task.AssigneeID, task.AssignerID}, model.NotifyBlockerResolved,
		fmt.Sprintf("Blocker on %q was resolved by %s", task.Title, actor.Name),
		map[string]string{"task_id": task.ID, model.MetaBlockerID: blockerID})
	e.publish(watch.EventBlockerResolved, task.ID, blockerID, string(task.Status), task.UpdatedAt)
	return nil
}

// dedupIDs drops duplicate and empty ids, preserving first-seen order.
func dedupIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
