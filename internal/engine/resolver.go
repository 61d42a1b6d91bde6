package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/internal/watch"
)

// maybeResolve checks whether every dependency task under the task's
// active blocker has been accepted and, if so, resolves the blocker and
// returns the task to in_progress. It mutates nothing otherwise, so
// redundant invocations are safe. Runs inside the caller's transaction
// while the task's lock is held.
func (e *Engine) maybeResolve(ctx context.Context, s store.Store, task *model.Task, actor model.Actor, now time.Time) (bool, error) {
	if task.ActiveBlockerID == nil {
		return false, nil
	}
	b, err := s.GetBlockerByID(ctx, *task.ActiveBlockerID)
	if err != nil {
		return false, err
	}
	if b.Resolved {
		return false, nil
	}

	deps, err := s.GetDependencyTasksForBlocker(ctx, b.ID)
	if err != nil {
		return false, err
	}
	if len(deps) == 0 {
		return false, nil
	}
	for _, d := range deps {
		if d.AcceptedByID == nil {
			return false, nil
		}
	}

	b.Resolved = true
	b.AutoResolved = true
	b.ResolvedByID = &actor.ID
	b.ResolvedByName = &actor.Name
	b.ResolvedAt = &now
	if err := s.UpdateBlocker(ctx, *b); err != nil {
		return false, err
	}

	prev := task.Status
	task.ActiveBlockerID = nil
	task.Status = model.StatusInProgress
	task.UpdatedAt = now
	if err := s.UpdateTask(ctx, *task); err != nil {
		return false, err
	}

	if err := s.AppendActivity(ctx, e.newActivity(
		model.KindTask, task.ID, model.ActivityBlockerResolved,
		"Blocker Auto-Resolved",
		fmt.Sprintf("All %d dependency tasks accepted", len(deps)),
		actor, now,
		map[string]string{
			model.MetaPreviousStatus: string(prev),
			model.MetaNewStatus:      string(task.Status),
			model.MetaBlockerID:      b.ID,
		},
	)); err != nil {
		return false, err
	}

	return true, nil
}

// MaybeResolve re-runs the auto-resolution check for a task outside of an
// accept call, for instance on a stale client retry. Idempotent: when the
// blocker is already resolved, or dependency tasks remain unaccepted,
// nothing changes and false is returned.
func (e *Engine) MaybeResolve(ctx context.Context, taskID, actorID string) (bool, error) {
	actor, err := e.identity.Lookup(ctx, actorID)
	if err != nil {
		return false, fmt.Errorf("looking up actor: %w", err)
	}

	unlock := e.locks.lock(taskID)
	defer unlock()

	var (
		task     model.Task
		resolved bool
	)
	err = e.store.WithTx(ctx, func(s store.Store) error {
		t, err := s.GetTaskByID(ctx, taskID)
		if err != nil {
			return err
		}
		resolved, err = e.maybeResolve(ctx, s, t, actor, e.clock.Now())
		if err != nil {
			return err
		}
		task = *t
		return nil
	})
	if err != nil {
		return false, err
	}

	if resolved {
		e.notifyAutoResolved(ctx, &task)
		e.publish(watch.EventBlockerResolved, task.ID, task.ID, string(task.Status), task.UpdatedAt)
	}
	return resolved, nil
}

// notifyAutoResolved alerts the task's assignee and, if distinct, its
// assigner after an auto-resolution commits.
func (e *Engine) notifyAutoResolved(ctx context.Context, task *model.Task) {
	e.dispatcher.Dispatch(ctx, []string{task.AssigneeID, task.AssignerID}, model.NotifyBlockerResolved,
		fmt.Sprintf("All dependency tasks for %q are accepted; the blocker was resolved automatically", task.Title),
		map[string]string{"task_id": task.ID})
}
