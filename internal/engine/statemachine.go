package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/internal/watch"
)

// employeeStatuses are the targets an employee-role actor may request.
// Managers and admins may additionally request the review-side statuses.
var employeeStatuses = map[model.Status]bool{
	model.StatusNotStarted: true,
	model.StatusInProgress: true,
	model.StatusBlocked:    true,
	model.StatusSubmitted:  true,
}

// legalTransitions is the status graph. blocked is reachable only through
// DeclareBlocker and left only through blocker resolution, so it has no
// requestable edges here.
var legalTransitions = map[model.Status][]model.Status{
	model.StatusNotStarted:     {model.StatusInProgress},
	model.StatusInProgress:     {model.StatusNotStarted, model.StatusSubmitted},
	model.StatusBlocked:        {},
	model.StatusSubmitted:      {model.StatusUnderReview, model.StatusReworkRequired, model.StatusAccepted},
	model.StatusUnderReview:    {model.StatusReworkRequired, model.StatusAccepted},
	model.StatusReworkRequired: {model.StatusInProgress},
	model.StatusAccepted:       {model.StatusCompleted},
	model.StatusCompleted:      {},
}

func transitionAllowed(from, to model.Status) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionRequest asks the state machine to move a task to a new status.
// Reason is required for rework_required; QualityRating for accepted.
type TransitionRequest struct {
	TaskID        string
	To            model.Status
	ActorID       string
	Reason        string
	QualityRating *int
}

// RequestTransition applies a status change. No-op requests (target equals
// current status) succeed silently. Every committed transition appends one
// activity entry recording the previous and new status.
func (e *Engine) RequestTransition(ctx context.Context, req TransitionRequest) error {
	actor, err := e.identity.Lookup(ctx, req.ActorID)
	if err != nil {
		return fmt.Errorf("looking up actor: %w", err)
	}
	if !req.To.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", req.To)}
	}

	unlock := e.locks.lock(req.TaskID)
	defer unlock()

	var (
		changed bool
		task    model.Task
		prev    model.Status
	)
	err = e.store.WithTx(ctx, func(s store.Store) error {
		t, err := s.GetTaskByID(ctx, req.TaskID)
		if err != nil {
			return err
		}

		// No-op transitions are rejected silently.
		if t.Status == req.To {
			return nil
		}

		if !actor.IsManager() && !employeeStatuses[req.To] {
			return &AuthorizationError{
				ActorID:   actor.ID,
				Role:      actor.Role,
				Operation: fmt.Sprintf("set status %s", req.To),
			}
		}

		// blocked never applies directly; declaring a blocker is the only
		// path in, and resolving it the only path out.
		if req.To == model.StatusBlocked {
			return &ValidationError{
				Field:  "status",
				Reason: "blocked is entered by declaring a blocker, not by direct transition",
			}
		}
		if t.Status == model.StatusBlocked {
			return &ConflictError{
				EntityID: t.ID,
				Reason:   "task is blocked; resolve the active blocker to resume",
			}
		}
		if !transitionAllowed(t.Status, req.To) {
			return &ConflictError{
				EntityID: t.ID,
				Reason:   fmt.Sprintf("cannot move from %s to %s", t.Status, req.To),
			}
		}

		now := e.clock.Now()
		activityType := model.ActivityStatusChange
		metadata := map[string]string{
			model.MetaPreviousStatus: string(t.Status),
			model.MetaNewStatus:      string(req.To),
		}

		switch req.To {
		case model.StatusAccepted:
			if req.QualityRating == nil {
				return &ValidationError{Field: "quality_rating", Reason: "accepting work requires a 1-5 quality rating"}
			}
			if *req.QualityRating < 1 || *req.QualityRating > 5 {
				return &ValidationError{Field: "quality_rating", Reason: "rating must be between 1 and 5"}
			}
			t.QualityRating = req.QualityRating
			metadata[model.MetaQualityRating] = strconv.Itoa(*req.QualityRating)

		case model.StatusReworkRequired:
			if strings.TrimSpace(req.Reason) == "" {
				return &ValidationError{Field: "reason", Reason: "rework requires a non-empty reason"}
			}
			activityType = model.ActivityReworkRequested
			t.ReworkCount++
			metadata[model.MetaReason] = req.Reason
			if err := s.AppendReworkRecord(ctx, model.ReworkRecord{
				TaskID:       t.ID,
				ReworkNumber: t.ReworkCount,
				RejectorID:   actor.ID,
				RejectorName: actor.Name,
				Reason:       req.Reason,
				CreatedAt:    now,
			}); err != nil {
				return err
			}
		}

		prev = t.Status
		t.Status = req.To
		t.UpdatedAt = now
		if err := s.UpdateTask(ctx, *t); err != nil {
			return err
		}

		if err := s.AppendActivity(ctx, e.newActivity(
			model.KindTask, t.ID, activityType,
			fmt.Sprintf("Status changed to %s", req.To), req.Reason,
			actor, now, metadata,
		)); err != nil {
			return err
		}

		changed = true
		task = *t
		return nil
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	e.notifyTransition(ctx, &task, prev, actor)
	e.publish(watch.EventTaskUpdated, task.ID, task.ID, string(task.Status), task.UpdatedAt)
	return nil
}

// notifyTransition sends the per-status alerts. Dispatch is best-effort;
// the transition has already committed.
func (e *Engine) notifyTransition(ctx context.Context, task *model.Task, prev model.Status, actor model.Actor) {
	meta := map[string]string{
		"task_id":                task.ID,
		model.MetaPreviousStatus: string(prev),
		model.MetaNewStatus:      string(task.Status),
	}

	switch task.Status {
	case model.StatusSubmitted:
		e.dispatcher.Dispatch(ctx, []string{task.AssignerID}, model.NotifyTaskSubmitted,
			fmt.Sprintf("%s submitted %q for review", actor.Name, task.Title), meta)
	case model.StatusReworkRequired:
		e.dispatcher.Dispatch(ctx, []string{task.AssigneeID}, model.NotifyTaskReworkRequired,
			fmt.Sprintf("%q was returned for rework", task.Title), meta)
	case model.StatusAccepted:
		e.dispatcher.Dispatch(ctx, []string{task.AssigneeID}, model.NotifyTaskAccepted,
			fmt.Sprintf("%q was accepted", task.Title), meta)
	}
}
