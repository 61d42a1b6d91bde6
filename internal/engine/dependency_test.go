package engine

import (
	"context"
	"testing"

	"github.com/nhle/taskflow/internal/model"
)

// blockWithHelpers is the common fixture: an in_progress task blocked with
// one dependency task per helper.
func blockWithHelpers(t *testing.T, env *testEnv, helperIDs ...string) (*model.Task, *DeclareBlockerResult) {
	t.Helper()

	task := env.createTask(t)
	env.startTask(t, task.ID)
	res := env.declareBlocker(t, task.ID, helperIDs...)
	if len(res.CreatedDependencyIDs) != len(helperIDs) {
		t.Fatalf("created %d dependency tasks, want %d", len(res.CreatedDependencyIDs), len(helperIDs))
	}
	return task, res
}

// completeDep walks a dependency task through its lifecycle to completed.
func completeDep(t *testing.T, env *testEnv, depID, helperID string) {
	t.Helper()
	ctx := context.Background()

	if err := env.eng.AdvanceDependencyStatus(ctx, depID, model.DependencyInProgress, helperID); err != nil {
		t.Fatalf("advancing %s to in_progress: %v", depID, err)
	}
	if err := env.eng.AdvanceDependencyStatus(ctx, depID, model.DependencyCompleted, helperID); err != nil {
		t.Fatalf("advancing %s to completed: %v", depID, err)
	}
}

func TestAdvanceDependencyStatus(t *testing.T) {
	env := newTestEnv(t)
	_, res := blockWithHelpers(t, env, "hlp-1")
	depID := res.CreatedDependencyIDs[0]

	completeDep(t, env, depID, "hlp-1")

	dep := env.getDep(t, depID)
	if dep.Status != model.DependencyCompleted {
		t.Errorf("status = %s, want %s", dep.Status, model.DependencyCompleted)
	}
	if !dep.SubmittedForReview {
		t.Error("completed dependency task not submitted for review")
	}

	// Completion alerts the parent-task assignee, not the assigner.
	if got := env.notificationsOfType(t, "emp-1", model.NotifyDependencyReady); len(got) != 1 {
		t.Errorf("review-ready notifications to assignee = %d, want 1", len(got))
	}

	titles := env.activityTitles(t, model.KindDependencyTask, depID)
	if len(titles) != 3 {
		t.Errorf("got %d dependency activity entries, want 3: %v", len(titles), titles)
	}
}

func TestAdvanceDependencyStatus_OnlyAssignee(t *testing.T) {
	env := newTestEnv(t)
	_, res := blockWithHelpers(t, env, "hlp-1")

	err := env.eng.AdvanceDependencyStatus(context.Background(),
		res.CreatedDependencyIDs[0], model.DependencyInProgress, "hlp-2")
	if !IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestAdvanceDependencyStatus_LinearOnly(t *testing.T) {
	env := newTestEnv(t)
	_, res := blockWithHelpers(t, env, "hlp-1")
	depID := res.CreatedDependencyIDs[0]
	ctx := context.Background()

	// Skipping ahead and moving backwards are both conflicts.
	if err := env.eng.AdvanceDependencyStatus(ctx, depID, model.DependencyCompleted, "hlp-1"); !IsConflict(err) {
		t.Errorf("not_started -> completed: got %v, want conflict", err)
	}
	completeDep(t, env, depID, "hlp-1")
	if err := env.eng.AdvanceDependencyStatus(ctx, depID, model.DependencyInProgress, "hlp-1"); !IsConflict(err) {
		t.Errorf("completed -> in_progress: got %v, want conflict", err)
	}
}

func TestAdvanceDependencyStatus_SameStatusSilent(t *testing.T) {
	env := newTestEnv(t)
	_, res := blockWithHelpers(t, env, "hlp-1")
	depID := res.CreatedDependencyIDs[0]

	before := env.activityTitles(t, model.KindDependencyTask, depID)
	if err := env.eng.AdvanceDependencyStatus(context.Background(),
		depID, model.DependencyNotStarted, "hlp-1"); err != nil {
		t.Fatalf("same-status advance: %v", err)
	}
	after := env.activityTitles(t, model.KindDependencyTask, depID)
	if len(after) != len(before) {
		t.Errorf("same-status advance appended activity")
	}
}

func TestAcceptDependencyTask_ReviewerGate(t *testing.T) {
	env := newTestEnv(t)
	_, res := blockWithHelpers(t, env, "hlp-1")
	depID := res.CreatedDependencyIDs[0]
	completeDep(t, env, depID, "hlp-1")

	// The helper cannot review their own work.
	if err := env.eng.AcceptDependencyTask(context.Background(), depID, "hlp-1"); !IsAuthorization(err) {
		t.Fatalf("expected authorization error for helper self-review, got %v", err)
	}
	// The parent task's assigner may review.
	if err := env.eng.AcceptDependencyTask(context.Background(), depID, "mgr-1"); err != nil {
		t.Fatalf("assigner accepting: %v", err)
	}
}

func TestAcceptDependencyTask_NotSubmittedConflicts(t *testing.T) {
	env := newTestEnv(t)
	_, res := blockWithHelpers(t, env, "hlp-1")

	err := env.eng.AcceptDependencyTask(context.Background(), res.CreatedDependencyIDs[0], "emp-1")
	if !IsConflict(err) {
		t.Fatalf("expected conflict for unsubmitted work, got %v", err)
	}
}

func TestAcceptDependencyTask_AlreadyAcceptedConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, res := blockWithHelpers(t, env, "hlp-1")
	depID := res.CreatedDependencyIDs[0]
	completeDep(t, env, depID, "hlp-1")

	if err := env.eng.AcceptDependencyTask(ctx, depID, "emp-1"); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if err := env.eng.AcceptDependencyTask(ctx, depID, "emp-1"); !IsConflict(err) {
		t.Fatalf("expected conflict on second accept, got %v", err)
	}
}

func TestRejectDependencyTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task, res := blockWithHelpers(t, env, "hlp-1")
	depID := res.CreatedDependencyIDs[0]
	completeDep(t, env, depID, "hlp-1")

	if err := env.eng.RejectDependencyTask(ctx, depID, "emp-1", "missing edge cases"); err != nil {
		t.Fatalf("rejecting: %v", err)
	}

	dep := env.getDep(t, depID)
	if dep.Status != model.DependencyInProgress {
		t.Errorf("status = %s, want %s", dep.Status, model.DependencyInProgress)
	}
	if dep.SubmittedForReview {
		t.Error("rejected dependency task still submitted for review")
	}
	if dep.RejectedByID == nil || *dep.RejectedByID != "emp-1" {
		t.Errorf("rejected by = %v, want emp-1", dep.RejectedByID)
	}
	if dep.RejectionReason != "missing edge cases" {
		t.Errorf("rejection reason = %q", dep.RejectionReason)
	}

	// The parent task stays blocked; rejection resolves nothing.
	got := env.getTask(t, task.ID)
	if got.Status != model.StatusBlocked {
		t.Errorf("parent status = %s, want %s", got.Status, model.StatusBlocked)
	}

	if got := env.notificationsOfType(t, "hlp-1", model.NotifyDependencyRejected); len(got) != 1 {
		t.Errorf("rejection notifications to helper = %d, want 1", len(got))
	}
}

func TestRejectDependencyTask_RequiresReason(t *testing.T) {
	env := newTestEnv(t)
	_, res := blockWithHelpers(t, env, "hlp-1")
	depID := res.CreatedDependencyIDs[0]
	completeDep(t, env, depID, "hlp-1")

	err := env.eng.RejectDependencyTask(context.Background(), depID, "emp-1", " ")
	if !IsValidation(err) {
		t.Fatalf("expected validation error for blank reason, got %v", err)
	}
}

func TestRejectDependencyTask_RetractsUnresolvedAcceptance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task, res := blockWithHelpers(t, env, "hlp-1", "hlp-2")
	depID := res.CreatedDependencyIDs[0]
	completeDep(t, env, depID, "hlp-1")

	// One of two accepted: the blocker is still unresolved, so the
	// acceptance can be taken back.
	if err := env.eng.AcceptDependencyTask(ctx, depID, "emp-1"); err != nil {
		t.Fatalf("accepting: %v", err)
	}
	if err := env.eng.RejectDependencyTask(ctx, depID, "emp-1", "spotted a regression"); err != nil {
		t.Fatalf("rejecting accepted work: %v", err)
	}

	dep := env.getDep(t, depID)
	if dep.AcceptedByID != nil || dep.AcceptedByName != nil || dep.AcceptedAt != nil {
		t.Errorf("rejection kept acceptance fields: %+v", dep)
	}
	if dep.SubmittedForReview {
		t.Error("rejected dependency task still submitted for review")
	}
	if dep.Status != model.DependencyInProgress {
		t.Errorf("status = %s, want %s", dep.Status, model.DependencyInProgress)
	}
	if got := env.getTask(t, task.ID); got.Status != model.StatusBlocked {
		t.Errorf("parent status = %s, want %s", got.Status, model.StatusBlocked)
	}
}

func TestRejectDependencyTask_AfterResolutionConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task, res := blockWithHelpers(t, env, "hlp-1")
	depID := res.CreatedDependencyIDs[0]
	completeDep(t, env, depID, "hlp-1")

	// The sole acceptance resolves the blocker; retraction is too late.
	if err := env.eng.AcceptDependencyTask(ctx, depID, "emp-1"); err != nil {
		t.Fatalf("accepting: %v", err)
	}
	if got := env.getTask(t, task.ID); got.Status != model.StatusInProgress {
		t.Fatalf("parent status = %s, want %s", got.Status, model.StatusInProgress)
	}
	if err := env.eng.RejectDependencyTask(ctx, depID, "emp-1", "changed my mind"); !IsConflict(err) {
		t.Fatalf("expected conflict rejecting after resolution, got %v", err)
	}
}
