package engine

import (
	"context"
	"testing"

	"github.com/nhle/taskflow/internal/model"
)

func TestAutoResolve_LastAcceptanceUnblocks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task, res := blockWithHelpers(t, env, "hlp-1", "hlp-2")

	completeDep(t, env, res.CreatedDependencyIDs[0], "hlp-1")
	completeDep(t, env, res.CreatedDependencyIDs[1], "hlp-2")

	// One acceptance is not enough.
	if err := env.eng.AcceptDependencyTask(ctx, res.CreatedDependencyIDs[0], "emp-1"); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	mid := env.getTask(t, task.ID)
	if mid.Status != model.StatusBlocked || mid.ActiveBlockerID == nil {
		t.Fatalf("task unblocked after partial acceptance: status=%s blocker=%v", mid.Status, mid.ActiveBlockerID)
	}

	// The second acceptance resolves the blocker in the same commit.
	if err := env.eng.AcceptDependencyTask(ctx, res.CreatedDependencyIDs[1], "emp-1"); err != nil {
		t.Fatalf("second accept: %v", err)
	}

	got := env.getTask(t, task.ID)
	if got.Status != model.StatusInProgress {
		t.Errorf("status = %s, want %s", got.Status, model.StatusInProgress)
	}
	if got.ActiveBlockerID != nil {
		t.Errorf("active blocker = %v, want nil", got.ActiveBlockerID)
	}

	b, err := env.st.GetBlockerByID(ctx, res.Blocker.ID)
	if err != nil {
		t.Fatalf("loading blocker: %v", err)
	}
	if !b.Resolved || !b.AutoResolved {
		t.Errorf("blocker resolved=%v autoResolved=%v, want true/true", b.Resolved, b.AutoResolved)
	}

	titles := env.activityTitles(t, model.KindTask, task.ID)
	found := false
	for _, title := range titles {
		if title == "Blocker Auto-Resolved" {
			found = true
		}
	}
	if !found {
		t.Errorf("no auto-resolution activity entry; titles = %v", titles)
	}

	// Assignee and assigner both hear about the resolution.
	if got := env.notificationsOfType(t, "emp-1", model.NotifyBlockerResolved); len(got) != 1 {
		t.Errorf("assignee resolved notifications = %d, want 1", len(got))
	}
	if got := env.notificationsOfType(t, "mgr-1", model.NotifyBlockerResolved); len(got) != 1 {
		t.Errorf("assigner resolved notifications = %d, want 1", len(got))
	}
}

func TestMaybeResolve_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task, res := blockWithHelpers(t, env, "hlp-1")

	completeDep(t, env, res.CreatedDependencyIDs[0], "hlp-1")
	if err := env.eng.AcceptDependencyTask(ctx, res.CreatedDependencyIDs[0], "emp-1"); err != nil {
		t.Fatalf("accepting: %v", err)
	}
	if got := env.getTask(t, task.ID); got.Status != model.StatusInProgress {
		t.Fatalf("status = %s, want %s", got.Status, model.StatusInProgress)
	}

	before := env.activityTitles(t, model.KindTask, task.ID)
	resolved, err := env.eng.MaybeResolve(ctx, task.ID, "emp-1")
	if err != nil {
		t.Fatalf("re-running resolution: %v", err)
	}
	if resolved {
		t.Error("resolution reported a second time")
	}
	after := env.activityTitles(t, model.KindTask, task.ID)
	if len(after) != len(before) {
		t.Errorf("redundant resolution appended activity: before %d, after %d", len(before), len(after))
	}
}

func TestMaybeResolve_NoDependencyTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task := env.createTask(t)
	env.startTask(t, task.ID)
	env.declareBlocker(t, task.ID)

	resolved, err := env.eng.MaybeResolve(ctx, task.ID, "emp-1")
	if err != nil {
		t.Fatalf("resolution check: %v", err)
	}
	if resolved {
		t.Error("blocker with no dependency tasks auto-resolved")
	}
	if got := env.getTask(t, task.ID); got.Status != model.StatusBlocked {
		t.Errorf("status = %s, want %s", got.Status, model.StatusBlocked)
	}
}

func TestMaybeResolve_UnacceptedWorkRemains(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task, res := blockWithHelpers(t, env, "hlp-1")
	completeDep(t, env, res.CreatedDependencyIDs[0], "hlp-1")

	// Completed but not accepted does not resolve anything.
	resolved, err := env.eng.MaybeResolve(ctx, task.ID, "emp-1")
	if err != nil {
		t.Fatalf("resolution check: %v", err)
	}
	if resolved {
		t.Error("unreviewed dependency task triggered resolution")
	}
}

func TestAutoResolve_AfterRejectAndResubmit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task, res := blockWithHelpers(t, env, "hlp-1")
	depID := res.CreatedDependencyIDs[0]

	completeDep(t, env, depID, "hlp-1")
	if err := env.eng.RejectDependencyTask(ctx, depID, "emp-1", "incomplete"); err != nil {
		t.Fatalf("rejecting: %v", err)
	}

	// The helper redoes the work; completion opens a fresh review round.
	if err := env.eng.AdvanceDependencyStatus(ctx, depID, model.DependencyCompleted, "hlp-1"); err != nil {
		t.Fatalf("resubmitting: %v", err)
	}
	dep := env.getDep(t, depID)
	if dep.RejectedByID != nil || dep.RejectionReason != "" {
		t.Errorf("resubmission kept stale rejection: by=%v reason=%q", dep.RejectedByID, dep.RejectionReason)
	}

	if err := env.eng.AcceptDependencyTask(ctx, depID, "emp-1"); err != nil {
		t.Fatalf("accepting resubmission: %v", err)
	}
	got := env.getTask(t, task.ID)
	if got.Status != model.StatusInProgress {
		t.Errorf("status = %s, want %s", got.Status, model.StatusInProgress)
	}
	dep = env.getDep(t, depID)
	if !dep.Accepted() {
		t.Errorf("dependency task not accepted after review: %+v", dep)
	}
}
