package model

import (
	"testing"
	"time"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{
		StatusNotStarted, StatusInProgress, StatusBlocked, StatusSubmitted,
		StatusUnderReview, StatusReworkRequired, StatusAccepted, StatusCompleted,
	} {
		if !s.Valid() {
			t.Errorf("%s reported invalid", s)
		}
	}
	if Status("overdue").Valid() {
		t.Error("overdue accepted as a stored status")
	}
	if Status("").Valid() {
		t.Error("empty status accepted")
	}
}

func TestDependencyStatusNext(t *testing.T) {
	if got := DependencyNotStarted.Next(); got != DependencyInProgress {
		t.Errorf("Next(not_started) = %s", got)
	}
	if got := DependencyInProgress.Next(); got != DependencyCompleted {
		t.Errorf("Next(in_progress) = %s", got)
	}
	if got := DependencyCompleted.Next(); got != "" {
		t.Errorf("Next(completed) = %s, want terminal", got)
	}
}

func TestTaskOverdue(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"no due date", Task{Status: StatusInProgress}, false},
		{"due in future", Task{Status: StatusInProgress, DueDate: &future}, false},
		{"past due, active", Task{Status: StatusInProgress, DueDate: &past}, true},
		{"past due, blocked", Task{Status: StatusBlocked, DueDate: &past}, true},
		{"past due, accepted", Task{Status: StatusAccepted, DueDate: &past}, false},
		{"past due, completed", Task{Status: StatusCompleted, DueDate: &past}, false},
	}
	for _, tc := range cases {
		if got := tc.task.Overdue(now); got != tc.want {
			t.Errorf("%s: Overdue = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDependencyTaskAccepted(t *testing.T) {
	reviewer := "mgr-1"
	d := DependencyTask{Status: DependencyCompleted, SubmittedForReview: true, AcceptedByID: &reviewer}
	if !d.Accepted() {
		t.Error("reviewed dependency task not accepted")
	}

	rejected := d
	rejected.RejectedByID = &reviewer
	if rejected.Accepted() {
		t.Error("rejected dependency task reported accepted")
	}

	unsubmitted := d
	unsubmitted.SubmittedForReview = false
	if unsubmitted.Accepted() {
		t.Error("unsubmitted dependency task reported accepted")
	}

	pending := DependencyTask{Status: DependencyCompleted, SubmittedForReview: true}
	if pending.Accepted() {
		t.Error("unreviewed dependency task reported accepted")
	}
}

func TestActorIsManager(t *testing.T) {
	if (Actor{Role: RoleEmployee}).IsManager() {
		t.Error("employee reported as manager")
	}
	if !(Actor{Role: RoleManager}).IsManager() {
		t.Error("manager not reported as manager")
	}
	if !(Actor{Role: RoleAdmin}).IsManager() {
		t.Error("admin lacks manager permissions")
	}
}
