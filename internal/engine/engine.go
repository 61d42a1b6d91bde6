// Package engine implements the task workflow: the status state machine,
// the blocker and dependency-task protocol, and the coordinator that
// auto-resolves a blocker once every dependency task under it is accepted.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskflow/internal/identity"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/notify"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/internal/watch"
)

// defaultDependencyDueOffset is the fallback due-date offset for
// dependency tasks when the parent task has no due date.
const defaultDependencyDueOffset = 7 * 24 * time.Hour

// Options configures a new Engine. Store, Identity, and Dispatcher are
// required; the rest default sensibly.
type Options struct {
	Store      store.Store
	Identity   identity.Provider
	Dispatcher *notify.Dispatcher

	// Hub, when set, receives a change event after every committed
	// mutation.
	Hub *watch.Hub

	Clock  Clock
	Logger *slog.Logger

	// DependencyDueOffset overrides the fallback dependency due date
	// (parent due date absent). Zero means seven days.
	DependencyDueOffset time.Duration
}

// Engine coordinates all workflow mutations. Mutations to a task and the
// blockers and dependency tasks under it are serialized per task id and
// committed in single store transactions, so no reader observes a
// half-applied state.
type Engine struct {
	store      store.Store
	identity   identity.Provider
	dispatcher *notify.Dispatcher
	hub        *watch.Hub
	clock      Clock
	logger     *slog.Logger
	dueOffset  time.Duration
	locks      *keyedLocks
}

// New creates an Engine from opts.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("engine requires a store")
	}
	if opts.Identity == nil {
		return nil, fmt.Errorf("engine requires an identity provider")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("engine requires a notification dispatcher")
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.DependencyDueOffset <= 0 {
		opts.DependencyDueOffset = defaultDependencyDueOffset
	}

	return &Engine{
		store:      opts.Store,
		identity:   opts.Identity,
		dispatcher: opts.Dispatcher,
		hub:        opts.Hub,
		clock:      opts.Clock,
		logger:     opts.Logger,
		dueOffset:  opts.DependencyDueOffset,
		locks:      newKeyedLocks(),
	}, nil
}

// NewFromConfig assembles an Engine governed by cfg: the dependency due
// offset, the notification retry policy, and the watch hub buffer all come
// from the configuration. Store and Identity must be set on opts as for
// New; the Dispatcher, Hub, and DependencyDueOffset fields are filled from
// cfg. The returned hub is the one wired into the engine.
func NewFromConfig(cfg *model.AppConfig, opts Options, transport notify.Transport) (*Engine, *watch.Hub, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("engine requires a configuration")
	}

	hub := watch.NewHub(cfg.Engine.WatchBufferSize)
	opts.Hub = hub
	opts.Dispatcher = notify.NewDispatcher(opts.Store, transport, opts.Logger, notify.Config{
		MaxRetries: cfg.Engine.NotifyMaxRetries,
		Backoff:    time.Duration(cfg.Engine.NotifyRetryBackoffMS) * time.Millisecond,
	})
	opts.DependencyDueOffset = time.Duration(cfg.Engine.DependencyDueOffsetDays) * 24 * time.Hour

	eng, err := New(opts)
	if err != nil {
		return nil, nil, err
	}
	return eng, hub, nil
}

// CreateTaskRequest carries the fields for a new task.
type CreateTaskRequest struct {
	Title       string
	Description string
	AssigneeID  string
	Priority    int
	DueDate     *time.Time
	ActorID     string // the assigner; must hold the manager role
}

// CreateTask creates a task in status not_started. Only manager-role
// actors may create tasks.
func (e *Engine) CreateTask(ctx context.Context, req CreateTaskRequest) (*model.Task, error) {
	actor, err := e.identity.Lookup(ctx, req.ActorID)
	if err != nil {
		return nil, fmt.Errorf("looking up actor: %w", err)
	}
	if !actor.IsManager() {
		return nil, &AuthorizationError{ActorID: actor.ID, Role: actor.Role, Operation: "create a task"}
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if _, err := e.identity.Lookup(ctx, req.AssigneeID); err != nil {
		return nil, &ValidationError{Field: "assignee_id", Reason: "unknown assignee"}
	}

	now := e.clock.Now()
	task := model.Task{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		AssignerID:  actor.ID,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Status:      model.StatusNotStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = e.store.WithTx(ctx, func(s store.Store) error {
		if err := s.CreateTask(ctx, task); err != nil {
			return err
		}
		return s.AppendActivity(ctx, e.newActivity(
			model.KindTask, task.ID, model.ActivityTaskCreated,
			"Task Created", "", actor, now, nil,
		))
	})
	if err != nil {
		return nil, err
	}

	e.publish(watch.EventTaskUpdated, task.ID, task.ID, string(task.Status), now)
	return &task, nil
}

// GetTask loads a task with its blocker history.
func (e *Engine) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return e.store.GetTaskByID(ctx, id)
}

// AddProgressNote appends a note to a task or dependency task. Task notes
// may come from the assignee or assigner; dependency-task notes only from
// the assigned helper.
func (e *Engine) AddProgressNote(ctx context.Context, kind model.EntityKind, entityID, actorID, text string) error {
	actor, err := e.identity.Lookup(ctx, actorID)
	if err != nil {
		return fmt.Errorf("looking up actor: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "text", Reason: "must not be empty"}
	}

	switch kind {
	case model.KindTask:
		task, err := e.store.GetTaskByID(ctx, entityID)
		if err != nil {
			return err
		}
		if actor.ID != task.AssigneeID && actor.ID != task.AssignerID {
			return &AuthorizationError{ActorID: actor.ID, Role: actor.Role, Operation: "add a progress note to this task"}
		}
	case model.KindDependencyTask:
		dep, err := e.store.GetDependencyTaskByID(ctx, entityID)
		if err != nil {
			return err
		}
		if actor.ID != dep.AssigneeID {
			return &AuthorizationError{ActorID: actor.ID, Role: actor.Role, Operation: "add a progress note to this dependency task"}
		}
	default:
		return &ValidationError{Field: "entity_kind", Reason: fmt.Sprintf("unknown kind %q", kind)}
	}

	now := e.clock.Now()
	return e.store.WithTx(ctx, func(s store.Store) error {
		if err := s.AddProgressNote(ctx, model.ProgressNote{
			EntityKind: kind,
			EntityID:   entityID,
			AuthorID:   actor.ID,
			AuthorName: actor.Name,
			Text:       text,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		return s.AppendActivity(ctx, e.newActivity(
			kind, entityID, model.ActivityProgressNote,
			"Progress Note Added", text, actor, now, nil,
		))
	})
}

// AddFeedback appends a manager feedback entry to a task.
func (e *Engine) AddFeedback(ctx context.Context, taskID, actorID, text string) error {
	actor, err := e.identity.Lookup(ctx, actorID)
	if err != nil {
		return fmt.Errorf("looking up actor: %w", err)
	}
	if !actor.IsManager() {
		return &AuthorizationError{ActorID: actor.ID, Role: actor.Role, Operation: "add manager feedback"}
	}
	if strings.TrimSpace(text) == "" {
		return &ValidationError{Field: "text", Reason: "must not be empty"}
	}

	task, err := e.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	err = e.store.WithTx(ctx, func(s store.Store) error {
		if err := s.AddFeedback(ctx, model.FeedbackEntry{
			TaskID:      task.ID,
			ManagerID:   actor.ID,
			ManagerName: actor.Name,
			Text:        text,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		return s.AppendActivity(ctx, e.newActivity(
			model.KindTask, task.ID, model.ActivityFeedback,
			"Manager Feedback Added", text, actor, now, nil,
		))
	})
	if err != nil {
		return err
	}

	e.dispatcher.Dispatch(ctx, []string{task.AssigneeID}, model.NotifyManagerFeedback,
		fmt.Sprintf("New feedback on %q from %s", task.Title, actor.Name),
		map[string]string{"task_id": task.ID})
	return nil
}

// newActivity builds an activity entry stamped with the actor and clock.
func (e *Engine) newActivity(kind model.EntityKind, entityID, typ, title, description string, actor model.Actor, now time.Time, metadata map[string]string) model.ActivityEntry {
	return model.ActivityEntry{
		EntityKind:  kind,
		EntityID:    entityID,
		Type:        typ,
		Title:       title,
		Description: description,
		ActorID:     actor.ID,
		ActorName:   actor.Name,
		Metadata:    metadata,
		CreatedAt:   now,
	}
}

// publish emits a change event when a hub is attached.
func (e *Engine) publish(typ watch.EventType, taskID, entityID, status string, at time.Time) {
	if e.hub == nil {
		return
	}
	e.hub.Publish(watch.Event{
		Type:     typ,
		TaskID:   taskID,
		EntityID: entityID,
		Status:   status,
		At:       at,
	})
}
