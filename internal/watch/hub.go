// Package watch pushes change events to subscribers per task id, replacing
// client-side polling with an explicit staleness bound: a subscriber sees a
// change as soon as the mutation commits and the event is published.
package watch

import (
	"sync"
	"time"
)

// EventType classifies a change event.
type EventType string

const (
	EventTaskUpdated       EventType = "task_updated"
	EventBlockerDeclared   EventType = "blocker_declared"
	EventBlockerResolved   EventType = "blocker_resolved"
	EventDependencyUpdated EventType = "dependency_updated"
)

// Event describes a committed change under a task.
type Event struct {
	Type EventType

	// TaskID is the parent task the change belongs to. Dependency-task
	// and blocker events carry their parent task's id here.
	TaskID string

	// EntityID is the changed entity: the task itself, a blocker, or a
	// dependency task.
	EntityID string

	// Status is the entity's status after the change, where applicable.
	Status string

	At time.Time
}

// Hub is an in-process fan-out of change events keyed by task id.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Event
	nextID int
	buffer int
}

// NewHub creates a Hub whose subscriber channels buffer up to buffer
// events. Slow subscribers drop events rather than block publishers.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers interest in changes under taskID. The returned
// cancel function must be called to release the subscription; the channel
// is closed when it runs.
func (h *Hub) Subscribe(taskID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	id := h.nextID
	h.nextID++

	if h.subs[taskID] == nil {
		h.subs[taskID] = make(map[int]chan Event)
	}
	h.subs[taskID][id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if chans, ok := h.subs[taskID]; ok {
			if c, ok := chans[id]; ok {
				delete(chans, id)
				close(c)
			}
			if len(chans) == 0 {
				delete(h.subs, taskID)
			}
		}
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber of its task id. Publishing never
// blocks: a full subscriber channel drops the event.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[ev.TaskID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
