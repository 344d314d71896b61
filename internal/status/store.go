// Package status tracks task state for a run and fans out change events.
//
// The Store has a single-writer contract: only the execution engine calls
// Register and Publish. Everything else reads committed state through
// Snapshot/Get or consumes the event stream via Subscribe. Subscribers
// receive events on buffered channels and are dropped from delivery when
// they fall behind, so a slow reader never blocks the writer.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/harrison/stagehand/internal/models"
)

// Event describes a single task status change.
type Event struct {
	Group  string
	TaskID string
	Old    models.CommandStatus
	New    models.CommandStatus
	At     time.Time
	Reason string
}

// Store is a concurrency-safe record of every task in a run.
type Store struct {
	mu          sync.RWMutex
	tasks       map[string]*models.Task
	order       []string
	subscribers map[chan Event]struct{}
	closed      bool
}

// subscriberBuffer is the per-subscriber channel capacity. Large enough to
// absorb bursts from a parallel group finishing at once.
const subscriberBuffer = 64

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		tasks:       make(map[string]*models.Task),
		subscribers: make(map[chan Event]struct{}),
	}
}

// Register seeds the store with tasks in plan order. Registered tasks are
// expected to be Pending; their state is copied, not shared.
func (s *Store) Register(tasks ...*models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, task := range tasks {
		if _, exists := s.tasks[task.ID]; exists {
			continue
		}
		s.tasks[task.ID] = task.Clone()
		s.order = append(s.order, task.ID)
	}
}

// Publish commits the task's current state to the store. When the status
// differs from the stored one the transition is validated and an event is
// emitted; otherwise only the task fields (output, timestamps) are updated.
// The caller keeps ownership of task; the store keeps a copy.
func (s *Store) Publish(task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.tasks[task.ID]
	if !exists {
		return fmt.Errorf("task %q not registered", task.ID)
	}

	old := current.Status
	if old != task.Status && !models.ValidTransition(old, task.Status) {
		return fmt.Errorf("task %q: illegal transition %s -> %s", task.ID, old, task.Status)
	}

	s.tasks[task.ID] = task.Clone()

	if old != task.Status {
		s.emit(Event{
			Group:  task.Group,
			TaskID: task.ID,
			Old:    old,
			New:    task.Status,
			At:     time.Now(),
			Reason: task.SkipReason,
		})
	}
	return nil
}

// emit delivers an event to every subscriber without blocking.
// Caller must hold s.mu.
func (s *Store) emit(event Event) {
	if s.closed {
		return
	}
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is not keeping up; drop rather than block the run.
		}
	}
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, exists := s.tasks[id]
	if !exists {
		return models.Task{}, false
	}
	return *task.Clone(), true
}

// Snapshot returns copies of all tasks in registration order.
func (s *Store) Snapshot() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.tasks[id].Clone())
	}
	return out
}

// Counts returns the number of tasks in each status.
func (s *Store) Counts() map[models.CommandStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.CommandStatus]int)
	for _, task := range s.tasks {
		counts[task.Status]++
	}
	return counts
}

// Subscribe returns a channel of future status events and a cleanup func.
// Subscribing after Close returns a closed channel.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		empty := make(chan Event)
		close(empty)
		return empty, func() {}
	}
	ch := make(chan Event, subscriberBuffer)
	s.subscribers[ch] = struct{}{}
	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Close ends the event stream. All subscriber channels are closed and
// further publishes update state without emitting events.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, ch)
	}
}
