// Package broadcast implements the progress broadcaster: it fans out upload
// task snapshots from the owning worker to any number of subscribers (e.g.
// live progress streams) without ever blocking the worker.
package broadcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/slok/recup/internal/log"
	"github.com/slok/recup/internal/model"
)

// EventType is the kind of event delivered to a subscriber.
type EventType string

const (
	// EventTypeConnected is delivered once, immediately after subscribing.
	EventTypeConnected EventType = "connected"
	// EventTypeProgress is delivered on every task update.
	EventTypeProgress EventType = "progress"
	// EventTypeClosed is delivered once the task reaches a terminal state,
	// just before the subscription channel is closed.
	EventTypeClosed EventType = "closed"
)

// Event is a progress event carrying a task snapshot.
type Event struct {
	Type EventType
	Task model.UploadTask
}

// Subscription is a handle on a subscriber's delivery channel.
type Subscription struct {
	ID     string
	TaskID string
	ch     chan Event
}

// C returns the delivery channel. It is closed when the subscription is
// released, either by Unsubscribe or because the task closed.
func (s *Subscription) C() <-chan Event { return s.ch }

// Config is the configuration for the broadcaster.
type Config struct {
	// Buffer is the per-subscriber channel buffer. Events for a subscriber
	// with a full buffer are dropped.
	Buffer int
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Buffer <= 0 {
		c.Buffer = 16
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "broadcast.Broadcaster"})
	return nil
}

// Broadcaster fans out task events to per-task subscriber sets. Delivery is
// best-effort: publishing never blocks.
type Broadcaster struct {
	subs   map[string]map[string]*Subscription // Task ID → subscription ID → subscription.
	mu     sync.Mutex
	buffer int
	logger log.Logger
}

// New creates a new broadcaster.
func New(cfg Config) (*Broadcaster, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Broadcaster{
		subs:   map[string]map[string]*Subscription{},
		buffer: cfg.Buffer,
		logger: cfg.Logger,
	}, nil
}

// Subscribe attaches a new subscriber to a task. The returned subscription
// immediately receives a connected event carrying the given snapshot.
func (b *Broadcaster) Subscribe(ctx context.Context, task model.UploadTask) (*Subscription, error) {
	sub := &Subscription{
		ID:     ulid.Make().String(),
		TaskID: task.ID,
		ch:     make(chan Event, b.buffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	taskSubs, ok := b.subs[task.ID]
	if !ok {
		taskSubs = map[string]*Subscription{}
		b.subs[task.ID] = taskSubs
	}
	taskSubs[sub.ID] = sub

	// Buffered, can't block: the channel is fresh.
	sub.ch <- Event{Type: EventTypeConnected, Task: task}

	b.logger.Debugf("Subscriber %s attached to task %s", sub.ID, task.ID)

	return sub, nil
}

// Unsubscribe detaches a subscriber and closes its channel. Safe to call
// after the task already closed.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	taskSubs, ok := b.subs[sub.TaskID]
	if !ok {
		return
	}
	if _, ok := taskSubs[sub.ID]; !ok {
		return
	}

	delete(taskSubs, sub.ID)
	if len(taskSubs) == 0 {
		delete(b.subs, sub.TaskID)
	}
	close(sub.ch)

	b.logger.Debugf("Subscriber %s detached from task %s", sub.ID, sub.TaskID)
}

// Publish delivers a progress snapshot to every subscriber of the task,
// dropping it for subscribers whose buffer is full.
func (b *Broadcaster) Publish(ctx context.Context, task model.UploadTask) {
	b.publish(Event{Type: EventTypeProgress, Task: task})
}

// Close delivers a final closed event with the terminal snapshot and releases
// every subscription of the task.
func (b *Broadcaster) Close(ctx context.Context, task model.UploadTask) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs[task.ID] {
		select {
		case sub.ch <- Event{Type: EventTypeClosed, Task: task}:
		default:
		}
		close(sub.ch)
	}
	delete(b.subs, task.ID)
}

func (b *Broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs[ev.Task.ID] {
		select {
		case sub.ch <- ev:
		default:
			// Slow subscriber, drop the event.
		}
	}
}
