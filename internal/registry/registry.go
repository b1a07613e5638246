// Package registry implements the in-memory upload task registry. It is the
// single source of truth for task state: workers write through Update and
// every reader gets an independent snapshot.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/recup/internal/log"
	"github.com/slok/recup/internal/model"
)

// Config is the configuration for the registry.
type Config struct {
	// Retention is how long terminal tasks stay queryable before the janitor
	// reaps them.
	Retention time.Duration
	// JanitorInterval is how often the janitor looks for reapable tasks.
	JanitorInterval time.Duration
	Logger          log.Logger
}

func (c *Config) defaults() error {
	if c.Retention <= 0 {
		c.Retention = 1 * time.Hour
	}
	if c.JanitorInterval <= 0 {
		c.JanitorInterval = 1 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "registry.Registry"})
	return nil
}

// Registry is a concurrency-safe store of upload tasks keyed by task ID.
type Registry struct {
	tasks           map[string]model.UploadTask
	mu              sync.RWMutex
	retention       time.Duration
	janitorInterval time.Duration
	logger          log.Logger
}

// New creates a new task registry.
func New(cfg Config) (*Registry, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Registry{
		tasks:           map[string]model.UploadTask{},
		retention:       cfg.Retention,
		janitorInterval: cfg.JanitorInterval,
		logger:          cfg.Logger,
	}, nil
}

// Create registers a new task.
func (r *Registry) Create(ctx context.Context, t model.UploadTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return fmt.Errorf("task %s: %w", t.ID, model.ErrAlreadyExists)
	}

	r.tasks[t.ID] = t
	r.logger.Debugf("Registered task %s for %s", t.ID, t.SourcePath)

	return nil
}

// Get returns a snapshot of a task.
func (r *Registry) Get(ctx context.Context, id string) (*model.UploadTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	// Return a copy.
	taskCopy := task
	return &taskCopy, nil
}

// List returns snapshots of all registered tasks.
func (r *Registry) List(ctx context.Context) ([]model.UploadTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]model.UploadTask, 0, len(r.tasks))
	for _, task := range r.tasks {
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// Update applies an atomic read-modify-write on a task and returns the
// resulting snapshot. It enforces the task invariants regardless of what the
// mutator does: terminal tasks are never mutated again, and progress is
// clamped to [0, 100] and never regresses.
func (r *Registry) Update(ctx context.Context, id string, mutate func(t *model.UploadTask)) (*model.UploadTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	if task.Terminal() {
		taskCopy := task
		return &taskCopy, nil
	}

	prevProgress := task.Progress
	mutate(&task)

	if task.Progress < prevProgress {
		task.Progress = prevProgress
	}
	if task.Progress > 100 {
		task.Progress = 100
	}
	if task.Terminal() && task.FinishedAt == nil {
		now := time.Now().UTC()
		task.FinishedAt = &now
	}

	r.tasks[id] = task

	taskCopy := task
	return &taskCopy, nil
}

// Delete removes a task.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	delete(r.tasks, id)
	r.logger.Debugf("Deleted task %s", id)

	return nil
}

// Run runs the janitor loop that reaps terminal tasks after the retention
// window, bounding registry memory. Blocks until the context is done.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.reap(time.Now().UTC())
		}
	}
}

func (r *Registry) reap(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, task := range r.tasks {
		if task.FinishedAt == nil || now.Sub(*task.FinishedAt) < r.retention {
			continue
		}
		delete(r.tasks, id)
		r.logger.Debugf("Reaped task %s (%s)", id, task.Status)
	}
}
