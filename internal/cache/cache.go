// Package cache keeps the last known-good task list as a serialized snapshot
// for offline fallback.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"todosync/internal/kvstore"
	"todosync/internal/logging"
	"todosync/internal/service"
)

// Cache stores the task snapshot in the key-value area.
type Cache struct {
	kv     kvstore.Store
	logger *slog.Logger
}

// New creates a cache on top of kv.
func New(kv kvstore.Store, logger *slog.Logger) *Cache {
	return &Cache{kv: kv, logger: logging.OrDefault(logger)}
}

// Read returns the snapshot. ok is false when no usable snapshot exists;
// unreadable or corrupt snapshots are logged, dropped and reported as absent.
func (c *Cache) Read(ctx context.Context) (tasks []service.Task, ok bool) {
	raw, err := c.kv.Get(ctx, kvstore.KeyTodosCache)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("failed to read task cache", logging.Err(err))
		return nil, false
	}

	tasks, err = decode(raw)
	if err != nil {
		c.logger.Warn("dropping corrupt task cache", logging.Err(err))
		if derr := c.kv.Delete(ctx, kvstore.KeyTodosCache); derr != nil {
			c.logger.Warn("failed to drop corrupt task cache", logging.Err(derr))
		}
		return nil, false
	}
	return tasks, true
}

// WriteAll replaces the snapshot with tasks.
func (c *Cache) WriteAll(ctx context.Context, tasks []service.Task) error {
	if tasks == nil {
		tasks = []service.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode task cache: %w", err)
	}
	return c.kv.Set(ctx, kvstore.KeyTodosCache, string(data))
}

// PatchOne replaces the entry with task.ID, or appends task if absent.
func (c *Cache) PatchOne(ctx context.Context, task service.Task) error {
	tasks, _ := c.Read(ctx)
	replaced := false
	for i := range tasks {
		if tasks[i].ID == task.ID {
			tasks[i] = task
			replaced = true
			break
		}
	}
	if !replaced {
		tasks = append(tasks, task)
	}
	return c.WriteAll(ctx, tasks)
}

// RemoveOne drops the entry with id. A missing snapshot is left missing.
func (c *Cache) RemoveOne(ctx context.Context, id string) error {
	tasks, ok := c.Read(ctx)
	if !ok {
		return nil
	}
	kept := tasks[:0]
	for _, t := range tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	return c.WriteAll(ctx, kept)
}

// Clear removes the snapshot.
func (c *Cache) Clear(ctx context.Context) error {
	return c.kv.Delete(ctx, kvstore.KeyTodosCache)
}

func decode(raw string) ([]service.Task, error) {
	var tasks []service.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return nil, service.DataError("decode task cache", err)
	}
	for i, t := range tasks {
		if t.ID == "" {
			return nil, service.DataError("decode task cache", fmt.Errorf("entry %d: missing id", i))
		}
		if t.Title == "" {
			return nil, service.DataError("decode task cache", fmt.Errorf("entry %d: missing title", i))
		}
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return tasks, nil
}
