// Package gateway translates between local tasks and the remote task API.
//
// Every call checks for a stored token before touching the network, resolves
// the default list, and on an auth failure refreshes the token once and
// replays the call once. Mutations are followed by a full resync; when the
// resync fails the cache is patched with the mutated item instead.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"todosync/internal/cache"
	"todosync/internal/kvstore"
	"todosync/internal/logging"
	"todosync/internal/service"
)

// PlaceholderListID is returned when the provider reports no task lists.
// Google Tasks resolves it to the user's default list.
const PlaceholderListID = "@default"

// Credentials is the stored sign-in state the gateway depends on.
type Credentials interface {
	// AccessToken returns the current access token.
	AccessToken(ctx context.Context) (string, error)
	// Clear deletes the stored credential.
	Clear(ctx context.Context) error
}

// Gateway performs task CRUD against a service.Remote.
type Gateway struct {
	remote    service.Remote
	creds     Credentials
	refresher service.TokenRefresher
	kv        kvstore.Store
	cache     *cache.Cache
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithClock overrides the time source used for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// New creates a Gateway.
func New(remote service.Remote, creds Credentials, refresher service.TokenRefresher, kv kvstore.Store, c *cache.Cache, opts ...Option) *Gateway {
	g := &Gateway{
		remote:    remote,
		creds:     creds,
		refresher: refresher,
		kv:        kv,
		cache:     c,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.OrDefault(g.logger)
	return g
}

// List returns every task of the default list and replaces the cache snapshot.
func (g *Gateway) List(ctx context.Context) ([]service.Task, error) {
	start := time.Now()
	var remote []service.RemoteTask
	err := g.call(ctx, "list", func(ctx context.Context, listID string) error {
		var err error
		remote, err = g.remote.ListTasks(ctx, listID)
		return err
	})
	if err != nil {
		g.logger.Debug("list failed", logging.Operation("list"), logging.Duration(start), logging.Err(err))
		return nil, err
	}

	items := make([]service.Task, 0, len(remote))
	for _, rt := range remote {
		items = append(items, toTask(rt))
	}
	if err := g.cache.WriteAll(ctx, items); err != nil {
		g.logger.Warn("failed to write task cache", logging.Err(err))
	}
	g.logger.Debug("listed tasks", logging.Operation("list"), slog.Int(logging.KeyCount, len(items)), logging.Duration(start))
	return items, nil
}

// Create inserts a task built from patch. Title is required.
func (g *Gateway) Create(ctx context.Context, patch service.TaskPatch) (service.Task, error) {
	if patch.Title == nil || strings.TrimSpace(*patch.Title) == "" {
		return service.Task{}, service.ValidationError("create", "title required")
	}

	var created service.RemoteTask
	err := g.call(ctx, "create", func(ctx context.Context, listID string) error {
		var err error
		created, err = g.remote.InsertTask(ctx, listID, g.toRemote(patch))
		return err
	})
	if err != nil {
		return service.Task{}, err
	}
	return g.resync(ctx, "create", toTask(created)), nil
}

// Update applies patch to the task with id. A present title must not be blank.
func (g *Gateway) Update(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	if strings.TrimSpace(id) == "" {
		return service.Task{}, service.ValidationError("update", "task id required")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return service.Task{}, service.ValidationError("update", "title required")
	}

	var updated service.RemoteTask
	err := g.call(ctx, "update", func(ctx context.Context, listID string) error {
		var err error
		updated, err = g.remote.UpdateTask(ctx, listID, id, g.toRemote(patch))
		return err
	})
	if err != nil {
		return service.Task{}, err
	}
	return g.resync(ctx, "update", toTask(updated)), nil
}

// Delete removes the task with id and returns the id.
func (g *Gateway) Delete(ctx context.Context, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", service.ValidationError("delete", "task id required")
	}

	err := g.call(ctx, "delete", func(ctx context.Context, listID string) error {
		return g.remote.DeleteTask(ctx, listID, id)
	})
	if err != nil {
		return "", err
	}

	if _, err := g.List(ctx); err != nil {
		g.logger.Warn("resync after delete failed, patching cache",
			logging.Operation("delete"), slog.String(logging.KeyTaskID, id), logging.Err(err))
		if err := g.cache.RemoveOne(ctx, id); err != nil {
			g.logger.Warn("failed to patch task cache", logging.Err(err))
		}
	}
	return id, nil
}

// ClearDefaultList forgets the memoized default list handle.
func (g *Gateway) ClearDefaultList(ctx context.Context) error {
	return g.kv.Delete(ctx, kvstore.KeyDefaultListID)
}

// resync reloads the list after a mutation and returns the authoritative copy
// of item. On failure the cache is patched with item and item is returned.
func (g *Gateway) resync(ctx context.Context, op string, item service.Task) service.Task {
	items, err := g.List(ctx)
	if err != nil {
		g.logger.Warn("resync after mutation failed, patching cache",
			logging.Operation(op), slog.String(logging.KeyTaskID, item.ID), logging.Err(err))
		if err := g.cache.PatchOne(ctx, item); err != nil {
			g.logger.Warn("failed to patch task cache", logging.Err(err))
		}
		return item
	}
	for _, t := range items {
		if t.ID == item.ID {
			return t
		}
	}
	return item
}

// call runs fn against the default list with the auth precondition and the
// single refresh-and-retry policy. When the credential cannot be renewed it is
// discarded along with the default list handle.
func (g *Gateway) call(ctx context.Context, op string, fn func(ctx context.Context, listID string) error) error {
	tok, err := g.creds.AccessToken(ctx)
	if err != nil {
		return service.AuthError(op, err)
	}
	logger := logging.WithOperation(g.logger, op)

	attempt := func() error {
		listID, err := g.defaultList(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, listID)
	}

	err = attempt()
	if !service.IsAuth(err) {
		return err
	}

	logger.Info("remote rejected token, refreshing", slog.String(logging.KeyToken, logging.SanitizeToken(tok)))
	if _, rerr := g.refresher.RefreshToken(ctx); rerr != nil {
		if !service.IsAuth(rerr) {
			// The provider was unreachable; the credential may still be renewable.
			return rerr
		}
		g.discardCredential(ctx, logger)
		return service.AuthError(op, fmt.Errorf("token refresh failed: %w", rerr))
	}

	err = attempt()
	if service.IsAuth(err) {
		g.discardCredential(ctx, logger)
		return service.AuthError(op, fmt.Errorf("rejected after refresh: %w", err))
	}
	return err
}

// discardCredential deletes a credential that can no longer be renewed. The
// cache snapshot is kept for offline reads.
func (g *Gateway) discardCredential(ctx context.Context, logger *slog.Logger) {
	logger.Warn("credential cannot be renewed, discarding")
	if err := g.creds.Clear(ctx); err != nil {
		logger.Warn("failed to clear credential", logging.Err(err))
	}
	if err := g.ClearDefaultList(ctx); err != nil {
		logger.Warn("failed to clear default list handle", logging.Err(err))
	}
}

// defaultList returns the memoized list handle, resolving it on first use.
func (g *Gateway) defaultList(ctx context.Context) (string, error) {
	id, err := g.kv.Get(ctx, kvstore.KeyDefaultListID)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		g.logger.Warn("failed to read default list handle", logging.Err(err))
	}

	lists, err := g.remote.ListLists(ctx)
	if err != nil {
		return "", err
	}
	if len(lists) == 0 {
		// Not memoized, so a list created later is picked up.
		g.logger.Warn("provider returned no task lists, using placeholder",
			slog.String(logging.KeyListID, PlaceholderListID))
		return PlaceholderListID, nil
	}

	id = lists[0].ID
	if err := g.kv.Set(ctx, kvstore.KeyDefaultListID, id); err != nil {
		g.logger.Warn("failed to store default list handle", logging.Err(err))
	}
	g.logger.Debug("resolved default list", slog.String(logging.KeyListID, id))
	return id, nil
}
