// Package tasksync keeps an in-memory view of the task list in step with the
// remote, falling back to the cached snapshot when the remote is unreachable.
package tasksync

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"todosync/internal/logging"
	"todosync/internal/service"
)

// Gateway is the remote side of the orchestrator.
type Gateway interface {
	List(ctx context.Context) ([]service.Task, error)
	Create(ctx context.Context, patch service.TaskPatch) (service.Task, error)
	Update(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error)
	Delete(ctx context.Context, id string) (string, error)
}

// Snapshot is the offline copy consulted when the remote fails.
type Snapshot interface {
	Read(ctx context.Context) ([]service.Task, bool)
}

// Trigger names what caused a load.
type Trigger string

const (
	// TriggerStartup is the load issued when a stored credential is found at start.
	TriggerStartup Trigger = "startup"
	// TriggerVisible is the load issued when the user comes back to the app.
	TriggerVisible Trigger = "visible"
	// TriggerPageLoad is an explicit request for the list.
	TriggerPageLoad Trigger = "page_load"
)

// State is the sync state reported by Status.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateSynced  State = "synced"
	StateError   State = "error"
)

// Status describes the most recent load.
type Status struct {
	State    State
	LastSync time.Time // last successful remote read
	Stale    bool      // the view was served from the snapshot
	Err      error     // remote failure of the last load
}

// LoadResult is the outcome of a load. Stale is set when Items came from the
// snapshot because the remote failed.
type LoadResult struct {
	Items []service.Task
	Stale bool
}

// Orchestrator coordinates loads and mutations.
type Orchestrator struct {
	gw     Gateway
	snap   Snapshot
	logger *slog.Logger
	now    func() time.Time
	group  singleflight.Group

	mu     sync.Mutex
	items  []service.Task
	status Status
}

// New creates an Orchestrator.
func New(gw Gateway, snap Snapshot, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		gw:     gw,
		snap:   snap,
		logger: logging.OrDefault(logger),
		now:    time.Now,
		status: Status{State: StateIdle},
	}
}

// Load refreshes the view and returns its items.
func (o *Orchestrator) Load(ctx context.Context, trigger Trigger) ([]service.Task, error) {
	res, err := o.LoadDetailed(ctx, trigger)
	return res.Items, err
}

// LoadDetailed refreshes the view from the remote, or from the snapshot when
// the remote fails. Without a snapshot the remote error is returned.
// Concurrent loads share one remote read.
func (o *Orchestrator) LoadDetailed(ctx context.Context, trigger Trigger) (LoadResult, error) {
	res, err := o.load(ctx, trigger)
	if err != nil {
		return LoadResult{}, err
	}
	o.applyLoad(res)
	return res, nil
}

// Create adds a task and appends it to the view.
func (o *Orchestrator) Create(ctx context.Context, patch service.TaskPatch) (service.Task, error) {
	return o.StartCreate(ctx, patch).Wait()
}

// Update changes a task and replaces it in the view.
func (o *Orchestrator) Update(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	return o.StartUpdate(ctx, id, patch).Wait()
}

// Delete removes a task from the remote and the view.
func (o *Orchestrator) Delete(ctx context.Context, id string) (string, error) {
	return o.StartDelete(ctx, id).Wait()
}

// StartLoad runs LoadDetailed in the background.
func (o *Orchestrator) StartLoad(ctx context.Context, trigger Trigger) *Handle[LoadResult] {
	return start(ctx, func(ctx context.Context) (LoadResult, error) {
		return o.load(ctx, trigger)
	}, o.applyLoad)
}

// StartCreate creates a task in the background and appends it to the view
// unless the handle was cancelled.
func (o *Orchestrator) StartCreate(ctx context.Context, patch service.TaskPatch) *Handle[service.Task] {
	return start(ctx, func(ctx context.Context) (service.Task, error) {
		return o.gw.Create(ctx, patch)
	}, o.applyTask)
}

// StartUpdate updates a task in the background.
func (o *Orchestrator) StartUpdate(ctx context.Context, id string, patch service.TaskPatch) *Handle[service.Task] {
	return start(ctx, func(ctx context.Context) (service.Task, error) {
		return o.gw.Update(ctx, id, patch)
	}, o.applyTask)
}

// StartDelete deletes a task in the background.
func (o *Orchestrator) StartDelete(ctx context.Context, id string) *Handle[string] {
	return start(ctx, func(ctx context.Context) (string, error) {
		return o.gw.Delete(ctx, id)
	}, o.applyDelete)
}

// Items returns a copy of the view.
func (o *Orchestrator) Items() []service.Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.items)
}

// Status returns the sync status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// load performs the shared remote read and waits for it or for ctx.
func (o *Orchestrator) load(ctx context.Context, trigger Trigger) (LoadResult, error) {
	o.logger.Debug("load requested", slog.String(logging.KeyTrigger, string(trigger)))

	// The read is shared, so one caller giving up must not cancel it for the others.
	shared := context.WithoutCancel(ctx)
	ch := o.group.DoChan("load", func() (any, error) {
		return o.fetch(shared)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return LoadResult{}, r.Err
		}
		res := r.Val.(LoadResult)
		res.Items = slices.Clone(res.Items)
		return res, nil
	case <-ctx.Done():
		return LoadResult{}, ctx.Err()
	}
}

func (o *Orchestrator) fetch(ctx context.Context) (LoadResult, error) {
	start := time.Now()
	o.setState(StateSyncing)

	items, err := o.gw.List(ctx)
	if err == nil {
		o.mu.Lock()
		o.status = Status{State: StateSynced, LastSync: o.now()}
		o.mu.Unlock()
		o.logger.Debug("loaded from remote", slog.Int(logging.KeyCount, len(items)), logging.Duration(start))
		return LoadResult{Items: items}, nil
	}

	cached, ok := o.snap.Read(ctx)
	o.mu.Lock()
	o.status = Status{State: StateError, LastSync: o.status.LastSync, Stale: ok, Err: err}
	o.mu.Unlock()
	if !ok {
		o.logger.Debug("load failed and no snapshot available", logging.Duration(start), logging.Err(err))
		return LoadResult{}, err
	}
	o.logger.Warn("remote unavailable, serving cached tasks",
		slog.Int(logging.KeyCount, len(cached)), logging.Err(err))
	return LoadResult{Items: cached, Stale: true}, nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.State = s
}

func (o *Orchestrator) applyLoad(res LoadResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = slices.Clone(res.Items)
}

// applyTask replaces the task with the same ID or appends it. UpdatedAt never
// moves backwards for an ID already in the view.
func (o *Orchestrator) applyTask(t service.Task) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.items {
		if o.items[i].ID == t.ID {
			if t.UpdatedAt.Before(o.items[i].UpdatedAt) {
				t.UpdatedAt = o.items[i].UpdatedAt
			}
			o.items[i] = t
			return
		}
	}
	o.items = append(o.items, t)
}

func (o *Orchestrator) applyDelete(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = slices.DeleteFunc(o.items, func(t service.Task) bool { return t.ID == id })
}
