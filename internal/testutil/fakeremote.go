// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"todosync/internal/service"
)

// Operation names accepted by FakeRemote.FailNext and FakeRemote.Calls.
const (
	OpListLists  = "ListLists"
	OpListTasks  = "ListTasks"
	OpGetTask    = "GetTask"
	OpInsertTask = "InsertTask"
	OpUpdateTask = "UpdateTask"
	OpDeleteTask = "DeleteTask"
)

// DefaultListID is the ID of the list created by NewFakeRemote.
const DefaultListID = "L1"

// FakeRemote is an in-memory implementation of service.Remote for testing.
type FakeRemote struct {
	mu    sync.Mutex
	lists []service.TaskList
	tasks map[string][]service.RemoteTask // listID -> tasks
	seq   int
	clock time.Time
	calls map[string]int
	fail  map[string][]error

	// LastListID records the list handle of the most recent task call.
	LastListID string
}

var _ service.Remote = (*FakeRemote)(nil)

// NewFakeRemote creates a FakeRemote with one list.
func NewFakeRemote() *FakeRemote {
	f := NewEmptyFakeRemote()
	f.AddList(DefaultListID, "My Tasks")
	return f
}

// NewEmptyFakeRemote creates a FakeRemote with no lists. Task calls against
// "@default" still work, as they do on the real API.
func NewEmptyFakeRemote() *FakeRemote {
	return &FakeRemote{
		tasks: map[string][]service.RemoteTask{"@default": nil},
		clock: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		calls: make(map[string]int),
		fail:  make(map[string][]error),
	}
}

// AddList adds a list.
func (f *FakeRemote) AddList(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, service.TaskList{ID: id, Title: title})
	if _, ok := f.tasks[id]; !ok {
		f.tasks[id] = nil
	}
}

// AddTask adds an open task to a list and returns its ID.
func (f *FakeRemote) AddTask(listID, title string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.RemoteTask{
		ID:      f.nextID(),
		Title:   title,
		Status:  service.StatusNeedsAction,
		Updated: f.tick(),
	}
	f.tasks[listID] = append(f.tasks[listID], t)
	return t.ID
}

// Tasks returns a copy of the tasks stored in a list.
func (f *FakeRemote) Tasks(listID string) []service.RemoteTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.RemoteTask(nil), f.tasks[listID]...)
}

// FailNext queues errors returned by the next calls of op, one per call.
func (f *FakeRemote) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = append(f.fail[op], errs...)
}

// Calls returns the number of times op was invoked.
func (f *FakeRemote) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// enter records a call and returns a queued failure, if any. Caller holds mu.
func (f *FakeRemote) enter(op string) error {
	f.calls[op]++
	if q := f.fail[op]; len(q) > 0 {
		f.fail[op] = q[1:]
		return q[0]
	}
	return nil
}

func (f *FakeRemote) nextID() string {
	f.seq++
	return fmt.Sprintf("t%d", f.seq)
}

func (f *FakeRemote) tick() string {
	f.clock = f.clock.Add(time.Minute)
	return f.clock.Format(time.RFC3339)
}

// ListLists implements service.Remote.
func (f *FakeRemote) ListLists(ctx context.Context) ([]service.TaskList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpListLists); err != nil {
		return nil, err
	}
	return append([]service.TaskList(nil), f.lists...), nil
}

// ListTasks implements service.Remote.
func (f *FakeRemote) ListTasks(ctx context.Context, listID string) ([]service.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastListID = listID
	if err := f.enter(OpListTasks); err != nil {
		return nil, err
	}
	items, ok := f.tasks[listID]
	if !ok {
		return nil, service.NotFoundError("list tasks", fmt.Errorf("list %q", listID))
	}
	return append([]service.RemoteTask(nil), items...), nil
}

// GetTask implements service.Remote.
func (f *FakeRemote) GetTask(ctx context.Context, listID, taskID string) (service.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastListID = listID
	if err := f.enter(OpGetTask); err != nil {
		return service.RemoteTask{}, err
	}
	i := f.index(listID, taskID)
	if i < 0 {
		return service.RemoteTask{}, service.NotFoundError("get task", fmt.Errorf("task %q", taskID))
	}
	return f.tasks[listID][i], nil
}

// InsertTask implements service.Remote.
func (f *FakeRemote) InsertTask(ctx context.Context, listID string, task service.RemoteTask) (service.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastListID = listID
	if err := f.enter(OpInsertTask); err != nil {
		return service.RemoteTask{}, err
	}
	if _, ok := f.tasks[listID]; !ok {
		return service.RemoteTask{}, service.NotFoundError("insert task", fmt.Errorf("list %q", listID))
	}
	task.ID = f.nextID()
	task.NullFields = nil
	if task.Status == "" {
		task.Status = service.StatusNeedsAction
	}
	task.Updated = f.tick()
	f.tasks[listID] = append(f.tasks[listID], task)
	return task, nil
}

// UpdateTask implements service.Remote with patch semantics.
func (f *FakeRemote) UpdateTask(ctx context.Context, listID, taskID string, task service.RemoteTask) (service.RemoteTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastListID = listID
	if err := f.enter(OpUpdateTask); err != nil {
		return service.RemoteTask{}, err
	}
	i := f.index(listID, taskID)
	if i < 0 {
		return service.RemoteTask{}, service.NotFoundError("update task", fmt.Errorf("task %q", taskID))
	}

	cur := f.tasks[listID][i]
	if task.Title != "" {
		cur.Title = task.Title
	}
	if task.Notes != "" {
		cur.Notes = task.Notes
	}
	if task.Due != "" {
		cur.Due = task.Due
	}
	if task.Status != "" {
		cur.Status = task.Status
	}
	if task.Completed != "" {
		cur.Completed = task.Completed
	}
	for _, field := range task.NullFields {
		switch field {
		case "notes":
			cur.Notes = ""
		case "due":
			cur.Due = ""
		case "completed":
			cur.Completed = ""
		}
	}
	cur.Updated = f.tick()
	f.tasks[listID][i] = cur
	return cur, nil
}

// DeleteTask implements service.Remote.
func (f *FakeRemote) DeleteTask(ctx context.Context, listID, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastListID = listID
	if err := f.enter(OpDeleteTask); err != nil {
		return err
	}
	i := f.index(listID, taskID)
	if i < 0 {
		return service.NotFoundError("delete task", fmt.Errorf("task %q", taskID))
	}
	items := f.tasks[listID]
	f.tasks[listID] = append(items[:i:i], items[i+1:]...)
	return nil
}

func (f *FakeRemote) index(listID, taskID string) int {
	for i, t := range f.tasks[listID] {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

// FakeRefresher implements service.TokenRefresher.
type FakeRefresher struct {
	mu    sync.Mutex
	calls int

	// Token is returned on success.
	Token string
	// Err, when set, is returned instead of Token.
	Err error
	// OnRefresh runs before returning, for example to rotate a stored token.
	OnRefresh func(ctx context.Context) error
}

var _ service.TokenRefresher = (*FakeRefresher)(nil)

// RefreshToken implements service.TokenRefresher.
func (r *FakeRefresher) RefreshToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.Err != nil {
		return "", r.Err
	}
	if r.OnRefresh != nil {
		if err := r.OnRefresh(ctx); err != nil {
			return "", err
		}
	}
	return r.Token, nil
}

// Calls returns the number of refreshes.
func (r *FakeRefresher) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
