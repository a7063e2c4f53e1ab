package service

import "context"

// Remote is the narrow interface to the remote task API.
// Implementations translate transport failures into the error kinds in errors.go.
type Remote interface {
	// ListLists returns all task lists in provider order.
	ListLists(ctx context.Context) ([]TaskList, error)

	// ListTasks returns every task in a list, including completed ones.
	ListTasks(ctx context.Context, listID string) ([]RemoteTask, error)

	// GetTask returns a single task.
	GetTask(ctx context.Context, listID, taskID string) (RemoteTask, error)

	// InsertTask creates a task and returns the stored representation.
	InsertTask(ctx context.Context, listID string, task RemoteTask) (RemoteTask, error)

	// UpdateTask applies a partial update. Omitted fields keep their stored values.
	UpdateTask(ctx context.Context, listID, taskID string, task RemoteTask) (RemoteTask, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, listID, taskID string) error
}

// TokenRefresher obtains a fresh access token without user interaction.
type TokenRefresher interface {
	RefreshToken(ctx context.Context) (string, error)
}
