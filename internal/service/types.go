// Package service defines the backend-agnostic types and interfaces for task synchronization.
package service

import (
	"time"

	"golang.org/x/oauth2"
)

// Remote task status values.
const (
	StatusNeedsAction = "needsAction"
	StatusCompleted   = "completed"
)

// Task represents a single to-do entry as seen by the client.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Due         *time.Time `json:"due,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskPatch describes a partial task. Nil fields are absent and never sent.
type TaskPatch struct {
	Title     *string
	Notes     *string
	Completed *bool
	Due       *time.Time
}

// TaskList is a remote task list.
type TaskList struct {
	ID    string
	Title string
}

// RemoteTask is the wire representation exchanged with the remote task API.
// Empty strings are omitted from outbound payloads; NullFields lists fields
// that must be explicitly cleared.
type RemoteTask struct {
	ID         string
	Title      string
	Notes      string
	Status     string // "needsAction" or "completed"
	Due        string // RFC3339
	Completed  string // RFC3339
	Updated    string // RFC3339
	NullFields []string
}

// Profile is the authenticated user's profile.
type Profile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	PictureURL string `json:"picture,omitempty"`
}

// Credential holds an access token and the cached user profile.
type Credential struct {
	Token   *oauth2.Token
	Profile Profile
}

// AccessToken returns the bearer token, or "" if none.
func (c Credential) AccessToken() string {
	if c.Token == nil {
		return ""
	}
	return c.Token.AccessToken
}

// String helpers for building patches.
func String(s string) *string { return &s }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Date returns a pointer to t.
func Date(t time.Time) *time.Time { return &t }
