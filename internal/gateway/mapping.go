package gateway

import (
	"time"

	"todosync/internal/service"
)

// toRemote builds the outbound payload. Absent fields stay empty so they are
// omitted and the remote keeps its stored values.
func (g *Gateway) toRemote(p service.TaskPatch) service.RemoteTask {
	var rt service.RemoteTask
	if p.Title != nil {
		rt.Title = *p.Title
	}
	if p.Notes != nil {
		if *p.Notes == "" {
			rt.NullFields = append(rt.NullFields, "notes")
		} else {
			rt.Notes = *p.Notes
		}
	}
	if p.Due != nil {
		rt.Due = formatDue(*p.Due)
	}
	if p.Completed != nil {
		if *p.Completed {
			rt.Status = service.StatusCompleted
			rt.Completed = g.now().UTC().Format(time.RFC3339)
		} else {
			rt.Status = service.StatusNeedsAction
			rt.NullFields = append(rt.NullFields, "completed")
		}
	}
	return rt
}

// toTask maps a remote task to a local one. The remote has no creation time,
// so CreatedAt mirrors the last update.
func toTask(rt service.RemoteTask) service.Task {
	t := service.Task{
		ID:        rt.ID,
		Title:     rt.Title,
		Notes:     rt.Notes,
		Completed: rt.Status == service.StatusCompleted,
	}
	if due, ok := parseTime(rt.Due); ok {
		t.Due = &due
	}
	if completed, ok := parseTime(rt.Completed); ok {
		t.CompletedAt = &completed
	}
	if updated, ok := parseTime(rt.Updated); ok {
		t.UpdatedAt = updated
		t.CreatedAt = updated
	}
	return t
}

// formatDue sends the calendar date at UTC midnight; the API ignores the time part.
func formatDue(d time.Time) string {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
