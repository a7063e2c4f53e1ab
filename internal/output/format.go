// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"todosync/internal/service"
)

// DateLayout is the layout used for due dates, on input and in task details.
const DateLayout = "2006-01-02"

// now is the clock used for relative due dates.
var now = time.Now

// FormatTask formats a task line for the default listing.
// Format: "{N:>4}  {TITLE}[  (due {FormatDue})]\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  %s%s\n", num, normalizeTitle(task.Title), dueSuffix(task.Due))
}

// FormatTaskWithStatus formats a task line including a completion box,
// for listings that include completed tasks.
// Format: "{N:>4}  [x] {TITLE}[  (due {FormatDue})]\n"
func FormatTaskWithStatus(w io.Writer, num int, task service.Task) {
	box := "[ ]"
	if task.Completed {
		box = "[x]"
	}
	fmt.Fprintf(w, "%4d  %s %s%s\n", num, box, normalizeTitle(task.Title), dueSuffix(task.Due))
}

// FormatTaskDetail prints every field of a task, one per line.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "title:     %s\n", normalizeTitle(task.Title))
	if task.Notes != "" {
		fmt.Fprintf(w, "notes:     %s\n", strings.ReplaceAll(task.Notes, "\n", "\n           "))
	}
	if task.Due != nil {
		fmt.Fprintf(w, "due:       %s\n", task.Due.UTC().Format(DateLayout))
	}
	status := service.StatusNeedsAction
	if task.Completed {
		status = service.StatusCompleted
	}
	fmt.Fprintf(w, "status:    %s\n", status)
	if task.CompletedAt != nil {
		fmt.Fprintf(w, "completed: %s\n", task.CompletedAt.UTC().Format(time.RFC3339))
	}
}

// FormatProfile formats the signed-in user.
// Format: "{NAME} <{EMAIL}>\n", or just the email when the name is empty.
func FormatProfile(w io.Writer, p service.Profile) {
	if strings.TrimSpace(p.Name) == "" {
		fmt.Fprintln(w, p.Email)
		return
	}
	fmt.Fprintf(w, "%s <%s>\n", p.Name, p.Email)
}

// FormatStaleNotice tells the user the listing came from the local cache.
func FormatStaleNotice(w io.Writer, lastSync time.Time) {
	if lastSync.IsZero() {
		fmt.Fprintln(w, "warning: remote unavailable, showing cached tasks")
		return
	}
	fmt.Fprintf(w, "warning: remote unavailable, showing cached tasks (last sync %s)\n",
		lastSync.Local().Format("2006-01-02 15:04"))
}

// FormatDue renders a due date relative to today: "today", "tomorrow",
// "Jan 2" within the current year, YYYY-MM-DD otherwise. Due dates carry no
// time of day and are compared by calendar date against today's local date.
func FormatDue(due, today time.Time) string {
	d := due.UTC()
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	ty, tm, td := today.Date()
	ref := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)

	switch day.Sub(ref) {
	case 0:
		return "today"
	case 24 * time.Hour:
		return "tomorrow"
	}
	if day.Year() == ty {
		return day.Format("Jan 2")
	}
	return day.Format(DateLayout)
}

func dueSuffix(due *time.Time) string {
	if due == nil {
		return ""
	}
	return "  (due " + FormatDue(*due, now()) + ")"
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
