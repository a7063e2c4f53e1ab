package output

import (
	"bytes"
	"testing"
	"time"

	"todosync/internal/service"
	"todosync/internal/testutil"
)

// fixClock pins the clock used for relative due dates.
func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestFormatTask(t *testing.T) {
	fixClock(t, time.Date(2026, 10, 19, 15, 0, 0, 0, time.Local))
	due := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	later := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	FormatTask(&buf, 1, service.Task{Title: "Buy milk"})
	FormatTask(&buf, 2, service.Task{Title: "Pay rent", Due: &due})
	FormatTask(&buf, 3, service.Task{Title: "Buy gifts", Due: &later})
	FormatTask(&buf, 10, service.Task{Title: "line one\nline two"})
	FormatTask(&buf, 100, service.Task{Title: "   "})

	testutil.Golden(t, "tasks", buf.Bytes())
}

func TestFormatTaskWithStatus(t *testing.T) {
	fixClock(t, time.Date(2026, 10, 20, 8, 0, 0, 0, time.Local))
	due := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	FormatTaskWithStatus(&buf, 1, service.Task{Title: "Buy milk"})
	FormatTaskWithStatus(&buf, 2, service.Task{Title: "Pay rent", Completed: true, Due: &due})

	testutil.Golden(t, "tasks_all", buf.Bytes())
}

func TestFormatTaskDetail(t *testing.T) {
	due := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	completed := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	FormatTaskDetail(&buf, service.Task{
		Title:       "Pay rent",
		Notes:       "landlord\nvia transfer",
		Due:         &due,
		Completed:   true,
		CompletedAt: &completed,
	})

	testutil.Golden(t, "task_detail", buf.Bytes())
}

func TestFormatDue(t *testing.T) {
	today := time.Date(2026, 12, 31, 23, 30, 0, 0, time.Local)
	tests := []struct {
		due  time.Time
		want string
	}{
		{time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), "today"},
		{time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "tomorrow"},
		{time.Date(2026, 12, 30, 0, 0, 0, 0, time.UTC), "Dec 30"},
		{time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), "Mar 5"},
		{time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC), "2027-01-02"},
	}
	for _, tt := range tests {
		if got := FormatDue(tt.due, today); got != tt.want {
			t.Errorf("FormatDue(%s): expected %q, got %q", tt.due.Format(DateLayout), tt.want, got)
		}
	}
}

func TestFormatProfile(t *testing.T) {
	var buf bytes.Buffer
	FormatProfile(&buf, service.Profile{Name: "Ada", Email: "ada@example.com"})
	FormatProfile(&buf, service.Profile{Email: "u1@x.com"})

	want := "Ada <ada@example.com>\nu1@x.com\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestFormatStaleNotice_NeverSynced(t *testing.T) {
	var buf bytes.Buffer
	FormatStaleNotice(&buf, time.Time{})

	want := "warning: remote unavailable, showing cached tasks\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}
