package commands

import (
	"testing"
	"time"

	"todosync/internal/service"
)

func TestParseTaskRef_Numeric(t *testing.T) {
	num, err := ParseTaskRef([]string{"5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != 5 {
		t.Errorf("expected 5, got %d", num)
	}
}

func TestParseTaskRef_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"empty", nil, "task reference required"},
		{"letter", []string{"a1"}, "invalid task reference: a1"},
		{"negative", []string{"-1"}, "invalid task reference: -1"},
		{"unicode digits", []string{"١٢"}, "invalid task reference: ١٢"},
		{"extra arg", []string{"1", "2"}, "unexpected argument: 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTaskRef(tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestParseTaskRef_Zero(t *testing.T) {
	// Zero parses; range checking happens at lookup.
	num, err := ParseTaskRef([]string{"0"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != 0 {
		t.Errorf("expected 0, got %d", num)
	}
}

func TestVisibleTasks(t *testing.T) {
	items := []service.Task{
		{ID: "a", Title: "A"},
		{ID: "b", Title: "B", Completed: true},
		{ID: "c", Title: "C"},
	}

	open := visibleTasks(items, false)
	if len(open) != 2 || open[0].ID != "a" || open[1].ID != "c" {
		t.Errorf("unexpected open tasks: %+v", open)
	}
	if all := visibleTasks(items, true); len(all) != 3 {
		t.Errorf("expected 3 tasks, got %d", len(all))
	}
}

func TestParseDue(t *testing.T) {
	due, err := parseDue("2026-10-20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	if !due.Equal(want) {
		t.Errorf("expected %v, got %v", want, due)
	}

	if _, err := parseDue("20.10.2026"); err == nil {
		t.Error("expected error for bad date")
	}
}
