package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"todosync/internal/app"
	"todosync/internal/output"
	"todosync/internal/service"
	"todosync/internal/tasksync"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the 1-based task number shown by list.
//
// Parsing rules:
// 1. No args → ErrTaskRefRequired
// 2. First arg all digits → task number
// 3. Otherwise → error: invalid task reference: <ref>
// Extra args are rejected.
func ParseTaskRef(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return 0, fmt.Errorf("unexpected argument: %s", args[1])
	}

	ref := args[0]
	if !isAllDigits(ref) {
		return 0, fmt.Errorf("invalid task reference: %s", ref)
	}
	num, err := strconv.Atoi(ref)
	if err != nil {
		return 0, fmt.Errorf("invalid task reference: %s", ref)
	}
	return num, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// visibleTasks applies the listing filter: open tasks only unless all is set.
func visibleTasks(items []service.Task, all bool) []service.Task {
	if all {
		return items
	}
	open := make([]service.Task, 0, len(items))
	for _, t := range items {
		if !t.Completed {
			open = append(open, t)
		}
	}
	return open
}

// errOutOfRange reports a task number that is not in the listing.
type errOutOfRange int

func (e errOutOfRange) Error() string {
	return fmt.Sprintf("task number out of range: %d", int(e))
}

// lookupTask loads the list and returns the task shown as num.
func lookupTask(ctx context.Context, a *app.App, num int, all bool) (service.Task, error) {
	if num < 1 {
		return service.Task{}, errOutOfRange(num)
	}
	items, err := a.Tasks.Load(ctx, tasksync.TriggerPageLoad)
	if err != nil {
		return service.Task{}, err
	}
	visible := visibleTasks(items, all)
	if num > len(visible) {
		return service.Task{}, errOutOfRange(num)
	}
	return visible[num-1], nil
}

// parseDue parses a YYYY-MM-DD date as midnight UTC.
func parseDue(s string) (*time.Time, error) {
	d, err := time.Parse(output.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid due date: %s (want YYYY-MM-DD)", s)
	}
	return &d, nil
}
