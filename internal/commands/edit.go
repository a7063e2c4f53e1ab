package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/app"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only the given fields change;
// an empty --notes clears the notes.
type EditCmd struct {
	title *string
	notes *string
	due   *string
	all   bool
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change a task's title, notes or due date" }
func (c *EditCmd) Usage() string {
	return "todosync edit [--all] [--title <text>] [--notes <text>] [--due <YYYY-MM-DD>] <n>"
}
func (c *EditCmd) NeedsApp() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.notes, c.due = nil, nil, nil
	fs.Func("title", "", func(s string) error { c.title = &s; return nil })
	fs.Func("notes", "", func(s string) error { c.notes = &s; return nil })
	fs.Func("due", "", func(s string) error { c.due = &s; return nil })
	fs.BoolVar(&c.all, "all", false, "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if c.title == nil && c.notes == nil && c.due == nil {
		fmt.Fprintln(errOut, "error: nothing to change (use --title, --notes or --due)")
		return exitcode.UserError
	}

	patch := service.TaskPatch{Title: c.title, Notes: c.notes}
	if c.due != nil {
		due, err := parseDue(*c.due)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		patch.Due = due
	}

	task, code, ok := resolveRef(ctx, a, args, c.all, errOut)
	if !ok {
		return code
	}

	if _, err := a.Tasks.Update(ctx, task.ID, patch); err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
