package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"todosync/internal/app"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
)

func init() {
	Register(&DoneCmd{})
	Register(&UndoCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct {
	all bool
}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark a task completed" }
func (c *DoneCmd) Usage() string     { return "todosync done [--all] <n>" }
func (c *DoneCmd) NeedsApp() bool    { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "")
	fs.BoolVar(&c.all, "a", false, "")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	return setCompleted(ctx, cfg, a, args, c.all, true, out, errOut)
}

// UndoCmd implements the undo command. Task numbers follow `list --all`,
// since completed tasks are hidden from the default listing.
type UndoCmd struct{}

func (c *UndoCmd) Name() string      { return "undo" }
func (c *UndoCmd) Aliases() []string { return []string{"reopen"} }
func (c *UndoCmd) Synopsis() string  { return "Mark a completed task open again" }
func (c *UndoCmd) Usage() string     { return "todosync undo <n>" }
func (c *UndoCmd) NeedsApp() bool    { return true }

func (c *UndoCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UndoCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	return setCompleted(ctx, cfg, a, args, true, false, out, errOut)
}

// setCompleted is the shared implementation for done and undo.
func setCompleted(ctx context.Context, cfg *config.Config, a *app.App, args []string, all, completed bool, out, errOut io.Writer) int {
	task, code, ok := resolveRef(ctx, a, args, all, errOut)
	if !ok {
		return code
	}

	if _, err := a.Tasks.Update(ctx, task.ID, service.TaskPatch{Completed: &completed}); err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// resolveRef parses the task reference in args and looks the task up.
// On failure it prints the error and returns the exit code with ok=false.
func resolveRef(ctx context.Context, a *app.App, args []string, all bool, errOut io.Writer) (task service.Task, code int, ok bool) {
	num, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError, false
	}

	task, err = lookupTask(ctx, a, num, all)
	var rangeErr errOutOfRange
	if errors.As(err, &rangeErr) {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError, false
	}
	if err != nil {
		return service.Task{}, reportError(errOut, err), false
	}
	return task, exitcode.Success, true
}
