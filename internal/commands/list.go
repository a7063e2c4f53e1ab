package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/app"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/output"
	"todosync/internal/tasksync"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `todosync` (no args) and `todosync list`.
type ListCmd struct {
	all bool
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "todosync list [--all]" }
func (c *ListCmd) NeedsApp() bool    { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "")
	fs.BoolVar(&c.all, "a", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	res, err := a.Tasks.LoadDetailed(ctx, tasksync.TriggerPageLoad)
	if err != nil {
		return reportError(errOut, err)
	}
	if res.Stale && !cfg.Quiet {
		output.FormatStaleNotice(errOut, a.Tasks.Status().LastSync)
	}

	tasks := visibleTasks(res.Items, c.all)
	for i, task := range tasks {
		if c.all {
			output.FormatTaskWithStatus(out, i+1, task)
		} else {
			output.FormatTask(out, i+1, task)
		}
	}

	if len(tasks) == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no tasks found")
	}
	return exitcode.Success
}
