package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/app"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	notes string
	due   string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "todosync add [--notes <text>] [--due <YYYY-MM-DD>] <title...>"
}
func (c *AddCmd) NeedsApp() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.notes, "notes", "", "")
	fs.StringVar(&c.notes, "n", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.due, "d", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	// Join args to form title
	title := strings.Join(args, " ")
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	patch := service.TaskPatch{Title: &title}
	if c.notes != "" {
		patch.Notes = service.String(c.notes)
	}
	if c.due != "" {
		due, err := parseDue(c.due)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		patch.Due = due
	}

	if _, err := a.Tasks.Create(ctx, patch); err != nil {
		return reportError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
