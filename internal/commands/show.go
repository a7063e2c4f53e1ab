package commands

import (
	"context"
	"flag"
	"io"

	"todosync/internal/app"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/output"
)

func init() {
	Register(&ShowCmd{})
}

// ShowCmd implements the show command.
type ShowCmd struct {
	all bool
}

func (c *ShowCmd) Name() string      { return "show" }
func (c *ShowCmd) Aliases() []string { return nil }
func (c *ShowCmd) Synopsis() string  { return "Show a task's details" }
func (c *ShowCmd) Usage() string     { return "todosync show [--all] <n>" }
func (c *ShowCmd) NeedsApp() bool    { return true }

func (c *ShowCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "")
	fs.BoolVar(&c.all, "a", false, "")
}

func (c *ShowCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	task, code, ok := resolveRef(ctx, a, args, c.all, errOut)
	if !ok {
		return code
	}
	output.FormatTaskDetail(out, task)
	return exitcode.Success
}
