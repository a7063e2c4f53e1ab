package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/app"
	"todosync/internal/config"
	"todosync/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "todosync help" }
func (c *HelpCmd) NeedsApp() bool    { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  todosync                                          List open tasks
  todosync list [common flags] [--all]              List tasks (--all includes completed)
  todosync add [common flags] [--notes <text>] [--due <YYYY-MM-DD>] <title...>
  todosync create [common flags] [--notes <text>] [--due <YYYY-MM-DD>] <title...>
  todosync show [common flags] [--all] <n>
  todosync edit [common flags] [--all] [--title <text>] [--notes <text>] [--due <YYYY-MM-DD>] <n>
  todosync done [common flags] [--all] <n>
  todosync undo [common flags] <n>                  <n> as numbered by list --all
  todosync rm [common flags] [--all] <n>
  todosync watch [common flags] [--interval <duration>]
  todosync login [common flags]
  todosync logout [common flags]
  todosync whoami [common flags]
  todosync help
  todosync version

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
