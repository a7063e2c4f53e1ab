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
)

func init() {
	Register(&WhoamiCmd{})
}

// WhoamiCmd prints the signed-in user.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return nil }
func (c *WhoamiCmd) Synopsis() string  { return "Show the signed-in account" }
func (c *WhoamiCmd) Usage() string     { return "todosync whoami" }
func (c *WhoamiCmd) NeedsApp() bool    { return true }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	p, ok, err := a.Identity.Profile(ctx)
	if err != nil {
		return reportError(errOut, err)
	}
	if !ok {
		fmt.Fprintln(errOut, "error: not logged in (run: todosync login)")
		return exitcode.AuthError
	}
	output.FormatProfile(out, p)
	return exitcode.Success
}
