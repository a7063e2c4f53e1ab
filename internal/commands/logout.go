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
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Revoke access and remove local data" }
func (c *LogoutCmd) Usage() string     { return "todosync logout [common flags]" }
func (c *LogoutCmd) NeedsApp() bool    { return true }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	_, signedIn, _ := a.Identity.Profile(ctx)

	// Local state is cleared even when nobody is signed in.
	if err := a.Identity.SignOut(ctx); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove local data: %v\n", err)
		return exitcode.BackendError
	}

	if !cfg.Quiet {
		if signedIn {
			fmt.Fprintln(out, "ok")
		} else {
			fmt.Fprintln(out, "not logged in")
		}
	}
	return exitcode.Success
}
