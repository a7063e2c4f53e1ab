package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/app"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/logging"
	"todosync/internal/tasksync"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct{}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Authenticate with Google" }
func (c *LoginCmd) Usage() string     { return "todosync login [common flags]" }
func (c *LoginCmd) NeedsApp() bool    { return true }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	// Check if oauth_client.json exists
	if !cfg.HasOAuthClient() {
		printOAuthClientHelp(cfg, errOut)
		return exitcode.AuthError
	}

	// Check if already logged in
	if p, ok, err := a.Identity.Profile(ctx); err == nil && ok {
		if !cfg.Quiet {
			fmt.Fprintf(out, "already logged in as %s\n", p.Email)
		}
		return exitcode.Success
	}

	cred, err := a.Identity.SignIn(ctx)
	if err != nil {
		return reportError(errOut, err)
	}

	// Warm the cache so the first listing works offline.
	if _, err := a.Tasks.Load(ctx, tasksync.TriggerStartup); err != nil {
		a.Logger.Warn("initial sync failed", logging.Err(err))
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", cred.Profile.Email)
	}
	return exitcode.Success
}

func printOAuthClientHelp(cfg *config.Config, errOut io.Writer) {
	fmt.Fprintf(errOut, "error: %s not found in %s\n\n", config.OAuthClientFile, cfg.Dir)
	fmt.Fprintln(errOut, "To authenticate with Google Tasks, you need OAuth credentials:")
	fmt.Fprintln(errOut, "")
	fmt.Fprintln(errOut, "1. Go to https://console.cloud.google.com/apis/credentials")
	fmt.Fprintln(errOut, "2. Create a project (or select an existing one)")
	fmt.Fprintln(errOut, "3. Enable the Google Tasks API:")
	fmt.Fprintln(errOut, "   https://console.cloud.google.com/apis/library/tasks.googleapis.com")
	fmt.Fprintln(errOut, "4. Create OAuth 2.0 credentials:")
	fmt.Fprintln(errOut, "   - Click 'Create Credentials' > 'OAuth client ID'")
	fmt.Fprintln(errOut, "   - Choose 'Desktop app' as application type")
	fmt.Fprintln(errOut, "   - Download the JSON file")
	fmt.Fprintln(errOut, "5. Save it as:")
	fmt.Fprintf(errOut, "   %s\n", cfg.OAuthClientPath())
	fmt.Fprintln(errOut, "")
	fmt.Fprintln(errOut, "Then run 'todosync login' again.")
}
