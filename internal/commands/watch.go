package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"todosync/internal/app"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/logging"
	"todosync/internal/service"
	"todosync/internal/tasksync"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd keeps the local cache in sync until interrupted. It reloads on a
// timer and when the process is resumed after being stopped.
type WatchCmd struct {
	interval time.Duration
}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "Sync periodically until interrupted" }
func (c *WatchCmd) Usage() string     { return "todosync watch [--interval <duration>]" }
func (c *WatchCmd) NeedsApp() bool    { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.DurationVar(&c.interval, "interval", time.Minute, "")
}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if c.interval <= 0 {
		fmt.Fprintf(errOut, "error: invalid interval: %s\n", c.interval)
		return exitcode.UserError
	}

	// Resume signals and ticks can pile up; keep syncs at least half an interval apart.
	limiter := rate.NewLimiter(rate.Every(c.interval/2), 1)
	resume, stop := resumeSignals()
	defer stop()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	limiter.Allow()
	if code, fatal := c.sync(ctx, cfg, a, tasksync.TriggerStartup, out, errOut); fatal {
		return code
	}

	for {
		var trigger tasksync.Trigger
		select {
		case <-ctx.Done():
			return exitcode.Success
		case <-ticker.C:
			trigger = tasksync.TriggerPageLoad
		case <-resume:
			trigger = tasksync.TriggerVisible
		}

		if !limiter.Allow() {
			a.Logger.Debug("sync throttled", slog.String(logging.KeyTrigger, string(trigger)))
			continue
		}
		if code, fatal := c.sync(ctx, cfg, a, trigger, out, errOut); fatal {
			return code
		}
	}
}

// sync loads once and prints a summary line. Auth failures end the watch;
// other failures are reported and retried on the next trigger.
func (c *WatchCmd) sync(ctx context.Context, cfg *config.Config, a *app.App, trigger tasksync.Trigger, out, errOut io.Writer) (code int, fatal bool) {
	res, err := a.Tasks.LoadDetailed(ctx, trigger)
	if err != nil {
		if ctx.Err() != nil {
			return exitcode.Success, true
		}
		code = reportError(errOut, err)
		return code, code == exitcode.AuthError
	}
	// A cached result can hide an auth failure; it ends the watch too.
	if st := a.Tasks.Status(); res.Stale && service.IsAuth(st.Err) {
		return reportError(errOut, st.Err), true
	}
	if cfg.Quiet {
		return exitcode.Success, false
	}

	open := len(visibleTasks(res.Items, false))
	line := fmt.Sprintf("[%s] %d open, %d completed", time.Now().Format("15:04:05"), open, len(res.Items)-open)
	if res.Stale {
		line += " (cached)"
	}
	fmt.Fprintln(out, line)
	return exitcode.Success, false
}
