//go:build !windows

package commands

import (
	"os"
	"os/signal"
	"syscall"
)

// resumeSignals delivers SIGCONT, sent when a stopped job is continued.
func resumeSignals() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGCONT)
	return ch, func() { signal.Stop(ch) }
}
