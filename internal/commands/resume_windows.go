package commands

import "os"

// resumeSignals returns a channel that never fires; Windows has no job control.
func resumeSignals() (<-chan os.Signal, func()) {
	return nil, func() {}
}
