package commands

import (
	"fmt"
	"io"

	"todosync/internal/exitcode"
)

// reportError prints err the way the CLI reports each error kind and
// returns the matching exit code.
func reportError(errOut io.Writer, err error) int {
	code := exitcode.FromError(err)
	switch code {
	case exitcode.AuthError:
		fmt.Fprintf(errOut, "error: auth error: %v (run: todosync login)\n", err)
	case exitcode.BackendError:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return code
}
