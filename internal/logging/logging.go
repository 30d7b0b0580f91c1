// Package logging builds the logr.Logger threaded through a vdc run.
//
// Verbosity 0 shows warnings and errors only, 1 adds progress, 2 adds
// debug detail such as generated commands and slot computations.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// Verbosity levels understood by New.
const (
	Quiet   = 0
	Normal  = 1
	Verbose = 2
)

// New returns a logger writing one line per entry to w.
// Entries logged at V(n) with n > verbosity are discarded.
func New(w io.Writer, verbosity int) logr.Logger {
	if verbosity < 0 {
		verbosity = Quiet
	}
	return funcr.New(func(prefix, args string) {
		ts := time.Now().Format("15:04:05")
		switch {
		case prefix != "" && args != "":
			fmt.Fprintf(w, "%s %s: %s\n", ts, prefix, args)
		case prefix != "":
			fmt.Fprintf(w, "%s %s\n", ts, prefix)
		default:
			fmt.Fprintf(w, "%s %s\n", ts, args)
		}
	}, funcr.Options{
		Verbosity: verbosity,
	})
}

// FromFlags maps the --quiet and --verbose flags to a verbosity level.
// Quiet wins when both are set.
func FromFlags(quiet, verbose bool) int {
	switch {
	case quiet:
		return Quiet
	case verbose:
		return Verbose
	default:
		return Normal
	}
}
