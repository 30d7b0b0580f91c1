// Package remote defines the Remote Operation Gateway contract: structured
// commands, the single result type every remote call produces, and the
// Gateway interface implemented by the SSH transport and the simulator.
package remote

import (
	"context"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Command is one program invocation with its arguments kept apart, so that
// no argument is ever interpreted by the remote shell.
type Command struct {
	Program string
	Args    []string
}

// NewCommand builds a Command.
func NewCommand(program string, args ...string) Command {
	return Command{Program: program, Args: args}
}

// Argv returns program and arguments as a single slice.
func (c Command) Argv() []string {
	return append([]string{c.Program}, c.Args...)
}

// String renders the command for a POSIX shell, quoting each word.
func (c Command) String() string {
	return shellquote.Join(c.Argv()...)
}

// Script is an ordered list of commands executed in a single remote call.
// Every command runs regardless of the exit status of the previous one.
type Script []Command

// String renders the script as "cmd1 ; cmd2 ; ...".
func (s Script) String() string {
	parts := make([]string, len(s))
	for i, c := range s {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ; ")
}

// Result is what every remote call yields.
type Result struct {
	Host      string
	Succeeded bool
	// Output holds the combined stdout/stderr captured on the remote side.
	Output string
	// Err is set when the call failed; it may be a transport error or the
	// non-zero exit status of the script.
	Err error
}

// Gateway executes scripts on and copies files to named hosts.
type Gateway interface {
	// Run executes script on host. It never retries the script itself.
	Run(ctx context.Context, host string, script Script) Result
	// Put copies localPath into remoteDir on host, keeping its base name.
	Put(ctx context.Context, host, localPath, remoteDir string) error
}
