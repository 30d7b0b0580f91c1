// Package main is the entry point for the vdc CLI.
//
// vdc builds a virtual datacenter on Grid'5000: it reserves physical hosts
// and a subnet, deploys them, bootstraps Distem and creates virtual nodes,
// then writes the address and name of each one to a node list.
//
// Commands: apply, init, runs, version.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lpouillo/google-dc-g5k/cmd/vdc/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
