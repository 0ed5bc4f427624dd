package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// main is the entry point to the program, from here the command line
// is parsed and the requested command is run until completion, or until
// the process is interrupted.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
