// Command mq is a nicer qstat/squeue for the current user: it lists your PBS
// or Slurm jobs and tails their output live.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		os.Interrupt,
	)
	defer cancel()

	c := newCLI()
	return c.execute(ctx, c.rootCmd())
}
