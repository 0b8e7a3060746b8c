package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/eshaffer321/reimbursement-tracker/internal/cli"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/config"
)

func main() {
	out := cli.NewPrinter(os.Stdout)

	flags, err := cli.ParseMatchFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			out.Error(err)
		}
		os.Exit(2)
	}

	cfg := config.LoadOrEnv_WithPath(flags.ConfigPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.RunMatch(ctx, cfg, flags, out); err != nil {
		out.Error(err)
		stop()
		os.Exit(1)
	}
}
