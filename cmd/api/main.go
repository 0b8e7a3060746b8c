package main

import (
	"fmt"
	"os"

	"github.com/eshaffer321/reimbursement-tracker/internal/cli"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/config"
)

func main() {
	flags, err := cli.ParseServeFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	cfg := config.LoadOrEnv_WithPath(flags.ConfigPath)

	if err := cli.RunServe(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
