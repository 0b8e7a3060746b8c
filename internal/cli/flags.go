package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
)

// MatchFlags are the flags of the reimburse-match command.
type MatchFlags struct {
	Target     float64 // Deposit amount to account for
	OFXPath    string  // Statement to read deposits from instead of -target
	DepositID  string  // FITID of the deposit to match (with -ofx)
	Tolerance  float64 // Negative = use configured tolerance
	Limit      int     // Max matches printed
	Apply      int     // 1-based match number to apply (0 = don't apply)
	Reference  string  // Reimbursement reference; defaults to the deposit FITID
	User       string
	ConfigPath string
	Verbose    bool
}

// ErrNoTarget is returned when neither -target nor -ofx is given.
var ErrNoTarget = errors.New("either -target or -ofx is required")

// ParseMatchFlags parses reimburse-match flags from args (without the program name).
func ParseMatchFlags(args []string, output io.Writer) (MatchFlags, error) {
	var flags MatchFlags

	fs := flag.NewFlagSet("reimburse-match", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Float64Var(&flags.Target, "target", 0, "Reimbursement amount to match")
	fs.StringVar(&flags.OFXPath, "ofx", "", "OFX/QFX statement to read deposits from")
	fs.StringVar(&flags.DepositID, "deposit", "", "FITID of the deposit to match (with -ofx)")
	fs.Float64Var(&flags.Tolerance, "tolerance", -1, "Amount tolerance (default from config)")
	fs.IntVar(&flags.Limit, "limit", 10, "Maximum matches to show (0 = all)")
	fs.IntVar(&flags.Apply, "apply", 0, "Mark the expenses of match N as reimbursed")
	fs.StringVar(&flags.Reference, "ref", "", "Reference stored with the reimbursement")
	fs.StringVar(&flags.User, "user", "local", "User whose expenses are searched")
	fs.StringVar(&flags.ConfigPath, "config", "config.yaml", "Configuration file path")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return flags, err
	}

	if flags.Target == 0 && flags.OFXPath == "" {
		return flags, ErrNoTarget
	}
	if flags.Target != 0 && flags.OFXPath != "" {
		return flags, errors.New("-target and -ofx are mutually exclusive")
	}
	if flags.DepositID != "" && flags.OFXPath == "" {
		return flags, errors.New("-deposit requires -ofx")
	}
	if flags.Apply < 0 {
		return flags, fmt.Errorf("-apply must be a match number, got %d", flags.Apply)
	}
	if flags.Limit < 0 {
		return flags, fmt.Errorf("-limit must not be negative, got %d", flags.Limit)
	}

	return flags, nil
}

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port       int
	ConfigPath string
	Verbose    bool
}

// ParseServeFlags parses command line flags for the serve command.
// A zero port means the configured port.
func ParseServeFlags(args []string, output io.Writer) (*ServeFlags, error) {
	flags := &ServeFlags{}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&flags.Port, "port", 0, "Port to listen on (default from config)")
	fs.StringVar(&flags.ConfigPath, "config", "config.yaml", "Configuration file path")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}
