package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/eshaffer321/reimbursement-tracker/internal/adapters/statements/ofx"
	"github.com/eshaffer321/reimbursement-tracker/internal/application/service"
	"github.com/eshaffer321/reimbursement-tracker/internal/domain/matcher"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/config"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/logging"
	"github.com/eshaffer321/reimbursement-tracker/internal/infrastructure/storage"
)

// RunMatch searches for matches and optionally applies one, using the
// configured database.
func RunMatch(ctx context.Context, cfg *config.Config, flags MatchFlags, out *Printer) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	} else {
		loggingCfg.Level = "warn"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "match")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc := service.NewReimbursementService(store, matcher.NewMatcher(cfg.Matching.ToMatcherConfig()), logger)
	return Match(ctx, svc, flags, out)
}

// Match runs the match command against a service.
func Match(ctx context.Context, svc *service.ReimbursementService, flags MatchFlags, out *Printer) error {
	target := flags.Target
	reference := flags.Reference

	if flags.OFXPath != "" {
		deposit, ok, err := selectDeposit(ctx, flags, out)
		if err != nil || !ok {
			return err
		}
		target = deposit.Amount
		if reference == "" {
			reference = deposit.ID
		}
	}

	req := service.MatchRequest{
		UserID:       flags.User,
		TargetAmount: target,
		Limit:        flags.Limit,
	}
	if flags.Tolerance >= 0 {
		tolerance := flags.Tolerance
		req.Tolerance = &tolerance
	}

	resp, err := svc.FindMatches(ctx, req)
	if err != nil {
		return err
	}

	out.Header(resp.TargetAmount, resp.Tolerance, resp.PendingCount)
	out.Matches(resp)

	if flags.Apply == 0 {
		return nil
	}
	if flags.Apply > len(resp.Matches) {
		return fmt.Errorf("-apply %d: only %d matches shown", flags.Apply, len(resp.Matches))
	}

	chosen := resp.Matches[flags.Apply-1]
	result, err := svc.ApplyMatch(ctx, service.ApplyRequest{
		UserID:       flags.User,
		ExpenseIDs:   chosen.IDs(),
		Reference:    reference,
		TargetAmount: target,
	})
	if result != nil {
		out.ApplyResult(result)
	}
	return err
}

// selectDeposit reads the statement and picks the deposit to match. Without
// -deposit a single credit is used directly; several are listed and ok is false.
func selectDeposit(ctx context.Context, flags MatchFlags, out *Printer) (ofx.Deposit, bool, error) {
	f, err := os.Open(flags.OFXPath)
	if err != nil {
		return ofx.Deposit{}, false, fmt.Errorf("failed to open statement: %w", err)
	}
	defer f.Close()

	deposits, err := ofx.ParseDeposits(ctx, f)
	if err != nil {
		return ofx.Deposit{}, false, err
	}

	if flags.DepositID != "" {
		d, ok := ofx.Find(deposits, flags.DepositID)
		if !ok {
			return ofx.Deposit{}, false, fmt.Errorf("deposit %s not found in %s", flags.DepositID, flags.OFXPath)
		}
		return d, true, nil
	}

	switch len(deposits) {
	case 0:
		return ofx.Deposit{}, false, fmt.Errorf("no deposits found in %s", flags.OFXPath)
	case 1:
		return deposits[0], true, nil
	default:
		out.Deposits(deposits)
		fmt.Fprintln(out.w, "\nChoose one with -deposit <id>.")
		return ofx.Deposit{}, false, nil
	}
}
