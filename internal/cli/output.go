package cli

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/eshaffer321/reimbursement-tracker/internal/adapters/statements/ofx"
	"github.com/eshaffer321/reimbursement-tracker/internal/application/service"
	"github.com/eshaffer321/reimbursement-tracker/internal/domain/matcher"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
)

// Printer writes human-readable command output.
type Printer struct {
	w   io.Writer
	num *message.Printer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, num: message.NewPrinter(language.English)}
}

// Amount formats a currency amount with thousands separators, e.g. $1,234.50.
func (p *Printer) Amount(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = math.Abs(amount)
	}
	return sign + "$" + p.num.Sprintf("%.2f", amount)
}

// Header prints the search header.
func (p *Printer) Header(target float64, tolerance float64, pending int) {
	fmt.Fprintf(p.w, "reimburse-match: target %s (tolerance %s) across %d pending expenses\n",
		p.Amount(target), p.Amount(tolerance), pending)
	fmt.Fprintln(p.w, strings.Repeat("-", 60))
}

// Matches prints ranked matches, numbered from 1.
func (p *Printer) Matches(resp *service.MatchResponse) {
	if len(resp.Matches) == 0 {
		yellow.Fprintln(p.w, "No combination of pending expenses matches this amount.")
		return
	}

	for i, m := range resp.Matches {
		label := green
		if !m.ExactMatch {
			label = yellow
		}
		label.Fprintf(p.w, "#%d  %s", i+1, matcher.FormatMatchSummary(m))
		if !m.ExactMatch {
			fmt.Fprintf(p.w, "  off by %s", p.Amount(m.Difference))
		}
		fmt.Fprintf(p.w, "  total %s\n", p.Amount(m.Total))

		for _, e := range m.Expenses {
			fmt.Fprintf(p.w, "      %s  %10s  %s", e.Date.Format("2006-01-02"), p.Amount(e.Amount), e.Description)
			faint.Fprintf(p.w, "  [%s]\n", e.ID)
		}
	}

	if resp.LimitReached {
		yellow.Fprintln(p.w, "\nSearch limits were reached; more combinations may exist.")
	}
}

// Deposits prints credits parsed from a statement.
func (p *Printer) Deposits(deposits []ofx.Deposit) {
	if len(deposits) == 0 {
		yellow.Fprintln(p.w, "No deposits found in statement.")
		return
	}
	fmt.Fprintf(p.w, "%d deposits:\n", len(deposits))
	for _, d := range deposits {
		fmt.Fprintf(p.w, "  %s  %10s  %-30s  %s\n", d.Date.Format("2006-01-02"), p.Amount(d.Amount), d.Name, d.ID)
	}
}

// ApplyResult prints the outcome of applying a match.
func (p *Printer) ApplyResult(result *service.ApplyResult) {
	if len(result.Marked) > 0 {
		green.Fprintf(p.w, "Marked %d expenses reimbursed: %s\n", len(result.Marked), strings.Join(result.Marked, ", "))
	}
	if len(result.AlreadyReimbursed) > 0 {
		yellow.Fprintf(p.w, "Already reimbursed: %s\n", strings.Join(result.AlreadyReimbursed, ", "))
	}
	for _, f := range result.Failures {
		red.Fprintf(p.w, "Failed %s: %v\n", f.ExpenseID, f.Err)
	}
	if result.Reimbursement != nil {
		faint.Fprintf(p.w, "Recorded reimbursement %s\n", result.Reimbursement.ID)
	}
}

// Error prints an error message.
func (p *Printer) Error(err error) {
	red.Fprintf(p.w, "Error: %v\n", err)
}
