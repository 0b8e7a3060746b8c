// Package ofx reads bank and credit card statements in OFX/QFX format and
// extracts the incoming credits. A credit is usually a reimbursement
// deposit, and its amount is the target for a match search.
package ofx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
)

// ErrNoStatement is returned when the file has no bank or credit card statement.
var ErrNoStatement = errors.New("no bank or credit card statement found")

// Deposit is one credit transaction from a statement.
type Deposit struct {
	ID     string    `json:"id"` // FITID, unique per account
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
	Name   string    `json:"name"`
	Memo   string    `json:"memo,omitempty"`
}

// ParseDeposits parses an OFX document and returns its credits, oldest first.
// Debits and zero-amount rows are skipped.
func ParseDeposits(ctx context.Context, r io.Reader) ([]Deposit, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX content: %w", err)
	}

	// ofxgo does not take a context; check once before the parse
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	response, err := ofxgo.ParseResponse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX (%d bytes): %w", len(content), err)
	}

	var lists []*ofxgo.TransactionList
	for _, msg := range response.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}
	for _, msg := range response.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}
	if len(lists) == 0 {
		return nil, ErrNoStatement
	}

	deposits := []Deposit{}
	for _, list := range lists {
		for i, txn := range list.Transactions {
			d, ok, err := toDeposit(txn)
			if err != nil {
				return nil, fmt.Errorf("transaction at index %d: %w", i, err)
			}
			if ok {
				deposits = append(deposits, d)
			}
		}
	}

	sort.SliceStable(deposits, func(i, j int) bool {
		return deposits[i].Date.Before(deposits[j].Date)
	})
	return deposits, nil
}

// toDeposit converts a credit transaction. ok is false for debits.
func toDeposit(txn ofxgo.Transaction) (Deposit, bool, error) {
	amount, _ := txn.TrnAmt.Float64()
	if amount <= 0 {
		return Deposit{}, false, nil
	}

	id := txn.FiTID.String()
	if id == "" {
		return Deposit{}, false, fmt.Errorf("credit of %.2f is missing FITID", amount)
	}

	// Posted date, falling back to the user date
	date := txn.DtPosted.Time
	if date.IsZero() && txn.DtUser != nil {
		date = txn.DtUser.Time
	}
	if date.IsZero() {
		return Deposit{}, false, fmt.Errorf("transaction %s has no date", id)
	}

	name := strings.TrimSpace(txn.Name.String())
	if name == "" && txn.Payee != nil {
		name = strings.TrimSpace(txn.Payee.Name.String())
	}

	return Deposit{
		ID:     id,
		Date:   date,
		Amount: amount,
		Name:   name,
		Memo:   strings.TrimSpace(txn.Memo.String()),
	}, true, nil
}

// Find returns the deposit with the given FITID.
func Find(deposits []Deposit, id string) (Deposit, bool) {
	for _, d := range deposits {
		if d.ID == id {
			return d, true
		}
	}
	return Deposit{}, false
}
