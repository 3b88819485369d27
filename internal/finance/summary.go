// Package finance computes the aggregate figures shown on the dashboard and
// handed to the coach.
package finance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finance-coach-backend/internal/models"
)

// DefaultCurrency is used when no account carries a currency.
const DefaultCurrency = "USD"

// Snapshot contains the aggregated figures for one user
type Snapshot struct {
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	NetBalance       decimal.Decimal `json:"net_balance"`
	NetCashFlow      decimal.Decimal `json:"net_cash_flow"`
	Currency         string          `json:"currency"`
	AccountCount     int             `json:"account_count"`
	TransactionCount int             `json:"transaction_count"`
}

// Summarize aggregates accounts and transactions already scoped to one user.
//
// Income and expenses are summed by magnitude, so the stored sign of an
// amount never matters. NetBalance is the sum of account balances and does
// not depend on the transactions; NetCashFlow is income minus expenses.
// Transfers move money between the user's own accounts and are not counted.
func Summarize(accounts []models.Account, transactions []models.Transaction) Snapshot {
	s := Snapshot{
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		NetBalance:       decimal.Zero,
		Currency:         DefaultCurrency,
		AccountCount:     len(accounts),
		TransactionCount: len(transactions),
	}

	for _, t := range transactions {
		switch t.Type {
		case models.TransactionIncome:
			s.TotalIncome = s.TotalIncome.Add(t.Amount.Abs())
		case models.TransactionExpense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount.Abs())
		}
	}

	for i, a := range accounts {
		s.NetBalance = s.NetBalance.Add(a.Balance)
		if i == 0 && a.Currency != "" {
			s.Currency = a.Currency
		}
	}

	s.NetCashFlow = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// FormatAmount renders an amount with two decimals and its currency code.
func FormatAmount(d decimal.Decimal, currency string) string {
	return d.StringFixed(2) + " " + currency
}

// Describe renders the snapshot as plain text.
func (s Snapshot) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total income: %s\n", FormatAmount(s.TotalIncome, s.Currency))
	fmt.Fprintf(&b, "Total expenses: %s\n", FormatAmount(s.TotalExpenses, s.Currency))
	fmt.Fprintf(&b, "Net balance across %d account(s): %s\n", s.AccountCount, FormatAmount(s.NetBalance, s.Currency))
	fmt.Fprintf(&b, "Net cash flow over %d transaction(s): %s", s.TransactionCount, FormatAmount(s.NetCashFlow, s.Currency))
	if s.TotalIncome.IsPositive() {
		fmt.Fprintf(&b, "\nSavings rate: %s%%", s.SavingsRate().Shift(2).StringFixed(1))
	}
	return b.String()
}

// SavingsRate returns (income - expenses) / income, or zero without income.
func (s Snapshot) SavingsRate() decimal.Decimal {
	if !s.TotalIncome.IsPositive() {
		return decimal.Zero
	}
	return s.NetCashFlow.Div(s.TotalIncome).Round(4)
}
