package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"finance-coach-backend/internal/models"
)

type demoTransaction struct {
	daysAgo     int
	description string
	amount      string
	category    string
	typ         models.TransactionType
}

var demoTransactions = []demoTransaction{
	{28, "Monthly Salary", "3200.00", "Salary", models.TransactionIncome},
	{25, "Freelance: Landing Page", "850.00", "Freelance", models.TransactionIncome},
	{24, "Rent - Apartment", "1500.00", "Rent", models.TransactionExpense},
	{22, "Utilities - Electricity", "120.45", "Utilities", models.TransactionExpense},
	{20, "Groceries - Whole Foods", "96.72", "Groceries", models.TransactionExpense},
	{19, "Subway Pass", "45.00", "Transportation", models.TransactionExpense},
	{16, "Movie Night", "28.50", "Entertainment", models.TransactionExpense},
	{14, "Groceries - Trader Joes", "64.11", "Groceries", models.TransactionExpense},
	{13, "Freelance: Dashboard Charts", "600.00", "Freelance", models.TransactionIncome},
	{11, "Utilities - Internet", "60.00", "Utilities", models.TransactionExpense},
	{8, "Concert Tickets", "140.00", "Entertainment", models.TransactionExpense},
	{6, "Groceries - Costco", "132.39", "Groceries", models.TransactionExpense},
	{4, "Rideshare", "22.30", "Transportation", models.TransactionExpense},
	{1, "Dinner Out", "54.80", "Entertainment", models.TransactionExpense},
}

// SeedDemoData inserts demo accounts, transactions and goals for userID.
// Idempotent: it only runs when the user has no accounts. Reports whether
// anything was inserted.
func SeedDemoData(ctx context.Context, repo Repository, userID string, now time.Time) (bool, error) {
	existing, err := repo.ListAccounts(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("checking accounts: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	checking, err := repo.CreateAccount(ctx, models.Account{
		UserID:   userID,
		Name:     "Everyday Checking",
		Type:     "checking",
		Balance:  decimal.RequireFromString("2487.73"),
		Currency: "USD",
	})
	if err != nil {
		return false, fmt.Errorf("seeding demo accounts: %w", err)
	}
	savings, err := repo.CreateAccount(ctx, models.Account{
		UserID:   userID,
		Name:     "High Yield Savings",
		Type:     "savings",
		Balance:  decimal.RequireFromString("8200.00"),
		Currency: "USD",
	})
	if err != nil {
		return false, fmt.Errorf("seeding demo accounts: %w", err)
	}

	today := now.UTC().Truncate(24 * time.Hour)
	for _, d := range demoTransactions {
		t := models.Transaction{
			UserID:      userID,
			Type:        d.typ,
			Amount:      decimal.RequireFromString(d.amount),
			Description: d.description,
			Category:    d.category,
			Date:        today.AddDate(0, 0, -d.daysAgo),
		}
		if d.typ == models.TransactionIncome {
			t.ToAccountID = &checking.ID
		} else {
			t.FromAccountID = &checking.ID
		}
		if _, err := repo.CreateTransaction(ctx, t); err != nil {
			return false, fmt.Errorf("seeding demo transactions: %w", err)
		}
	}

	if _, err := repo.CreateTransaction(ctx, models.Transaction{
		UserID:        userID,
		Type:          models.TransactionTransfer,
		Amount:        decimal.RequireFromString("500.00"),
		Description:   "Monthly savings transfer",
		Category:      "Savings",
		Date:          today.AddDate(0, 0, -27),
		FromAccountID: &checking.ID,
		ToAccountID:   &savings.ID,
	}); err != nil {
		return false, fmt.Errorf("seeding demo transactions: %w", err)
	}

	deadline := today.AddDate(1, 0, 0)
	goals := []models.FinancialGoal{
		{Name: "Emergency Fund", TargetAmount: decimal.RequireFromString("10000"), CurrentAmount: decimal.RequireFromString("8200"), Status: models.GoalActive, Deadline: &deadline},
		{Name: "Summer Vacation", TargetAmount: decimal.RequireFromString("2500"), CurrentAmount: decimal.RequireFromString("400"), Status: models.GoalActive},
	}
	for _, g := range goals {
		g.UserID = userID
		if _, err := repo.CreateGoal(ctx, g); err != nil {
			return false, fmt.Errorf("seeding demo goals: %w", err)
		}
	}
	return true, nil
}
