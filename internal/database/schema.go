package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"finance-coach-backend/internal/models"
)

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		name VARCHAR(100) NOT NULL,
		type VARCHAR(30) NOT NULL,
		balance DECIMAL(14,2) NOT NULL DEFAULT 0,
		currency VARCHAR(3) NOT NULL DEFAULT 'USD',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		from_account_id UUID REFERENCES accounts(id) ON DELETE SET NULL,
		to_account_id UUID REFERENCES accounts(id) ON DELETE SET NULL,
		type VARCHAR(20) NOT NULL,
		amount DECIMAL(14,2) NOT NULL,
		description VARCHAR(255) NOT NULL DEFAULT '',
		category VARCHAR(100) NOT NULL DEFAULT '',
		date DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id UUID PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		role VARCHAR(20) NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS financial_goals (
		id UUID PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		name VARCHAR(100) NOT NULL,
		target_amount DECIMAL(14,2) NOT NULL,
		current_amount DECIMAL(14,2) NOT NULL DEFAULT 0,
		deadline DATE,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS goal_contributions (
		id UUID PRIMARY KEY,
		goal_id UUID NOT NULL REFERENCES financial_goals(id) ON DELETE CASCADE,
		user_id VARCHAR(128) NOT NULL,
		amount DECIMAL(14,2) NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS learning_content (
		id UUID PRIMARY KEY,
		title VARCHAR(200) NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL,
		category VARCHAR(50) NOT NULL,
		difficulty VARCHAR(20) NOT NULL DEFAULT 'beginner',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date DESC);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_user_created ON chat_messages(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_goals_user ON financial_goals(user_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_learning_content_title ON learning_content(title);
`

// LearningArticle is a built-in article inserted by SeedLearningContent
type LearningArticle struct {
	Title      string
	Summary    string
	Body       string
	Category   string
	Difficulty string
}

// LearningArticles is the built-in learning library
var LearningArticles = []LearningArticle{
	{
		Title:      "Building an Emergency Fund",
		Summary:    "Why three to six months of expenses belongs in cash.",
		Body:       "Start with a small target such as one month of essential expenses, automate a transfer on payday and keep the fund in a separate savings account so it is not spent by accident.",
		Category:   "saving",
		Difficulty: "beginner",
	},
	{
		Title:      "The 50/30/20 Budget",
		Summary:    "A simple split between needs, wants and savings.",
		Body:       "Put half of take-home pay toward needs, thirty percent toward wants and twenty percent toward savings and debt repayment. Adjust the split once you know your real spending.",
		Category:   "budgeting",
		Difficulty: "beginner",
	},
	{
		Title:      "Paying Down Debt: Avalanche vs Snowball",
		Summary:    "Two strategies for ordering debt repayments.",
		Body:       "The avalanche method pays the highest interest rate first and minimises total interest. The snowball method pays the smallest balance first and builds momentum. Both require paying the minimum on every other debt.",
		Category:   "debt",
		Difficulty: "intermediate",
	},
	{
		Title:      "Index Funds for Long-Term Investing",
		Summary:    "Low-cost diversification for retirement savings.",
		Body:       "Index funds track a market index, charge low fees and spread risk across many companies. Invest regularly regardless of market conditions and avoid withdrawing early.",
		Category:   "investing",
		Difficulty: "intermediate",
	},
}

// LearningLibrary returns the built-in articles as models, for backends
// without a learning_content table.
func LearningLibrary() []models.LearningContent {
	out := make([]models.LearningContent, 0, len(LearningArticles))
	for _, a := range LearningArticles {
		out = append(out, models.LearningContent{
			Title:      a.Title,
			Summary:    a.Summary,
			Body:       a.Body,
			Category:   a.Category,
			Difficulty: a.Difficulty,
		})
	}
	return out
}

const seedLearningSQL = `
	INSERT INTO learning_content (id, title, summary, body, category, difficulty)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (title) DO NOTHING
`

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SeedLearningContent inserts the built-in articles, skipping existing titles.
func SeedLearningContent(ctx context.Context, db *sql.DB) (int64, error) {
	var total int64
	for _, a := range LearningArticles {
		res, err := db.ExecContext(ctx, seedLearningSQL, uuid.New(), a.Title, a.Summary, a.Body, a.Category, a.Difficulty)
		if err != nil {
			return total, fmt.Errorf("failed to seed learning content: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
