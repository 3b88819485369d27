// Package store holds the data access layer for accounts, transactions, chat
// history, goals and learning content.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-coach-backend/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist for the owner.
	ErrNotFound = errors.New("not found")
	// ErrGoalCancelled is returned when contributing to a cancelled goal.
	ErrGoalCancelled = errors.New("goal is cancelled")
)

// Table names
const (
	TableAccounts          = "accounts"
	TableTransactions      = "transactions"
	TableChatMessages      = "chat_messages"
	TableGoals             = "financial_goals"
	TableGoalContributions = "goal_contributions"
	TableLearningContent   = "learning_content"
)

// DefaultTransactionLimit bounds transaction listings when no limit is given.
const DefaultTransactionLimit = 100

// Repository is the persistence surface used by the HTTP layer and the coach.
type Repository interface {
	Ping(ctx context.Context) error

	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
	GetAccount(ctx context.Context, userID string, id uuid.UUID) (*models.Account, error)
	CreateAccount(ctx context.Context, a models.Account) (*models.Account, error)
	UpdateAccount(ctx context.Context, a models.Account) (*models.Account, error)
	DeleteAccount(ctx context.Context, userID string, id uuid.UUID) error

	ListTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, userID string, id uuid.UUID) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, t models.Transaction) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID string, id uuid.UUID) error

	// ListChatMessages returns the most recent messages in chronological order.
	ListChatMessages(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error)
	SaveChatMessage(ctx context.Context, m models.ChatMessage) (*models.ChatMessage, error)
	DeleteChatMessages(ctx context.Context, userID string) (int64, error)

	ListGoals(ctx context.Context, userID string) ([]models.FinancialGoal, error)
	GetGoal(ctx context.Context, userID string, id uuid.UUID) (*models.FinancialGoal, error)
	CreateGoal(ctx context.Context, g models.FinancialGoal) (*models.FinancialGoal, error)
	UpdateGoal(ctx context.Context, g models.FinancialGoal) (*models.FinancialGoal, error)
	DeleteGoal(ctx context.Context, userID string, id uuid.UUID) error
	ListContributions(ctx context.Context, userID string, goalID uuid.UUID) ([]models.GoalContribution, error)
	// AddContribution records the contribution and returns it with the updated goal.
	AddContribution(ctx context.Context, c models.GoalContribution) (*models.GoalContribution, *models.FinancialGoal, error)

	ListLearningContent(ctx context.Context, category string) ([]models.LearningContent, error)
}

// applyContribution adds amount to the goal and completes it once the target is reached.
func applyContribution(g *models.FinancialGoal, amount decimal.Decimal, now time.Time) error {
	if g.Status == models.GoalCancelled {
		return ErrGoalCancelled
	}
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	if g.Status == models.GoalActive && g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
		g.Status = models.GoalCompleted
	}
	g.UpdatedAt = now
	return nil
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func effectiveLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
