package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finance-coach-backend/internal/models"
)

// Memory is a process-local Repository used for development and tests.
type Memory struct {
	mu            sync.RWMutex
	now           func() time.Time
	accounts      []models.Account
	transactions  []models.Transaction
	chat          []models.ChatMessage
	goals         []models.FinancialGoal
	contributions []models.GoalContribution
	learning      []models.LearningContent
}

func NewMemory() *Memory {
	return &Memory{now: func() time.Time { return time.Now().UTC() }}
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

// SeedLearning replaces the learning library.
func (m *Memory) SeedLearning(items []models.LearningContent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.learning = slices.Clone(items)
	for i := range m.learning {
		m.learning[i].ID = ensureID(m.learning[i].ID)
		if m.learning[i].CreatedAt.IsZero() {
			m.learning[i].CreatedAt = m.now()
		}
	}
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, it := range items {
		if match(it) {
			return i
		}
	}
	return -1
}

// Accounts

func (m *Memory) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Account, 0)
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) GetAccount(ctx context.Context, userID string, id uuid.UUID) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := indexOf(m.accounts, func(a models.Account) bool { return a.ID == id && a.UserID == userID })
	if i < 0 {
		return nil, ErrNotFound
	}
	a := m.accounts[i]
	return &a, nil
}

func (m *Memory) CreateAccount(ctx context.Context, a models.Account) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = ensureID(a.ID)
	a.CreatedAt = m.now()
	a.UpdatedAt = a.CreatedAt
	m.accounts = append(m.accounts, a)
	return &a, nil
}

func (m *Memory) UpdateAccount(ctx context.Context, a models.Account) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOf(m.accounts, func(x models.Account) bool { return x.ID == a.ID && x.UserID == a.UserID })
	if i < 0 {
		return nil, ErrNotFound
	}
	cur := &m.accounts[i]
	cur.Name = a.Name
	cur.Type = a.Type
	cur.Balance = a.Balance
	cur.Currency = a.Currency
	cur.UpdatedAt = m.now()
	out := *cur
	return &out, nil
}

func (m *Memory) DeleteAccount(ctx context.Context, userID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOf(m.accounts, func(a models.Account) bool { return a.ID == id && a.UserID == userID })
	if i < 0 {
		return ErrNotFound
	}
	m.accounts = slices.Delete(m.accounts, i, i+1)
	// mirror ON DELETE SET NULL
	for j := range m.transactions {
		t := &m.transactions[j]
		if t.FromAccountID != nil && *t.FromAccountID == id {
			t.FromAccountID = nil
		}
		if t.ToAccountID != nil && *t.ToAccountID == id {
			t.ToAccountID = nil
		}
	}
	return nil
}

// Transactions

func (m *Memory) ListTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Transaction, 0)
	for _, t := range m.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit = effectiveLimit(limit, DefaultTransactionLimit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) GetTransaction(ctx context.Context, userID string, id uuid.UUID) (*models.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := indexOf(m.transactions, func(t models.Transaction) bool { return t.ID == id && t.UserID == userID })
	if i < 0 {
		return nil, ErrNotFound
	}
	t := m.transactions[i]
	return &t, nil
}

func (m *Memory) CreateTransaction(ctx context.Context, t models.Transaction) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = ensureID(t.ID)
	t.CreatedAt = m.now()
	t.UpdatedAt = t.CreatedAt
	m.transactions = append(m.transactions, t)
	return &t, nil
}

func (m *Memory) DeleteTransaction(ctx context.Context, userID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOf(m.transactions, func(t models.Transaction) bool { return t.ID == id && t.UserID == userID })
	if i < 0 {
		return ErrNotFound
	}
	m.transactions = slices.Delete(m.transactions, i, i+1)
	return nil
}

// Chat messages are kept in insertion order, which is creation order.

func (m *Memory) ListChatMessages(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ChatMessage, 0)
	for _, msg := range m.chat {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *Memory) SaveChatMessage(ctx context.Context, msg models.ChatMessage) (*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = ensureID(msg.ID)
	msg.CreatedAt = m.now()
	m.chat = append(m.chat, msg)
	return &msg, nil
}

func (m *Memory) DeleteChatMessages(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.chat)
	m.chat = slices.DeleteFunc(m.chat, func(msg models.ChatMessage) bool { return msg.UserID == userID })
	return int64(before - len(m.chat)), nil
}

// Goals

func (m *Memory) ListGoals(ctx context.Context, userID string) ([]models.FinancialGoal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.FinancialGoal, 0)
	for _, g := range m.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *Memory) GetGoal(ctx context.Context, userID string, id uuid.UUID) (*models.FinancialGoal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := indexOf(m.goals, func(g models.FinancialGoal) bool { return g.ID == id && g.UserID == userID })
	if i < 0 {
		return nil, ErrNotFound
	}
	g := m.goals[i]
	return &g, nil
}

func (m *Memory) CreateGoal(ctx context.Context, g models.FinancialGoal) (*models.FinancialGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = ensureID(g.ID)
	g.CreatedAt = m.now()
	g.UpdatedAt = g.CreatedAt
	m.goals = append(m.goals, g)
	return &g, nil
}

func (m *Memory) UpdateGoal(ctx context.Context, g models.FinancialGoal) (*models.FinancialGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOf(m.goals, func(x models.FinancialGoal) bool { return x.ID == g.ID && x.UserID == g.UserID })
	if i < 0 {
		return nil, ErrNotFound
	}
	g.CreatedAt = m.goals[i].CreatedAt
	g.UpdatedAt = m.now()
	m.goals[i] = g
	return &g, nil
}

func (m *Memory) DeleteGoal(ctx context.Context, userID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOf(m.goals, func(g models.FinancialGoal) bool { return g.ID == id && g.UserID == userID })
	if i < 0 {
		return ErrNotFound
	}
	m.goals = slices.Delete(m.goals, i, i+1)
	m.contributions = slices.DeleteFunc(m.contributions, func(c models.GoalContribution) bool { return c.GoalID == id })
	return nil
}

func (m *Memory) ListContributions(ctx context.Context, userID string, goalID uuid.UUID) ([]models.GoalContribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if indexOf(m.goals, func(g models.FinancialGoal) bool { return g.ID == goalID && g.UserID == userID }) < 0 {
		return nil, ErrNotFound
	}
	out := make([]models.GoalContribution, 0)
	for _, c := range m.contributions {
		if c.GoalID == goalID && c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) AddContribution(ctx context.Context, c models.GoalContribution) (*models.GoalContribution, *models.FinancialGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOf(m.goals, func(g models.FinancialGoal) bool { return g.ID == c.GoalID && g.UserID == c.UserID })
	if i < 0 {
		return nil, nil, ErrNotFound
	}
	goal := m.goals[i]
	now := m.now()
	if err := applyContribution(&goal, c.Amount, now); err != nil {
		return nil, nil, err
	}
	m.goals[i] = goal

	c.ID = ensureID(c.ID)
	c.CreatedAt = now
	m.contributions = append(m.contributions, c)
	return &c, &goal, nil
}

// Learning content

func (m *Memory) ListLearningContent(ctx context.Context, category string) ([]models.LearningContent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.LearningContent, 0)
	for _, l := range m.learning {
		if category == "" || l.Category == category {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return strings.Compare(out[i].Title, out[j].Title) < 0
	})
	return out, nil
}

var _ Repository = (*Memory)(nil)
