package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"finance-coach-backend/internal/models"
)

var (
	accountColumns      = []string{"id", "user_id", "name", "type", "balance", "currency", "created_at", "updated_at"}
	transactionColumns  = []string{"id", "user_id", "from_account_id", "to_account_id", "type", "amount", "description", "category", "date", "created_at", "updated_at"}
	chatColumns         = []string{"id", "user_id", "role", "content", "created_at"}
	goalColumns         = []string{"id", "user_id", "name", "target_amount", "current_amount", "deadline", "status", "created_at", "updated_at"}
	contributionColumns = []string{"id", "goal_id", "user_id", "amount", "note", "created_at"}
	learningColumns     = []string{"id", "title", "summary", "body", "category", "difficulty", "created_at"}
)

// Postgres implements Repository on top of database/sql with the pgx driver.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// selectRows runs q and scans every row with scan.
func selectRows[T any](ctx context.Context, db *sql.DB, q Query, scan func(rowScanner) (T, error)) ([]T, error) {
	query, args, err := q.SelectSQL()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	defer rows.Close()

	// ensure empty array ([]) instead of null when no rows
	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Table, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Table, err)
	}
	return out, nil
}

// selectOne returns the first row of q or ErrNotFound.
func selectOne[T any](ctx context.Context, db *sql.DB, q Query, scan func(rowScanner) (T, error)) (*T, error) {
	q.Limit = 1
	items, err := selectRows(ctx, db, q, scan)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return &items[0], nil
}

func (p *Postgres) deleteWhere(ctx context.Context, q Query) (int64, error) {
	query, args, err := q.DeleteSQL()
	if err != nil {
		return 0, err
	}
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", q.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", q.Table, err)
	}
	return n, nil
}

func (p *Postgres) deleteOwned(ctx context.Context, table, userID string, id uuid.UUID) error {
	n, err := p.deleteWhere(ctx, Query{Table: table, Filters: []Filter{Eq("id", id), Eq("user_id", userID)}})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func fromNullUUID(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

// Accounts

func scanAccount(r rowScanner) (models.Account, error) {
	var a models.Account
	err := r.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (p *Postgres) ListAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	return selectRows(ctx, p.db, Query{
		Table:   TableAccounts,
		Columns: accountColumns,
		Filters: []Filter{Eq("user_id", userID)},
		Order:   []Order{{Column: "created_at"}},
	}, scanAccount)
}

func (p *Postgres) GetAccount(ctx context.Context, userID string, id uuid.UUID) (*models.Account, error) {
	return selectOne(ctx, p.db, Query{
		Table:   TableAccounts,
		Columns: accountColumns,
		Filters: []Filter{Eq("id", id), Eq("user_id", userID)},
	}, scanAccount)
}

func (p *Postgres) CreateAccount(ctx context.Context, a models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, user_id, name, type, balance, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, name, type, balance, currency, created_at, updated_at
	`
	out, err := scanAccount(p.db.QueryRowContext(ctx, query, ensureID(a.ID), a.UserID, a.Name, a.Type, a.Balance, a.Currency))
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return &out, nil
}

func (p *Postgres) UpdateAccount(ctx context.Context, a models.Account) (*models.Account, error) {
	query := `
		UPDATE accounts SET name = $1, type = $2, balance = $3, currency = $4, updated_at = NOW()
		WHERE id = $5 AND user_id = $6
		RETURNING id, user_id, name, type, balance, currency, created_at, updated_at
	`
	out, err := scanAccount(p.db.QueryRowContext(ctx, query, a.Name, a.Type, a.Balance, a.Currency, a.ID, a.UserID))
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (p *Postgres) DeleteAccount(ctx context.Context, userID string, id uuid.UUID) error {
	return p.deleteOwned(ctx, TableAccounts, userID, id)
}

// Transactions

func scanTransaction(r rowScanner) (models.Transaction, error) {
	var t models.Transaction
	var from, to uuid.NullUUID
	err := r.Scan(&t.ID, &t.UserID, &from, &to, &t.Type, &t.Amount, &t.Description, &t.Category, &t.Date, &t.CreatedAt, &t.UpdatedAt)
	t.FromAccountID = fromNullUUID(from)
	t.ToAccountID = fromNullUUID(to)
	return t, err
}

func (p *Postgres) ListTransactions(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	return selectRows(ctx, p.db, Query{
		Table:   TableTransactions,
		Columns: transactionColumns,
		Filters: []Filter{Eq("user_id", userID)},
		Order:   []Order{{Column: "date", Desc: true}, {Column: "created_at", Desc: true}},
		Limit:   effectiveLimit(limit, DefaultTransactionLimit),
	}, scanTransaction)
}

func (p *Postgres) GetTransaction(ctx context.Context, userID string, id uuid.UUID) (*models.Transaction, error) {
	return selectOne(ctx, p.db, Query{
		Table:   TableTransactions,
		Columns: transactionColumns,
		Filters: []Filter{Eq("id", id), Eq("user_id", userID)},
	}, scanTransaction)
}

func (p *Postgres) CreateTransaction(ctx context.Context, t models.Transaction) (*models.Transaction, error) {
	query := `
		INSERT INTO transactions (id, user_id, from_account_id, to_account_id, type, amount, description, category, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, user_id, from_account_id, to_account_id, type, amount, description, category, date, created_at, updated_at
	`
	out, err := scanTransaction(p.db.QueryRowContext(ctx, query,
		ensureID(t.ID), t.UserID, nullUUID(t.FromAccountID), nullUUID(t.ToAccountID),
		string(t.Type), t.Amount, t.Description, t.Category, t.Date,
	))
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return &out, nil
}

func (p *Postgres) DeleteTransaction(ctx context.Context, userID string, id uuid.UUID) error {
	return p.deleteOwned(ctx, TableTransactions, userID, id)
}

// Chat messages

func scanChatMessage(r rowScanner) (models.ChatMessage, error) {
	var m models.ChatMessage
	err := r.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt)
	return m, err
}

func (p *Postgres) ListChatMessages(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	q := Query{
		Table:   TableChatMessages,
		Columns: chatColumns,
		Filters: []Filter{Eq("user_id", userID)},
		Order:   []Order{{Column: "created_at", Desc: true}},
		Limit:   limit,
	}
	if limit <= 0 {
		q.Order[0].Desc = false
		return selectRows(ctx, p.db, q, scanChatMessage)
	}
	msgs, err := selectRows(ctx, p.db, q, scanChatMessage)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

func (p *Postgres) SaveChatMessage(ctx context.Context, m models.ChatMessage) (*models.ChatMessage, error) {
	query := `
		INSERT INTO chat_messages (id, user_id, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, role, content, created_at
	`
	out, err := scanChatMessage(p.db.QueryRowContext(ctx, query, ensureID(m.ID), m.UserID, string(m.Role), m.Content))
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	return &out, nil
}

func (p *Postgres) DeleteChatMessages(ctx context.Context, userID string) (int64, error) {
	return p.deleteWhere(ctx, Query{Table: TableChatMessages, Filters: []Filter{Eq("user_id", userID)}})
}

// Goals

func scanGoal(r rowScanner) (models.FinancialGoal, error) {
	var g models.FinancialGoal
	var deadline sql.NullTime
	err := r.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &deadline, &g.Status, &g.CreatedAt, &g.UpdatedAt)
	if deadline.Valid {
		t := deadline.Time
		g.Deadline = &t
	}
	return g, err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (p *Postgres) ListGoals(ctx context.Context, userID string) ([]models.FinancialGoal, error) {
	return selectRows(ctx, p.db, Query{
		Table:   TableGoals,
		Columns: goalColumns,
		Filters: []Filter{Eq("user_id", userID)},
		Order:   []Order{{Column: "created_at"}},
	}, scanGoal)
}

func (p *Postgres) GetGoal(ctx context.Context, userID string, id uuid.UUID) (*models.FinancialGoal, error) {
	return selectOne(ctx, p.db, Query{
		Table:   TableGoals,
		Columns: goalColumns,
		Filters: []Filter{Eq("id", id), Eq("user_id", userID)},
	}, scanGoal)
}

func (p *Postgres) CreateGoal(ctx context.Context, g models.FinancialGoal) (*models.FinancialGoal, error) {
	query := `
		INSERT INTO financial_goals (id, user_id, name, target_amount, current_amount, deadline, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, user_id, name, target_amount, current_amount, deadline, status, created_at, updated_at
	`
	out, err := scanGoal(p.db.QueryRowContext(ctx, query,
		ensureID(g.ID), g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, nullTime(g.Deadline), string(g.Status),
	))
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	return &out, nil
}

func (p *Postgres) UpdateGoal(ctx context.Context, g models.FinancialGoal) (*models.FinancialGoal, error) {
	query := `
		UPDATE financial_goals
		SET name = $1, target_amount = $2, current_amount = $3, deadline = $4, status = $5, updated_at = NOW()
		WHERE id = $6 AND user_id = $7
		RETURNING id, user_id, name, target_amount, current_amount, deadline, status, created_at, updated_at
	`
	out, err := scanGoal(p.db.QueryRowContext(ctx, query,
		g.Name, g.TargetAmount, g.CurrentAmount, nullTime(g.Deadline), string(g.Status), g.ID, g.UserID,
	))
	if err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (p *Postgres) DeleteGoal(ctx context.Context, userID string, id uuid.UUID) error {
	return p.deleteOwned(ctx, TableGoals, userID, id)
}

func scanContribution(r rowScanner) (models.GoalContribution, error) {
	var c models.GoalContribution
	err := r.Scan(&c.ID, &c.GoalID, &c.UserID, &c.Amount, &c.Note, &c.CreatedAt)
	return c, err
}

func (p *Postgres) ListContributions(ctx context.Context, userID string, goalID uuid.UUID) ([]models.GoalContribution, error) {
	if _, err := p.GetGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}
	return selectRows(ctx, p.db, Query{
		Table:   TableGoalContributions,
		Columns: contributionColumns,
		Filters: []Filter{Eq("goal_id", goalID), Eq("user_id", userID)},
		Order:   []Order{{Column: "created_at"}},
	}, scanContribution)
}

func (p *Postgres) AddContribution(ctx context.Context, c models.GoalContribution) (*models.GoalContribution, *models.FinancialGoal, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	goal, err := scanGoal(tx.QueryRowContext(ctx, `
		SELECT id, user_id, name, target_amount, current_amount, deadline, status, created_at, updated_at
		FROM financial_goals WHERE id = $1 AND user_id = $2 FOR UPDATE
	`, c.GoalID, c.UserID))
	if err != nil {
		return nil, nil, notFound(err)
	}
	if err := applyContribution(&goal, c.Amount, time.Now().UTC()); err != nil {
		return nil, nil, err
	}

	updated, err := scanGoal(tx.QueryRowContext(ctx, `
		UPDATE financial_goals SET current_amount = $1, status = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING id, user_id, name, target_amount, current_amount, deadline, status, created_at, updated_at
	`, goal.CurrentAmount, string(goal.Status), goal.ID))
	if err != nil {
		return nil, nil, fmt.Errorf("update goal: %w", err)
	}

	contribution, err := scanContribution(tx.QueryRowContext(ctx, `
		INSERT INTO goal_contributions (id, goal_id, user_id, amount, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, goal_id, user_id, amount, note, created_at
	`, ensureID(c.ID), c.GoalID, c.UserID, c.Amount, c.Note))
	if err != nil {
		return nil, nil, fmt.Errorf("insert contribution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return &contribution, &updated, nil
}

// Learning content

func scanLearning(r rowScanner) (models.LearningContent, error) {
	var l models.LearningContent
	err := r.Scan(&l.ID, &l.Title, &l.Summary, &l.Body, &l.Category, &l.Difficulty, &l.CreatedAt)
	return l, err
}

func (p *Postgres) ListLearningContent(ctx context.Context, category string) ([]models.LearningContent, error) {
	q := Query{
		Table:   TableLearningContent,
		Columns: learningColumns,
		Order:   []Order{{Column: "category"}, {Column: "title"}},
	}
	if category != "" {
		q.Filters = []Filter{Eq("category", category)}
	}
	return selectRows(ctx, p.db, q, scanLearning)
}

var _ Repository = (*Postgres)(nil)
