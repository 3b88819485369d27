package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-coach-backend/internal/cache"
	"finance-coach-backend/internal/finance"
	"finance-coach-backend/internal/models"
	"finance-coach-backend/internal/store"
)

// summaryTransactionLimit bounds how many transactions feed /api/summary.
const summaryTransactionLimit = 1000

type transactionInput struct {
	Type          models.TransactionType `json:"type" binding:"required"`
	Amount        decimal.Decimal        `json:"amount"`
	Description   string                 `json:"description"`
	Category      string                 `json:"category"`
	Date          string                 `json:"date"`
	FromAccountID *uuid.UUID             `json:"from_account_id"`
	ToAccountID   *uuid.UUID             `json:"to_account_id"`
}

func (in transactionInput) toModel(userID string, today time.Time) (models.Transaction, string) {
	t := models.Transaction{
		UserID:        userID,
		Type:          models.TransactionType(strings.ToLower(string(in.Type))),
		Amount:        in.Amount,
		Description:   strings.TrimSpace(in.Description),
		Category:      strings.TrimSpace(in.Category),
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		Date:          today,
	}
	if !t.Type.Valid() {
		return t, "type must be one of income, expense, transfer"
	}
	if t.Amount.IsZero() {
		return t, "amount must be non-zero"
	}
	if in.Date != "" {
		d, err := models.ParseDate(in.Date)
		if err != nil {
			return t, "date must be YYYY-MM-DD or RFC3339"
		}
		t.Date = d
	}
	if t.Type == models.TransactionTransfer {
		if t.FromAccountID == nil || t.ToAccountID == nil {
			return t, "transfer requires from_account_id and to_account_id"
		}
		if *t.FromAccountID == *t.ToAccountID {
			return t, "transfer accounts must differ"
		}
	}
	return t, ""
}

// getTransactions retrieves the user's transactions with optional Redis caching
func (s *Server) getTransactions(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)
	limit, ok := limitQuery(c, store.DefaultTransactionLimit)
	if !ok {
		return
	}
	cacheable := limit == store.DefaultTransactionLimit

	var transactions []models.Transaction
	if cacheable && s.cache.GetJSON(ctx, cache.TransactionsKey(userID), &transactions) {
		c.JSON(http.StatusOK, transactions)
		return
	}

	transactions, err := s.repo.ListTransactions(ctx, userID, limit)
	if err != nil {
		storeError(c, err, "", "Failed to list transactions")
		return
	}

	if cacheable {
		s.cache.SetJSON(ctx, cache.TransactionsKey(userID), transactions, cache.ListTTL)
	}
	c.JSON(http.StatusOK, transactions)
}

func (s *Server) getTransaction(c *gin.Context) {
	id, ok := idParam(c, "transaction")
	if !ok {
		return
	}
	t, err := s.repo.GetTransaction(c.Request.Context(), currentUser(c), id)
	if err != nil {
		storeError(c, err, "transaction not found", "Failed to load transaction")
		return
	}
	c.JSON(http.StatusOK, t)
}

// addTransaction creates a new transaction
func (s *Server) addTransaction(c *gin.Context) {
	var in transactionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	userID := currentUser(c)
	now := time.Now().UTC()
	t, problem := in.toModel(userID, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	for _, ref := range []*uuid.UUID{t.FromAccountID, t.ToAccountID} {
		if ref == nil {
			continue
		}
		if _, err := s.repo.GetAccount(ctx, userID, *ref); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown account " + ref.String()})
				return
			}
			storeError(c, err, "", "Failed to create transaction")
			return
		}
	}

	created, err := s.repo.CreateTransaction(ctx, t)
	if err != nil {
		storeError(c, err, "", "Failed to create transaction")
		return
	}

	s.cache.Invalidate(ctx, cache.UserKeys(userID)...)
	c.JSON(http.StatusCreated, created)
}

// deleteTransaction removes a transaction by ID
func (s *Server) deleteTransaction(c *gin.Context) {
	id, ok := idParam(c, "transaction")
	if !ok {
		return
	}
	userID := currentUser(c)
	if err := s.repo.DeleteTransaction(c.Request.Context(), userID, id); err != nil {
		storeError(c, err, "transaction not found", "Failed to delete transaction")
		return
	}

	s.cache.Invalidate(c.Request.Context(), cache.UserKeys(userID)...)
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

// getSummary aggregates the user's accounts and transactions, cached for 5 minutes
func (s *Server) getSummary(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	var snapshot finance.Snapshot
	if s.cache.GetJSON(ctx, cache.SummaryKey(userID), &snapshot) {
		c.JSON(http.StatusOK, snapshot)
		return
	}

	accounts, err := s.repo.ListAccounts(ctx, userID)
	if err != nil {
		storeError(c, err, "", "Failed to compute summary")
		return
	}
	transactions, err := s.repo.ListTransactions(ctx, userID, summaryTransactionLimit)
	if err != nil {
		storeError(c, err, "", "Failed to compute summary")
		return
	}

	snapshot = finance.Summarize(accounts, transactions)
	s.cache.SetJSON(ctx, cache.SummaryKey(userID), snapshot, cache.SummaryTTL)
	c.JSON(http.StatusOK, snapshot)
}
