package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finance-coach-backend/internal/cache"
	"finance-coach-backend/internal/finance"
	"finance-coach-backend/internal/models"
)

type accountInput struct {
	Name     string          `json:"name" binding:"required"`
	Type     string          `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

func (in accountInput) toModel(userID string) (models.Account, string) {
	a := models.Account{
		UserID:   userID,
		Name:     strings.TrimSpace(in.Name),
		Type:     strings.ToLower(strings.TrimSpace(in.Type)),
		Balance:  in.Balance,
		Currency: strings.ToUpper(strings.TrimSpace(in.Currency)),
	}
	if a.Name == "" {
		return a, "name is required"
	}
	if a.Type == "" {
		a.Type = "checking"
	}
	if a.Currency == "" {
		a.Currency = finance.DefaultCurrency
	}
	if len(a.Currency) != 3 {
		return a, "currency must be a 3-letter code"
	}
	return a, ""
}

// getAccounts lists the user's accounts with optional Redis caching
func (s *Server) getAccounts(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)

	var accounts []models.Account
	if s.cache.GetJSON(ctx, cache.AccountsKey(userID), &accounts) {
		c.JSON(http.StatusOK, accounts)
		return
	}

	accounts, err := s.repo.ListAccounts(ctx, userID)
	if err != nil {
		storeError(c, err, "", "Failed to list accounts")
		return
	}

	s.cache.SetJSON(ctx, cache.AccountsKey(userID), accounts, cache.ListTTL)
	c.JSON(http.StatusOK, accounts)
}

func (s *Server) getAccount(c *gin.Context) {
	id, ok := idParam(c, "account")
	if !ok {
		return
	}
	a, err := s.repo.GetAccount(c.Request.Context(), currentUser(c), id)
	if err != nil {
		storeError(c, err, "account not found", "Failed to load account")
		return
	}
	c.JSON(http.StatusOK, a)
}

// addAccount creates a new account
func (s *Server) addAccount(c *gin.Context) {
	var in accountInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := currentUser(c)
	a, problem := in.toModel(userID)
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	created, err := s.repo.CreateAccount(c.Request.Context(), a)
	if err != nil {
		storeError(c, err, "", "Failed to create account")
		return
	}

	s.cache.Invalidate(c.Request.Context(), cache.UserKeys(userID)...)
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateAccount(c *gin.Context) {
	id, ok := idParam(c, "account")
	if !ok {
		return
	}
	var in accountInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := currentUser(c)
	a, problem := in.toModel(userID)
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}
	a.ID = id

	updated, err := s.repo.UpdateAccount(c.Request.Context(), a)
	if err != nil {
		storeError(c, err, "account not found", "Failed to update account")
		return
	}

	s.cache.Invalidate(c.Request.Context(), cache.UserKeys(userID)...)
	c.JSON(http.StatusOK, updated)
}

// deleteAccount removes an account by ID
func (s *Server) deleteAccount(c *gin.Context) {
	id, ok := idParam(c, "account")
	if !ok {
		return
	}
	userID := currentUser(c)
	if err := s.repo.DeleteAccount(c.Request.Context(), userID, id); err != nil {
		storeError(c, err, "account not found", "Failed to delete account")
		return
	}

	s.cache.Invalidate(c.Request.Context(), cache.UserKeys(userID)...)
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
