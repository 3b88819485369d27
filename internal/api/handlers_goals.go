package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finance-coach-backend/internal/models"
	"finance-coach-backend/internal/store"
)

type goalInput struct {
	Name          string            `json:"name" binding:"required"`
	TargetAmount  decimal.Decimal   `json:"target_amount"`
	CurrentAmount decimal.Decimal   `json:"current_amount"`
	Deadline      string            `json:"deadline"`
	Status        models.GoalStatus `json:"status"`
}

func (in goalInput) toModel(userID string) (models.FinancialGoal, string) {
	g := models.FinancialGoal{
		UserID:        userID,
		Name:          strings.TrimSpace(in.Name),
		TargetAmount:  in.TargetAmount,
		CurrentAmount: in.CurrentAmount,
		Status:        in.Status,
	}
	if g.Name == "" {
		return g, "name is required"
	}
	if !g.TargetAmount.IsPositive() {
		return g, "target_amount must be positive"
	}
	if g.CurrentAmount.IsNegative() {
		return g, "current_amount must not be negative"
	}
	if g.Status == "" {
		g.Status = models.GoalActive
	}
	if !g.Status.Valid() {
		return g, "status must be one of active, completed, cancelled"
	}
	if in.Deadline != "" {
		d, err := models.ParseDate(in.Deadline)
		if err != nil {
			return g, "deadline must be YYYY-MM-DD or RFC3339"
		}
		g.Deadline = &d
	}
	return g, ""
}

type goalView struct {
	models.FinancialGoal
	Progress float64 `json:"progress"`
}

func viewGoal(g models.FinancialGoal) goalView {
	return goalView{FinancialGoal: g, Progress: g.Progress()}
}

type contributionInput struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

func (s *Server) getGoals(c *gin.Context) {
	goals, err := s.repo.ListGoals(c.Request.Context(), currentUser(c))
	if err != nil {
		storeError(c, err, "", "Failed to list goals")
		return
	}
	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, viewGoal(g))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getGoal(c *gin.Context) {
	id, ok := idParam(c, "goal")
	if !ok {
		return
	}
	g, err := s.repo.GetGoal(c.Request.Context(), currentUser(c), id)
	if err != nil {
		storeError(c, err, "goal not found", "Failed to load goal")
		return
	}
	c.JSON(http.StatusOK, viewGoal(*g))
}

func (s *Server) addGoal(c *gin.Context) {
	var in goalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, problem := in.toModel(currentUser(c))
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}
	created, err := s.repo.CreateGoal(c.Request.Context(), g)
	if err != nil {
		storeError(c, err, "", "Failed to create goal")
		return
	}
	c.JSON(http.StatusCreated, viewGoal(*created))
}

func (s *Server) updateGoal(c *gin.Context) {
	id, ok := idParam(c, "goal")
	if !ok {
		return
	}
	var in goalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g, problem := in.toModel(currentUser(c))
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}
	g.ID = id
	updated, err := s.repo.UpdateGoal(c.Request.Context(), g)
	if err != nil {
		storeError(c, err, "goal not found", "Failed to update goal")
		return
	}
	c.JSON(http.StatusOK, viewGoal(*updated))
}

func (s *Server) deleteGoal(c *gin.Context) {
	id, ok := idParam(c, "goal")
	if !ok {
		return
	}
	if err := s.repo.DeleteGoal(c.Request.Context(), currentUser(c), id); err != nil {
		storeError(c, err, "goal not found", "Failed to delete goal")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted"})
}

func (s *Server) getContributions(c *gin.Context) {
	id, ok := idParam(c, "goal")
	if !ok {
		return
	}
	list, err := s.repo.ListContributions(c.Request.Context(), currentUser(c), id)
	if err != nil {
		storeError(c, err, "goal not found", "Failed to list contributions")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) addContribution(c *gin.Context) {
	id, ok := idParam(c, "goal")
	if !ok {
		return
	}
	var in contributionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !in.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	contribution, goal, err := s.repo.AddContribution(c.Request.Context(), models.GoalContribution{
		GoalID: id,
		UserID: currentUser(c),
		Amount: in.Amount,
		Note:   strings.TrimSpace(in.Note),
	})
	if errors.Is(err, store.ErrGoalCancelled) {
		c.JSON(http.StatusConflict, gin.H{"error": "goal is cancelled"})
		return
	}
	if err != nil {
		storeError(c, err, "goal not found", "Failed to add contribution")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contribution": contribution, "goal": viewGoal(*goal)})
}

// getLearningContent lists articles, optionally filtered by ?category=
func (s *Server) getLearningContent(c *gin.Context) {
	items, err := s.repo.ListLearningContent(c.Request.Context(), strings.TrimSpace(c.Query("category")))
	if err != nil {
		storeError(c, err, "", "Failed to list learning content")
		return
	}
	c.JSON(http.StatusOK, items)
}
