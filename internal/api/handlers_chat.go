package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finance-coach-backend/internal/coach"
)

// chatFailureMessage is the only error the chat endpoint reports.
const chatFailureMessage = "Failed to process chat message"

const defaultChatHistoryLimit = 50

// chat answers a coach message. Identity is optional; when present the
// exchange is stored in the user's chat history.
func (s *Server) chat(c *gin.Context) {
	log := requestLog(c)

	var req coach.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Malformed chat request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": chatFailureMessage})
		return
	}

	reply, err := s.coach.Chat(c.Request.Context(), currentUser(c), req)
	if err != nil {
		log.Error().Err(err).Msg("Chat request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": chatFailureMessage})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": reply})
}

// getChatHistory returns the user's most recent messages, oldest first
func (s *Server) getChatHistory(c *gin.Context) {
	limit, ok := limitQuery(c, defaultChatHistoryLimit)
	if !ok {
		return
	}
	msgs, err := s.repo.ListChatMessages(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		storeError(c, err, "", "Failed to load chat history")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// deleteChatHistory removes every message of the user
func (s *Server) deleteChatHistory(c *gin.Context) {
	n, err := s.repo.DeleteChatMessages(c.Request.Context(), currentUser(c))
	if err != nil {
		storeError(c, err, "", "Failed to clear chat history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared", "deleted": n})
}

func (s *Server) getAdvice(c *gin.Context) {
	advice, err := s.coach.Advise(c.Request.Context(), currentUser(c))
	if err != nil {
		log := requestLog(c)
		log.Error().Err(err).Msg("Advice request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate advice"})
		return
	}
	c.JSON(http.StatusOK, advice)
}
