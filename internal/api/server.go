package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"finance-coach-backend/internal/cache"
	"finance-coach-backend/internal/coach"
	"finance-coach-backend/internal/proxy"
	"finance-coach-backend/internal/store"
)

// Server holds the collaborators shared by all handlers.
type Server struct {
	repo  store.Repository
	cache *cache.Cache
	coach *coach.Service
	proxy *proxy.Proxy
	log   zerolog.Logger
}

type Deps struct {
	Repo  store.Repository
	Cache *cache.Cache
	Coach *coach.Service
	Proxy *proxy.Proxy
	Log   zerolog.Logger
}

func NewServer(d Deps) *Server {
	return &Server{
		repo:  d.Repo,
		cache: d.Cache,
		coach: d.Coach,
		proxy: d.Proxy,
		log:   d.Log,
	}
}

// Router builds the gin engine with middleware and all routes.
func (s *Server) Router(corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(s.log))

	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", UserIDHeader, RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.healthCheck)

	api := r.Group("/api")
	api.POST("/chat", s.chat)

	user := api.Group("", RequireUser())
	user.GET("/chat/history", s.getChatHistory)
	user.DELETE("/chat/history", s.deleteChatHistory)
	user.POST("/coach/advice", s.getAdvice)

	user.GET("/accounts", s.getAccounts)
	user.POST("/accounts", s.addAccount)
	user.GET("/accounts/:id", s.getAccount)
	user.PUT("/accounts/:id", s.updateAccount)
	user.DELETE("/accounts/:id", s.deleteAccount)

	user.GET("/transactions", s.getTransactions)
	user.POST("/transactions", s.addTransaction)
	user.GET("/transactions/:id", s.getTransaction)
	user.DELETE("/transactions/:id", s.deleteTransaction)

	user.GET("/summary", s.getSummary)

	user.GET("/goals", s.getGoals)
	user.POST("/goals", s.addGoal)
	user.GET("/goals/:id", s.getGoal)
	user.PUT("/goals/:id", s.updateGoal)
	user.DELETE("/goals/:id", s.deleteGoal)
	user.GET("/goals/:id/contributions", s.getContributions)
	user.POST("/goals/:id/contributions", s.addContribution)

	user.GET("/learning", s.getLearningContent)

	// Everything else under /api goes upstream
	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if s.proxy != nil && (path == proxy.Prefix || strings.HasPrefix(path, proxy.Prefix+"/")) {
			s.proxy.Handle(c)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
