package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"finance-coach-backend/internal/api"
	"finance-coach-backend/internal/cache"
	"finance-coach-backend/internal/coach"
	"finance-coach-backend/internal/config"
	"finance-coach-backend/internal/database"
	"finance-coach-backend/internal/logger"
	"finance-coach-backend/internal/proxy"
	"finance-coach-backend/internal/store"
)

func main() {
	migrateCmd := flag.Bool("migrate", false, "Create the database schema and seed learning content")
	seedDemoCmd := flag.Bool("seed-demo", false, "Seed demo accounts, transactions and goals (idempotent)")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *migrateCmd || *seedDemoCmd {
		if err := runCommand(ctx, cfg, log, *migrateCmd, *seedDemoCmd); err != nil {
			log.Fatal().Err(err).Msg("Command failed")
		}
		return
	}

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer closeRepo()

	redisLog := logger.Component(log, "cache")
	var redisClient *cache.Cache
	if cfg.RedisURL == "" {
		log.Info().Msg("REDIS_URL not set, running without cache")
		redisClient = cache.New(nil, redisLog)
	} else if client, err := cache.Connect(ctx, cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis, continuing without cache")
		redisClient = cache.New(nil, redisLog)
	} else {
		log.Info().Msg("Redis connection established")
		redisClient = cache.New(client, redisLog)
	}
	defer redisClient.Close()

	coachSvc := coach.NewService(newCompleter(ctx, cfg, log), repo, coach.Options{
		Timeout:    cfg.CoachTimeout,
		MaxHistory: cfg.CoachMaxHistory,
	}, log)

	srv := api.NewServer(api.Deps{
		Repo:  repo,
		Cache: redisClient,
		Coach: coachSvc,
		Proxy: proxy.New(cfg.APIBaseURL, cfg.ProxyTimeout, log),
		Log:   log,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.DataBackend).Msg("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

// runCommand handles the one-shot -migrate and -seed-demo flags.
func runCommand(ctx context.Context, cfg *config.Config, log zerolog.Logger, migrate, seedDemo bool) error {
	if cfg.DataBackend != config.BackendPostgres {
		return errors.New("-migrate and -seed-demo require DATA_BACKEND=postgres")
	}
	db, err := database.Open(ctx, cfg.DatabaseURL, cfg.DBConnectRetries, cfg.DBConnectDelay, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrate {
		if err := database.Setup(ctx, db, log); err != nil {
			return err
		}
		log.Info().Msg("Migration completed successfully")
	}
	if seedDemo {
		seeded, err := store.SeedDemoData(ctx, store.NewPostgres(db), cfg.DemoUserID, time.Now().UTC())
		if err != nil {
			return err
		}
		log.Info().Str("user_id", cfg.DemoUserID).Bool("inserted", seeded).Msg("Demo data seeded")
	}
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Repository, func(), error) {
	if cfg.DataBackend == config.BackendMemory {
		mem := store.NewMemory()
		mem.SeedLearning(database.LearningLibrary())
		if _, err := store.SeedDemoData(ctx, mem, cfg.DemoUserID, time.Now().UTC()); err != nil {
			return nil, nil, err
		}
		log.Warn().Str("demo_user", cfg.DemoUserID).Msg("Using in-memory storage, data is lost on restart")
		return mem, func() {}, nil
	}

	db, err := database.Open(ctx, cfg.DatabaseURL, cfg.DBConnectRetries, cfg.DBConnectDelay, log)
	if err != nil {
		return nil, nil, err
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.NewPostgres(db), closeDB(db, log), nil
}

func closeDB(db *sql.DB, log zerolog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing database failed")
		}
	}
}

func newCompleter(ctx context.Context, cfg *config.Config, log zerolog.Logger) coach.Completer {
	if !cfg.CoachEnabled() {
		log.Warn().Msg("GEMINI_API_KEY not set, chat requests will fail")
		return coach.Unavailable{}
	}
	completer, err := coach.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.CoachModel)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Gemini client, chat requests will fail")
		return coach.Unavailable{}
	}
	log.Info().Str("model", cfg.CoachModel).Msg("Coach model configured")
	return completer
}
