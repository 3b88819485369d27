package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// NormalizeURL rewrites postgresql:// to postgres:// and adds sslmode=disable
// when the URL does not choose an sslmode.
func NormalizeURL(databaseURL string) string {
	if databaseURL == "" {
		return databaseURL
	}
	if strings.HasPrefix(databaseURL, "postgresql:") {
		databaseURL = "postgres" + databaseURL[len("postgresql"):]
	}
	if !strings.Contains(databaseURL, "sslmode=") {
		separator := "?"
		if strings.Contains(databaseURL, "?") {
			separator = "&"
		}
		databaseURL = databaseURL + separator + "sslmode=disable"
	}
	return databaseURL
}

// Open connects to PostgreSQL, waiting for the server to accept connections.
func Open(ctx context.Context, databaseURL string, maxRetries int, retryDelay time.Duration, log zerolog.Logger) (*sql.DB, error) {
	config, err := pgx.ParseConfig(NormalizeURL(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	for i := 0; i < maxRetries; i++ {
		db := stdlib.OpenDB(*config)
		err := db.PingContext(ctx)
		if err == nil {
			log.Info().Str("host", config.Host).Str("database", config.Database).Msg("Database connection established")
			return db, nil
		}
		db.Close()

		if i == maxRetries-1 {
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
		}

		ev := log.Warn().Int("attempt", i+1).Int("max_attempts", maxRetries).Dur("retry_in", retryDelay)
		// Only the first few and every tenth attempt carry the error
		if i%10 == 0 || i < 5 {
			ev = ev.Err(err)
		}
		ev.Msg("Database not ready")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to database")
}

// Setup creates tables and seeds learning content
func Setup(ctx context.Context, db *sql.DB, log zerolog.Logger) error {
	log.Info().Msg("Creating database schema...")
	if err := EnsureSchema(ctx, db); err != nil {
		return err
	}
	log.Info().Msg("Schema created successfully")

	n, err := SeedLearningContent(ctx, db)
	if err != nil {
		return err
	}
	log.Info().Int64("rows_affected", n).Msg("Learning content seeded")
	return nil
}
