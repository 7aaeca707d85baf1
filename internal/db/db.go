// Package db mirrors recorded loitering verdicts into PostgreSQL.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/unklstewy/ads-loiter/pkg/config"
)

//go:embed schema.sql
var schemaSQL embed.FS

// DB wraps a database connection with helper methods.
type DB struct {
	*sql.DB
	config config.DatabaseConfig
}

// connString builds the lib/pq key/value connection string.
func connString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)
}

// Connect establishes a connection to the PostgreSQL database.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	sqlDB, err := sql.Open("postgres", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: sqlDB, config: cfg}, nil
}

// InitSchema creates the verdict table if it does not exist.
// This should be called once at application startup.
func (db *DB) InitSchema(ctx context.Context) error {
	schemaBytes, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// PruneVerdicts deletes verdict rows older than maxAge and returns how many
// were removed. A non-positive maxAge keeps everything.
func PruneVerdicts(ctx context.Context, db *sql.DB, maxAge time.Duration, now time.Time) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := now.Add(-maxAge)
	res, err := db.ExecContext(ctx, `DELETE FROM loiter_verdicts WHERE detected_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune verdicts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetStats returns database statistics.
func GetStats(ctx context.Context, db *sql.DB, today time.Time) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM loiter_verdicts`).Scan(&total); err != nil {
		return nil, err
	}
	stats["verdicts_total"] = total

	var todayCount int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loiter_verdicts WHERE detected_on = $1`,
		today.Format("2006-01-02"),
	).Scan(&todayCount)
	if err != nil {
		return nil, err
	}
	stats["verdicts_today"] = todayCount

	var days int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT detected_on) FROM loiter_verdicts`).Scan(&days); err != nil {
		return nil, err
	}
	stats["days_recorded"] = days

	return stats, nil
}
