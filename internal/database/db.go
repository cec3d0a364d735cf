package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"umlexport/internal/config"
)

var Pool *pgxpool.Pool

// EnsureDatabaseExists creates the configured database with the admin
// account. It is a no-op when no admin account is configured.
func EnsureDatabaseExists(cfg config.DatabaseConfig) error {
	if cfg.AdminUser == "" {
		return nil
	}
	if cfg.Host == "" {
		return fmt.Errorf("DB_HOST environment variable is required")
	}
	if cfg.Name == "" {
		return fmt.Errorf("DB_DATABASE environment variable is required")
	}

	userInfo := url.UserPassword(cfg.AdminUser, cfg.AdminPassword)
	dsn := fmt.Sprintf(
		"postgres://%s@%s:%s/postgres?sslmode=disable",
		userInfo.String(),
		cfg.Host,
		cfg.Port,
	)

	log.Info().Str("database", cfg.Name).Msg("checking if database exists")

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"
	if err := pool.QueryRow(ctx, query, cfg.Name).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}

	if exists {
		log.Info().Str("database", cfg.Name).Msg("database already exists")
		return nil
	}

	// CREATE DATABASE cannot run inside a transaction.
	quoted := pgx.Identifier{cfg.Name}.Sanitize()
	if _, err := pool.Exec(ctx, "CREATE DATABASE "+quoted); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	log.Info().Str("database", cfg.Name).Msg("database created")
	return nil
}

// DSN builds the application connection string.
func DSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("DB_HOST environment variable is required")
	}
	if cfg.User == "" {
		return "", fmt.Errorf("DB_USERNAME environment variable is required")
	}
	if cfg.Name == "" {
		return "", fmt.Errorf("DB_DATABASE environment variable is required")
	}

	userInfo := url.UserPassword(cfg.User, cfg.Password)
	return fmt.Sprintf(
		"postgres://%s@%s:%s/%s?sslmode=disable",
		userInfo.String(),
		cfg.Host,
		cfg.Port,
		url.PathEscape(cfg.Name),
	), nil
}

func Connect(cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("host", cfg.Host).Str("port", cfg.Port).Str("database", cfg.Name).Str("user", cfg.User).Msg("connecting to database")
	return ConnectDSN(dsn)
}

// ConnectDSN opens and pings a pool for an explicit connection string.
func ConnectDSN(dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string (check your .env file): %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	Pool = pool
	log.Info().Msg("database connection pool established")
	return pool, nil
}

func Close() {
	if Pool != nil {
		Pool.Close()
		log.Info().Msg("database connection pool closed")
	}
}
