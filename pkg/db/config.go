package db

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gorm.io/gorm"
)

// Config describes the Postgres database that keeps raid history.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	// MigrationsDir defaults to <project root>/migrations
	MigrationsDir string
	SlowQuery     time.Duration
}

// NewConfigFromEnv reads DB_* variables.
func NewConfigFromEnv() (Config, error) {
	cfg := Config{
		Host:          os.Getenv("DB_HOST"),
		Port:          getEnvOrDefault("DB_PORT", "5432"),
		User:          os.Getenv("DB_USER"),
		Password:      os.Getenv("DB_PASSWORD"),
		Name:          os.Getenv("DB_NAME"),
		SSLMode:       getEnvOrDefault("DB_SSLMODE", "disable"),
		MigrationsDir: os.Getenv("MIGRATIONS_DIR"),
		SlowQuery:     200 * time.Millisecond,
	}

	if v := os.Getenv("DB_SLOW_QUERY_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DB_SLOW_QUERY_MS %q: %w", v, err)
		}
		cfg.SlowQuery = time.Duration(ms) * time.Millisecond
	}

	return cfg, nil
}

// Enabled reports whether a database has been configured. Raid history is
// only kept when it has.
func (c Config) Enabled() bool {
	return c.Host != ""
}

// DSN is the gorm/pgx connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

// URL is the connection URL golang-migrate expects.
func (c Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func (c Config) migrationsDir() (string, error) {
	if c.MigrationsDir != "" {
		return filepath.Abs(c.MigrationsDir)
	}
	root, err := findProjectRoot()
	if err != nil {
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	return filepath.Join(root, "migrations"), nil
}

// findProjectRoot looks for go.mod file to determine project root
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// ensureRaidOutcomeEnum ensures the raid_outcome enum type exists
func ensureRaidOutcomeEnum(db *gorm.DB) error {
	var exists bool
	err := db.Raw(`
		SELECT EXISTS (
			SELECT 1 FROM pg_type
			WHERE typname = 'raid_outcome'
		);
	`).Scan(&exists).Error

	if err != nil {
		return err
	}

	if !exists {
		err := db.Exec(`
			CREATE TYPE raid_outcome AS ENUM (
				'completed',
				'expired',
				'cancelled',
				'failed'
			);
		`).Error
		if err != nil {
			return err
		}
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
