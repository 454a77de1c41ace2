package db

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lisanmuaddib/raider-go/pkg/db/models"
)

// SetupDatabase runs migrations and opens the gorm connection for raid history
func SetupDatabase(logger *logrus.Logger, cfg Config) (*gorm.DB, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("database is not configured (DB_HOST is empty)")
	}
	logger.WithFields(logrus.Fields{
		"host": cfg.Host,
		"name": cfg.Name,
	}).Debug("Starting database setup")

	if err := RunMigrations(logger, cfg); err != nil {
		return nil, err
	}

	logger.Debug("Establishing GORM database connection")

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: NewGormLogrusLogger(logger, cfg.SlowQuery),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Ensure enum type exists
	if err := ensureRaidOutcomeEnum(db); err != nil {
		return nil, fmt.Errorf("failed to ensure raid_outcome enum: %w", err)
	}

	// Auto-migrate picks up columns added to the model after the last migration
	if err := db.AutoMigrate(&models.Raid{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database schema: %w", err)
	}

	logger.Info("Database setup completed successfully")
	return db, nil
}
