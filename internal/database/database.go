package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/complaints"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/meals"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/subscriptions"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

var errMissingURL = errors.New("database: url is required")

// Open connects to the configured database and brings the schema up to date.
// postgres:// and postgresql:// URLs select PostgreSQL; anything else is a
// SQLite path, optionally written as sqlite:///path.
func Open(url string, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialector, driver, err := dialectorFor(url)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newQueryLogger(logger)})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", driver, err)
	}

	if driver == driverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db, logger); err != nil {
		return nil, err
	}

	logger.Info("database initialized", zap.String("driver", driver))
	return db, nil
}

// Migrate creates the tables for every model and applies pending data migrations.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	err := db.AutoMigrate(
		&users.User{},
		&subscriptions.Plan{},
		&subscriptions.Subscription{},
		&subscriptions.Payment{},
		&meals.Meal{},
		&meals.Assignment{},
		&complaints.Complaint{},
		&migrationRecord{},
	)
	if err != nil {
		return fmt.Errorf("database: auto migrate: %w", err)
	}
	return applyMigrations(db, logger)
}

func dialectorFor(url string) (gorm.Dialector, string, error) {
	trimmed := strings.TrimSpace(url)
	switch {
	case trimmed == "":
		return nil, "", errMissingURL
	case strings.HasPrefix(trimmed, "postgres://"), strings.HasPrefix(trimmed, "postgresql://"):
		return postgres.Open(trimmed), driverPostgres, nil
	case strings.HasPrefix(trimmed, "sqlite://"):
		path := strings.TrimPrefix(trimmed, "sqlite://")
		path = strings.TrimPrefix(path, "/")
		if path == "" {
			return nil, "", errMissingURL
		}
		return sqlite.Open(path), driverSQLite, nil
	default:
		return sqlite.Open(trimmed), driverSQLite, nil
	}
}
