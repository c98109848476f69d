package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/subscriptions"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationSeedDefaultPlans       = "2024-09-01_seed_default_plans"
	migrationBackfillDeliveryStatus = "2024-09-15_backfill_delivery_status"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func migrations() []migrationDefinition {
	return []migrationDefinition{
		{name: migrationSeedDefaultPlans, apply: subscriptions.SeedDefaultPlans},
		{name: migrationBackfillDeliveryStatus, apply: backfillDeliveryStatus},
	}
}

// applyMigrations runs each named migration once; the db_migrations table
// remembers what already ran.
func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	for _, migration := range migrations() {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		logger.Info("database migration applied", zap.String("migration", migration.name))
	}
	return nil
}

// backfillDeliveryStatus gives rows written before the column default
// existed an explicit PENDING state.
func backfillDeliveryStatus(db *gorm.DB) error {
	return db.Table("daily_meal_assignments").
		Where("delivery_status IS NULL OR delivery_status = ''").
		Update("delivery_status", "PENDING").Error
}
