package subscriptions

import "gorm.io/gorm"

// DefaultPlans is the catalog installed into an empty plan table.
func DefaultPlans() []Plan {
	weekly := "7-day sampler with balanced meals."
	monthly := "Best for habit building with premium nutrition."
	return []Plan{
		{Name: "Weekly Wellness", DurationDays: 7, PricePerDay: 18.0, Description: &weekly, IsActive: true},
		{Name: "Monthly Momentum", DurationDays: 28, PricePerDay: 15.0, Description: &monthly, IsActive: true},
	}
}

// SeedDefaultPlans inserts DefaultPlans when no plan exists yet.
func SeedDefaultPlans(db *gorm.DB) error {
	var total int64
	if err := db.Model(&Plan{}).Count(&total).Error; err != nil {
		return err
	}
	if total > 0 {
		return nil
	}
	plans := DefaultPlans()
	return db.Create(&plans).Error
}
