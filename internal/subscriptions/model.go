package subscriptions

import "time"

const (
	StatusActive         = "ACTIVE"
	PaymentStatusPending = "PENDING"
	DefaultCurrency      = "USD"
	PaymentMethodOnline  = "ONLINE"
)

// Plan is a purchasable subscription offering.
type Plan struct {
	ID           uint    `gorm:"column:id;primaryKey" json:"id"`
	Name         string  `gorm:"column:name;size:100;not null" json:"name"`
	DurationDays int     `gorm:"column:duration_days;not null" json:"duration_days"`
	PricePerDay  float64 `gorm:"column:price_per_day;not null" json:"price_per_day"`
	Description  *string `gorm:"column:description;type:text" json:"description"`
	IsActive     bool    `gorm:"column:is_active;not null" json:"is_active"`
}

// TableName exposes the plan table.
func (Plan) TableName() string {
	return "subscription_plans"
}

// Subscription ties a user to a plan for a date range.
type Subscription struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	UserID    uint      `gorm:"column:user_id;not null;index"`
	PlanID    uint      `gorm:"column:plan_id;not null;index"`
	Plan      Plan      `gorm:"foreignKey:PlanID;references:ID"`
	StartDate time.Time `gorm:"column:start_date;not null"`
	EndDate   time.Time `gorm:"column:end_date;not null;index"`
	Status    string    `gorm:"column:status;size:50;not null;default:ACTIVE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName exposes the subscription table.
func (Subscription) TableName() string {
	return "user_subscriptions"
}

// Payment records the amount owed for a subscription. It is never reconciled
// with a payment processor.
type Payment struct {
	ID             uint      `gorm:"column:id;primaryKey" json:"id"`
	UserID         uint      `gorm:"column:user_id;not null;index" json:"-"`
	SubscriptionID uint      `gorm:"column:subscription_id;not null;index" json:"subscription_id"`
	Amount         float64   `gorm:"column:amount;not null" json:"amount"`
	Currency       string    `gorm:"column:currency;size:10;not null;default:USD" json:"currency"`
	Status         string    `gorm:"column:status;size:50;not null;default:PENDING" json:"status"`
	PaymentMethod  *string   `gorm:"column:payment_method;size:50" json:"payment_method"`
	TransactionID  *string   `gorm:"column:transaction_id;size:255" json:"transaction_id"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName exposes the payment table.
func (Payment) TableName() string {
	return "payments"
}
