package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPlanNotFound = errors.New("subscriptions: plan not found")

	errMissingDatabase = errors.New("subscriptions: database handle is required")
)

// IDProvider generates payment transaction references.
type IDProvider interface {
	NewID() (string, error)
}

// UUIDProvider issues random UUIDv4 references.
type UUIDProvider struct{}

// NewID returns a new UUID string.
func (UUIDProvider) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ServiceConfig describes the dependencies of the subscription service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service manages plans, subscriptions and their payment records.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates dependencies and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = UUIDProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, now: clock, idProvider: idProvider, logger: logger}, nil
}

func (s *Service) today() time.Time {
	year, month, day := s.now().UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ListActivePlans returns the plans open for purchase.
func (s *Service) ListActivePlans(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// Subscribe starts a subscription to an active plan today and records the
// pending payment for the full term in the same transaction.
func (s *Service) Subscribe(ctx context.Context, userID, planID uint) (*Subscription, error) {
	transactionRef, err := s.idProvider.NewID()
	if err != nil {
		return nil, err
	}

	var subscription Subscription
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan Plan
		err := tx.Where("id = ? AND is_active = ?", planID, true).Take(&plan).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlanNotFound
		}
		if err != nil {
			return err
		}

		start := s.today()
		subscription = Subscription{
			UserID:    userID,
			PlanID:    plan.ID,
			StartDate: start,
			EndDate:   start.AddDate(0, 0, plan.DurationDays),
			Status:    StatusActive,
		}
		if err := tx.Omit(clause.Associations).Create(&subscription).Error; err != nil {
			return err
		}

		method := PaymentMethodOnline
		payment := Payment{
			UserID:         userID,
			SubscriptionID: subscription.ID,
			Amount:         plan.PricePerDay * float64(plan.DurationDays),
			Currency:       DefaultCurrency,
			Status:         PaymentStatusPending,
			PaymentMethod:  &method,
			TransactionID:  &transactionRef,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		subscription.Plan = plan
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription created",
		zap.Uint("user_id", userID),
		zap.Uint("plan_id", planID),
		zap.Uint("subscription_id", subscription.ID),
	)
	return &subscription, nil
}

// Current returns the user's active subscription with the latest end date,
// or nil when none is running.
func (s *Service) Current(ctx context.Context, userID uint) (*Subscription, error) {
	var subscription Subscription
	err := s.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ? AND status = ? AND end_date >= ?", userID, StatusActive, s.today()).
		Order("end_date DESC").
		Order("id DESC").
		Take(&subscription).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// PaymentsFor lists the user's payment records, newest first.
func (s *Service) PaymentsFor(ctx context.Context, userID uint) ([]Payment, error) {
	var payments []Payment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// CountActive counts subscriptions in ACTIVE status.
func (s *Service) CountActive(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&Subscription{}).Where("status = ?", StatusActive).Count(&total).Error
	return total, err
}
