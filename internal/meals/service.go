package meals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	dateLayout          = "2006-01-02"
	DefaultUpcomingDays = 7
	MaxUpcomingDays     = 30
)

var (
	ErrMealNotFound       = errors.New("meals: meal not found")
	ErrAssignmentNotFound = errors.New("meals: assignment not found")
	ErrInvalidDayRange    = fmt.Errorf("meals: days must be between 1 and %d", MaxUpcomingDays)

	errMissingDatabase = errors.New("meals: database handle is required")
)

// ServiceConfig describes the dependencies of the meal service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service owns the meal catalog and daily assignments.
type Service struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger
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
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, now: clock, logger: logger}, nil
}

// StartOfDay truncates a timestamp to UTC midnight.
func StartOfDay(value time.Time) time.Time {
	year, month, day := value.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD calendar day.
func ParseDay(value string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, value, time.UTC)
}

func (s *Service) today() time.Time {
	return StartOfDay(s.now())
}

// TodayFor lists the user's assignments for the current day.
func (s *Service) TodayFor(ctx context.Context, userID uint) ([]Assignment, error) {
	start := s.today()
	return s.assignmentsBetween(ctx, userID, start, start.AddDate(0, 0, 1))
}

// UpcomingFor lists the user's assignments from today through today+days inclusive.
func (s *Service) UpcomingFor(ctx context.Context, userID uint, days int) ([]Assignment, error) {
	if days < 1 || days > MaxUpcomingDays {
		return nil, ErrInvalidDayRange
	}
	start := s.today()
	return s.assignmentsBetween(ctx, userID, start, start.AddDate(0, 0, days+1))
}

func (s *Service) assignmentsBetween(ctx context.Context, userID uint, from, until time.Time) ([]Assignment, error) {
	var rows []Assignment
	err := s.db.WithContext(ctx).
		Preload("Meal").
		Where("user_id = ? AND assignment_date >= ? AND assignment_date < ?", userID, from, until).
		Order("assignment_date ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ConfirmDelivery marks one of the user's assignments as delivered.
func (s *Service) ConfirmDelivery(ctx context.Context, userID, assignmentID uint) error {
	deliveredAt := s.now().UTC()
	result := s.db.WithContext(ctx).Model(&Assignment{}).
		Where("id = ? AND user_id = ?", assignmentID, userID).
		Updates(map[string]interface{}{
			"delivery_status": DeliveryStatusDelivered,
			"delivered_at":    deliveredAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

// OwnedAssignment loads an assignment only when it belongs to the user.
func (s *Service) OwnedAssignment(ctx context.Context, userID, assignmentID uint) (*Assignment, error) {
	var assignment Assignment
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", assignmentID, userID).
		Take(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssignmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// OwnsAssignment reports ErrAssignmentNotFound unless the assignment belongs
// to the user.
func (s *Service) OwnsAssignment(ctx context.Context, userID, assignmentID uint) error {
	_, err := s.OwnedAssignment(ctx, userID, assignmentID)
	return err
}

// ListMeals returns the full catalog.
func (s *Service) ListMeals(ctx context.Context) ([]Meal, error) {
	var rows []Meal
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateMeal adds a catalog entry.
func (s *Service) CreateMeal(ctx context.Context, payload NewMeal) (*Meal, error) {
	meal := payload.row()
	if err := s.db.WithContext(ctx).Create(&meal).Error; err != nil {
		return nil, err
	}
	s.logger.Info("meal created", zap.Uint("meal_id", meal.ID))
	return &meal, nil
}

// UpdateMeal applies a partial change to a catalog entry.
func (s *Service) UpdateMeal(ctx context.Context, mealID uint, update MealUpdate) (*Meal, error) {
	meal, err := s.getMeal(ctx, mealID)
	if err != nil {
		return nil, err
	}
	if columns := update.columns(); len(columns) > 0 {
		if err := s.db.WithContext(ctx).Model(meal).Updates(columns).Error; err != nil {
			return nil, err
		}
	}
	return s.getMeal(ctx, mealID)
}

func (s *Service) getMeal(ctx context.Context, mealID uint) (*Meal, error) {
	var meal Meal
	err := s.db.WithContext(ctx).Where("id = ?", mealID).Take(&meal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMealNotFound
	}
	if err != nil {
		return nil, err
	}
	return &meal, nil
}

// AssignMeal schedules a catalog meal for a user on a calendar day.
func (s *Service) AssignMeal(ctx context.Context, userID, mealID uint, day time.Time) (*Assignment, error) {
	meal, err := s.getMeal(ctx, mealID)
	if err != nil {
		return nil, err
	}
	assignment := Assignment{
		UserID:         userID,
		MealID:         meal.ID,
		AssignmentDate: StartOfDay(day),
		DeliveryStatus: DeliveryStatusPending,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&assignment).Error; err != nil {
		return nil, err
	}
	assignment.Meal = *meal
	return &assignment, nil
}
