package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrInvalidIdentity indicates the external claims did not contain a usable identifier.
	ErrInvalidIdentity = errors.New("users: invalid identity")
	// ErrUserNotFound is returned when no row matches the lookup.
	ErrUserNotFound = errors.New("users: user not found")
	// ErrEmailRequired rejects provisioning an identity without an email.
	ErrEmailRequired = errors.New("users: email required for new identity")
	// ErrEmailTaken means another identity already holds the email.
	ErrEmailTaken = errors.New("users: email already registered")
)

// ServiceConfig describes the dependencies required for user identity resolution.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service is the identity store backed by the users table.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the identity service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:  cfg.Database,
		now: clock,
	}, nil
}

// NewIdentity describes a user seen for the first time at the external authority.
type NewIdentity struct {
	GoogleID string
	Email    string
	Name     string
}

// GetByID loads a user by internal id.
func (s *Service) GetByID(ctx context.Context, id uint) (*User, error) {
	if id == 0 {
		return nil, ErrUserNotFound
	}
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByGoogleID loads a user by the external subject.
func (s *Service) GetByGoogleID(ctx context.Context, googleID string) (*User, error) {
	googleID = normalize(googleID)
	if googleID == "" {
		return nil, ErrInvalidIdentity
	}
	var user User
	err := s.db.WithContext(ctx).Where("google_id = ?", googleID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail loads a user by email address, ignoring case.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = normalize(email)
	if email == "" {
		return nil, ErrUserNotFound
	}
	var user User
	err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureIdentity returns the user for the google id, creating it when the id
// has never been seen. The boolean reports whether a row was created.
// A concurrent first login that wins the unique index is picked up by re-reading once.
func (s *Service) EnsureIdentity(ctx context.Context, identity NewIdentity) (*User, bool, error) {
	googleID := normalize(identity.GoogleID)
	if googleID == "" {
		return nil, false, ErrInvalidIdentity
	}

	existing, err := s.GetByGoogleID(ctx, googleID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	email := normalize(identity.Email)
	if email == "" {
		return nil, false, ErrEmailRequired
	}
	user := User{
		GoogleID: googleID,
		Email:    email,
		Name:     normalize(identity.Name),
	}
	createErr := s.db.WithContext(ctx).Create(&user).Error
	if createErr == nil {
		return &user, true, nil
	}

	raced, err := s.GetByGoogleID(ctx, googleID)
	if err == nil {
		return raced, false, nil
	}
	if _, err := s.GetByEmail(ctx, email); err == nil {
		return nil, false, ErrEmailTaken
	}
	return nil, false, fmt.Errorf("users: create identity: %w", createErr)
}

// ApplyProfileUpdate writes only the fields present in the update and returns the fresh row.
func (s *Service) ApplyProfileUpdate(ctx context.Context, id uint, update ProfileUpdate) (*User, error) {
	columns := update.columns()
	if len(columns) > 0 {
		columns["updated_at"] = s.now().UTC()
		result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(columns)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrUserNotFound
		}
	}
	return s.GetByID(ctx, id)
}

// ApplyQuiz stores the personalization answers on the user row.
func (s *Service) ApplyQuiz(ctx context.Context, id uint, quiz QuizSubmission) (time.Time, error) {
	if _, err := s.ApplyProfileUpdate(ctx, id, quiz.profileUpdate()); err != nil {
		return time.Time{}, err
	}
	return s.now().UTC(), nil
}

// SetAdmin flips the admin flag for a user.
func (s *Service) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	result := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"is_admin": isAdmin, "updated_at": s.now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns every user ordered by id.
func (s *Service) List(ctx context.Context) ([]User, error) {
	var rows []User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of registered users.
func (s *Service) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&User{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
