package complaints

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrComplaintNotFound = errors.New("complaints: complaint not found")

	errMissingDatabase    = errors.New("complaints: database handle is required")
	errMissingAssignments = errors.New("complaints: assignment lookup is required")
)

// AssignmentOwnership confirms an assignment belongs to a user.
type AssignmentOwnership interface {
	OwnsAssignment(ctx context.Context, userID, assignmentID uint) error
}

// ServiceConfig describes the dependencies of the complaint service.
type ServiceConfig struct {
	Database    *gorm.DB
	Assignments AssignmentOwnership
	Clock       func() time.Time
	Logger      *zap.Logger
}

// Service records and resolves complaints.
type Service struct {
	db          *gorm.DB
	assignments AssignmentOwnership
	now         func() time.Time
	logger      *zap.Logger
}

// NewService validates dependencies and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Assignments == nil {
		return nil, errMissingAssignments
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, assignments: cfg.Assignments, now: clock, logger: logger}, nil
}

// Submit files a complaint against one of the user's own assignments. The
// ownership error from the assignment lookup is returned unchanged.
func (s *Service) Submit(ctx context.Context, userID uint, submission Submission) (*Complaint, error) {
	if err := s.assignments.OwnsAssignment(ctx, userID, submission.AssignmentID); err != nil {
		return nil, err
	}
	complaint := Complaint{
		UserID:       userID,
		AssignmentID: submission.AssignmentID,
		Type:         submission.Type,
		Description:  submission.Description,
		Status:       StatusOpen,
	}
	if err := s.db.WithContext(ctx).Create(&complaint).Error; err != nil {
		return nil, err
	}
	s.logger.Info("complaint submitted",
		zap.Uint("user_id", userID),
		zap.Uint("complaint_id", complaint.ID),
		zap.Uint("assignment_id", complaint.AssignmentID),
	)
	return &complaint, nil
}

// ListFor returns the user's complaints in submission order.
func (s *Service) ListFor(ctx context.Context, userID uint) ([]Complaint, error) {
	var rows []Complaint
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll returns every complaint.
func (s *Service) ListAll(ctx context.Context) ([]Complaint, error) {
	var rows []Complaint
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Resolve closes a complaint. Resolving twice refreshes resolved_at.
func (s *Service) Resolve(ctx context.Context, complaintID uint) (*Complaint, error) {
	resolvedAt := s.now().UTC()
	result := s.db.WithContext(ctx).Model(&Complaint{}).
		Where("id = ?", complaintID).
		Updates(map[string]interface{}{
			"status":      StatusResolved,
			"admin_notes": resolvedNote,
			"resolved_at": resolvedAt,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrComplaintNotFound
	}

	var complaint Complaint
	if err := s.db.WithContext(ctx).Where("id = ?", complaintID).Take(&complaint).Error; err != nil {
		return nil, err
	}
	s.logger.Info("complaint resolved", zap.Uint("complaint_id", complaintID))
	return &complaint, nil
}

// CountOpen counts complaints still awaiting resolution.
func (s *Service) CountOpen(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&Complaint{}).Where("status = ?", StatusOpen).Count(&total).Error
	return total, err
}
