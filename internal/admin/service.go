package admin

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/subscriptions"
	"github.com/MarcoPoloResearchLab/vitalplate/backend/internal/users"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const dayLayout = "2006-01-02"

var errMissingDependency = errors.New("admin: users, subscriptions and complaints are required")

// UserDirectory lists registered users.
type UserDirectory interface {
	List(ctx context.Context) ([]users.User, error)
	Count(ctx context.Context) (int64, error)
}

// SubscriptionLedger exposes subscription state per user.
type SubscriptionLedger interface {
	Current(ctx context.Context, userID uint) (*subscriptions.Subscription, error)
	CountActive(ctx context.Context) (int64, error)
}

// ComplaintLedger counts unresolved complaints.
type ComplaintLedger interface {
	CountOpen(ctx context.Context) (int64, error)
}

// Dashboard summarizes the business for the admin console.
type Dashboard struct {
	TotalUsers          int64 `json:"total_users"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	PendingComplaints   int64 `json:"pending_complaints"`
}

// Customer is a user row enriched with its running subscription.
type Customer struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	IsAdmin         bool    `json:"is_admin"`
	CurrentPlan     *string `json:"current_plan"`
	SubscriptionEnd *string `json:"subscription_end"`
}

// ServiceConfig describes the dependencies of the admin service.
type ServiceConfig struct {
	Users         UserDirectory
	Subscriptions SubscriptionLedger
	Complaints    ComplaintLedger
	Logger        *zap.Logger
}

// Service aggregates read models for administrators.
type Service struct {
	users         UserDirectory
	subscriptions SubscriptionLedger
	complaints    ComplaintLedger
	logger        *zap.Logger
}

// NewService validates dependencies and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Users == nil || cfg.Subscriptions == nil || cfg.Complaints == nil {
		return nil, errMissingDependency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:         cfg.Users,
		subscriptions: cfg.Subscriptions,
		complaints:    cfg.Complaints,
		logger:        logger,
	}, nil
}

// Dashboard gathers the three headline counts concurrently.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	g, ctx := errgroup.WithContext(ctx)
	var dashboard Dashboard

	g.Go(func() error {
		total, err := s.users.Count(ctx)
		dashboard.TotalUsers = total
		return err
	})
	g.Go(func() error {
		total, err := s.subscriptions.CountActive(ctx)
		dashboard.ActiveSubscriptions = total
		return err
	})
	g.Go(func() error {
		total, err := s.complaints.CountOpen(ctx)
		dashboard.PendingComplaints = total
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return dashboard, nil
}

// Customers lists every user with the plan they are currently on, if any.
func (s *Service) Customers(ctx context.Context) ([]Customer, error) {
	rows, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	customers := make([]Customer, 0, len(rows))
	for _, user := range rows {
		customer := Customer{
			ID:      user.ID,
			Name:    user.Name,
			Email:   user.Email,
			IsAdmin: user.IsAdmin,
		}
		current, err := s.subscriptions.Current(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if current != nil {
			plan := current.Plan.Name
			end := current.EndDate.UTC().Format(dayLayout)
			customer.CurrentPlan = &plan
			customer.SubscriptionEnd = &end
		}
		customers = append(customers, customer)
	}
	return customers, nil
}
