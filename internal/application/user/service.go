package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/himalfrost/store-api/internal/domain"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName       = "name"
	fieldEmail      = "email"
	fieldAddress    = "address"
	fieldCity       = "city"
	fieldPostalCode = "postal_code"
	fieldRole       = "role"
)

type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error)
	// SaveCheckoutDetails copies delivery details from an order onto the
	// user's profile without overwriting an email the user already has.
	SaveCheckoutDetails(ctx context.Context, userID string, c domain.CustomerInfo) error
	List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error)
	UpdateRole(ctx context.Context, actorID, userID, role string) (*domain.User, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	ChangeEmail(ctx context.Context, userID, oldEmail, newEmail string, updates map[string]interface{}) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
}

type service struct {
	repo userStore
}

type ServiceDeps struct {
	UserRepo userStore
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID string, req domain.UpdateProfileRequest) (*domain.User, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		updates[fieldAddress] = *req.Address
	}
	if req.City != nil {
		updates[fieldCity] = *req.City
	}
	if req.PostalCode != nil {
		updates[fieldPostalCode] = *req.PostalCode
	}
	if req.Email != nil {
		u, err := s.repo.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != u.Email {
			if email == "" {
				return nil, fmt.Errorf("email cannot be removed: %w", domain.ErrBadRequest)
			}
			updates[fieldEmail] = email
			if err := s.repo.ChangeEmail(ctx, userID, u.Email, email, updates); err != nil {
				return nil, err
			}
			return s.repo.Get(ctx, userID)
		}
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, userID)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) SaveCheckoutDetails(ctx context.Context, userID string, c domain.CustomerInfo) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{}
	if c.Name != "" && c.Name != u.Name {
		updates[fieldName] = c.Name
	}
	if c.Address != "" && c.Address != u.Address {
		updates[fieldAddress] = c.Address
	}
	if c.City != "" && c.City != u.City {
		updates[fieldCity] = c.City
	}
	if c.PostalCode != "" && c.PostalCode != u.PostalCode {
		updates[fieldPostalCode] = c.PostalCode
	}
	if email := strings.ToLower(c.Email); email != "" && u.Email == "" {
		updates[fieldEmail] = email
		return s.repo.ChangeEmail(ctx, userID, "", email, updates)
	}
	if len(updates) == 0 {
		return nil
	}
	return s.repo.Update(ctx, userID, updates)
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

func (s *service) UpdateRole(ctx context.Context, actorID, userID, role string) (*domain.User, error) {
	if role != domain.RoleAdmin && role != domain.RoleCustomer {
		return nil, fmt.Errorf("invalid role: %w", domain.ErrBadRequest)
	}
	if actorID == userID && role != domain.RoleAdmin {
		return nil, fmt.Errorf("admins cannot demote themselves: %w", domain.ErrBadRequest)
	}
	if err := s.repo.Update(ctx, userID, map[string]interface{}{fieldRole: role}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}
