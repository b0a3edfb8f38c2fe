// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/secondhand/marketplace-backend/internal/models"
	"github.com/secondhand/marketplace-backend/internal/repository"
	"github.com/secondhand/marketplace-backend/internal/utils"
)

type UserService struct {
	users repository.UserRepository
}

type UpdateUserProfileRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=100"`
}

// SellerSummary is the public view of a seller shown on verify pages.
type SellerSummary struct {
	Name            string `json:"name"`
	ReputationScore int    `json:"reputation_score"`
	SalesCount      int    `json:"sales_count"`
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *UpdateUserProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.users.Update(ctx, userID, func(u *models.User) error {
		if req.Name != nil {
			u.Name = *req.Name
		}
		if req.Phone != nil {
			u.Phone = *req.Phone
		}
		if req.Location != nil {
			u.Location = *req.Location
		}
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// IncrementListings bumps listings_count. Unknown users are ignored.
func (s *UserService) IncrementListings(ctx context.Context, userID string) error {
	return s.bump(ctx, userID, func(u *models.User) { u.ListingsCount++ })
}

// IncrementSales bumps sales_count. Unknown users are ignored.
func (s *UserService) IncrementSales(ctx context.Context, userID string) error {
	return s.bump(ctx, userID, func(u *models.User) { u.SalesCount++ })
}

func (s *UserService) bump(ctx context.Context, userID string, fn func(*models.User)) error {
	if userID == "" || userID == models.AnonymousSellerID {
		return nil
	}

	_, err := s.users.Update(ctx, userID, func(u *models.User) error {
		fn(u)
		u.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to update user counters: %w", err)
	}
	return nil
}

// SellerSummary returns the public seller card. Anonymous or unknown sellers
// get an "Anonymous" card with zero counters.
func (s *UserService) SellerSummary(ctx context.Context, sellerID string) (*SellerSummary, error) {
	anonymous := &SellerSummary{Name: "Anonymous"}
	if sellerID == models.AnonymousSellerID {
		return anonymous, nil
	}

	user, err := s.users.GetByID(ctx, sellerID)
	if errors.Is(err, repository.ErrNotFound) {
		return anonymous, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load seller: %w", err)
	}

	return &SellerSummary{
		Name:            user.Name,
		ReputationScore: user.ReputationScore,
		SalesCount:      user.SalesCount,
	}, nil
}
