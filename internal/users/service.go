package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storepulse/storepulse-backend/internal/ratings"
	"github.com/storepulse/storepulse-backend/pkg/config"
	"github.com/storepulse/storepulse-backend/pkg/db"
	"github.com/storepulse/storepulse-backend/pkg/db/models"
	"github.com/storepulse/storepulse-backend/pkg/enums"
	pkgerrors "github.com/storepulse/storepulse-backend/pkg/errors"
	"github.com/storepulse/storepulse-backend/pkg/security"
)

const usersEmailConstraint = "users_email_key"

// CreateUserInput is the admin-facing shape for provisioning a user.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Address  string
	Role     string
}

// Service defines the behavior needed by the users controller.
type Service interface {
	List(ctx context.Context, filter ListUsersFilter) ([]UserWithRatingDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*UserWithRatingDTO, error)
	Create(ctx context.Context, input CreateUserInput) (*UserDTO, error)
	ListStoreOwners(ctx context.Context, filter ListOwnersFilter) ([]StoreOwnerDTO, error)
	Stats(ctx context.Context) (*DashboardStats, error)
}

type userRepository interface {
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, filter ListUsersFilter) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	RatingStatsForOwner(ctx context.Context, ownerID uuid.UUID) (OwnerRatingStats, error)
	StoreCountForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

type storeCounter interface {
	Count(ctx context.Context) (int64, error)
}

type ratingCounter interface {
	Count(ctx context.Context) (int64, error)
}

type service struct {
	users       userRepository
	stores      storeCounter
	ratings     ratingCounter
	passwordCfg config.PasswordConfig
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	UserRepo       userRepository
	StoreCounter   storeCounter
	RatingCounter  ratingCounter
	PasswordConfig config.PasswordConfig
}

// NewService constructs a users service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.StoreCounter == nil {
		return nil, fmt.Errorf("store counter is required")
	}
	if params.RatingCounter == nil {
		return nil, fmt.Errorf("rating counter is required")
	}
	return &service{
		users:       params.UserRepo,
		stores:      params.StoreCounter,
		ratings:     params.RatingCounter,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// List returns users matching the filter. Store owners carry the average
// rating across their stores.
func (s *service) List(ctx context.Context, filter ListUsersFilter) ([]UserWithRatingDTO, error) {
	if filter.Role != "" {
		if _, err := enums.ParseRole(filter.Role); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role filter")
		}
	}

	rows, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}

	result := make([]UserWithRatingDTO, 0, len(rows))
	for i := range rows {
		dto, err := s.withOwnerRating(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *dto)
	}
	return result, nil
}

// Get loads a single user, with the owner average when applicable.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserWithRatingDTO, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	return s.withOwnerRating(ctx, user)
}

// Create provisions a user with an explicit role. Intended for admins; the
// public registration path always creates plain users.
func (s *service) Create(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	role, err := enums.ParseRole(input.Role)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, CreateUserDTO{
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Address:      strings.TrimSpace(input.Address),
		Role:         role,
	})
	if err != nil {
		if db.IsUniqueViolation(err, usersEmailConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	return FromModel(user), nil
}

// ListStoreOwners returns store_owner users matching the filter, each with the
// mean rating across their stores and how many they own. Backs the admin's
// owner picker when creating stores.
func (s *service) ListStoreOwners(ctx context.Context, filter ListOwnersFilter) ([]StoreOwnerDTO, error) {
	rows, err := s.users.List(ctx, ListUsersFilter{
		Name:    filter.Name,
		Email:   filter.Email,
		Address: filter.Address,
		Role:    string(enums.RoleStoreOwner),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list store owners")
	}

	owners := make([]StoreOwnerDTO, 0, len(rows))
	for i := range rows {
		stats, err := s.users.RatingStatsForOwner(ctx, rows[i].ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate owner ratings")
		}
		storeCount, err := s.users.StoreCountForOwner(ctx, rows[i].ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count owner stores")
		}
		owners = append(owners, StoreOwnerDTO{
			UserDTO:       *FromModel(&rows[i]),
			AverageRating: ratings.AverageOf(stats.Sum, stats.Count),
			TotalStores:   storeCount,
		})
	}
	return owners, nil
}

// Stats aggregates platform totals for the admin dashboard.
func (s *service) Stats(ctx context.Context) (*DashboardStats, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count users")
	}
	stores, err := s.stores.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count stores")
	}
	ratingCount, err := s.ratings.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count ratings")
	}

	return &DashboardStats{
		TotalUsers:   users,
		TotalStores:  stores,
		TotalRatings: ratingCount,
	}, nil
}

func (s *service) withOwnerRating(ctx context.Context, user *models.User) (*UserWithRatingDTO, error) {
	dto := UserWithRatingDTO{UserDTO: *FromModel(user)}
	if user.Role != enums.RoleStoreOwner {
		return &dto, nil
	}

	stats, err := s.users.RatingStatsForOwner(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate owner ratings")
	}
	dto.Rating = ratings.AverageOf(stats.Sum, stats.Count)
	return &dto, nil
}
