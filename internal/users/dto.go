package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/storepulse/storepulse-backend/pkg/db/models"
	"github.com/storepulse/storepulse-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Address   string     `json:"address"`
	Role      enums.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UserWithRatingDTO extends UserDTO with the average rating of the user's
// stores. Rating is only populated for store owners.
type UserWithRatingDTO struct {
	UserDTO
	Rating *string `json:"rating,omitempty"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	Address      string
	Role         enums.Role
}

// ListUsersFilter narrows the admin user listing.
type ListUsersFilter struct {
	Name    string
	Email   string
	Address string
	Role    string
}

// ListOwnersFilter narrows the store-owner listing.
type ListOwnersFilter struct {
	Name    string
	Email   string
	Address string
}

// StoreOwnerDTO is an owner row for store assignment, carrying the mean
// rating across the owner's stores and how many they own.
type StoreOwnerDTO struct {
	UserDTO
	AverageRating *string `json:"average_rating"`
	TotalStores   int64   `json:"total_stores"`
}

// DashboardStats summarizes platform volume for the admin dashboard.
type DashboardStats struct {
	TotalUsers   int64 `json:"total_users"`
	TotalStores  int64 `json:"total_stores"`
	TotalRatings int64 `json:"total_ratings"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Address:   u.Address,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.RoleUser
	}

	return &models.User{
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Address:      c.Address,
		Role:         role,
	}
}
