package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storepulse/storepulse-backend/pkg/db/models"
	"github.com/storepulse/storepulse-backend/pkg/enums"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users matching the provided filter, ordered by name.
func (r *Repository) List(ctx context.Context, filter ListUsersFilter) ([]models.User, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if filter.Name != "" {
		q = q.Where("name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.Email != "" {
		q = q.Where("email ILIKE ?", "%"+filter.Email+"%")
	}
	if filter.Address != "" {
		q = q.Where("address ILIKE ?", "%"+filter.Address+"%")
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}

	var users []models.User
	if err := q.Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// StoreCountForOwner counts the stores owned by the user.
func (r *Repository) StoreCountForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Table("stores").
		Where("owner_id = ?", ownerID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateRole changes the user's role.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role enums.Role) error {
	return r.UpdateRoleInTx(ctx, nil, id, role)
}

// UpdateRoleInTx changes the user's role, optionally inside a transaction.
func (r *Repository) UpdateRoleInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, role enums.Role) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	return conn.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("role", role).Error
}

// UpdatePasswordHash replaces the stored credential for the user.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("password_hash", hash).Error
}

// Count returns the total number of users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// OwnerRatingStats holds per-owner rating aggregates across owned stores.
type OwnerRatingStats struct {
	OwnerID uuid.UUID
	Sum     int64
	Count   int64
}

// RatingStatsForOwner aggregates ratings across all stores owned by the user.
func (r *Repository) RatingStatsForOwner(ctx context.Context, ownerID uuid.UUID) (OwnerRatingStats, error) {
	stats := OwnerRatingStats{OwnerID: ownerID}
	row := r.db.WithContext(ctx).
		Table("ratings").
		Select("COALESCE(SUM(ratings.rating), 0) AS sum, COUNT(ratings.id) AS count").
		Joins("JOIN stores ON stores.id = ratings.store_id").
		Where("stores.owner_id = ?", ownerID).
		Row()
	if err := row.Scan(&stats.Sum, &stats.Count); err != nil {
		return OwnerRatingStats{}, err
	}
	return stats, nil
}
