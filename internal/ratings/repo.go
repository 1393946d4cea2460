package ratings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storepulse/storepulse-backend/pkg/db/models"
)

// Repository exposes rating persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a ratings repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByUserAndStore loads the caller's existing rating for a store, if any.
func (r *Repository) FindByUserAndStore(ctx context.Context, userID, storeID uuid.UUID) (*models.Rating, error) {
	var rating models.Rating
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND store_id = ?", userID, storeID).
		First(&rating).Error
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// Create inserts a new rating row.
func (r *Repository) Create(ctx context.Context, rating *models.Rating) error {
	return r.db.WithContext(ctx).Create(rating).Error
}

// UpdateValue overwrites the score on an existing rating.
func (r *Repository) UpdateValue(ctx context.Context, id uuid.UUID, value int) error {
	return r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Where("id = ?", id).
		Update("rating", value).Error
}

// StatsForStore aggregates the sum and count of ratings for a store.
func (r *Repository) StatsForStore(ctx context.Context, storeID uuid.UUID) (RatingStats, error) {
	var stats RatingStats
	row := r.db.WithContext(ctx).
		Model(&models.Rating{}).
		Select("COALESCE(SUM(rating), 0) AS sum, COUNT(id) AS count").
		Where("store_id = ?", storeID).
		Row()
	if err := row.Scan(&stats.Sum, &stats.Count); err != nil {
		return RatingStats{}, err
	}
	return stats, nil
}

// ListForStore returns a store's ratings joined with rater identity, newest first.
func (r *Repository) ListForStore(ctx context.Context, storeID uuid.UUID) ([]StoreRatingDTO, error) {
	var rows []StoreRatingDTO
	err := r.db.WithContext(ctx).
		Table("ratings").
		Select("ratings.id, ratings.rating, users.name AS user_name, users.email AS user_email, ratings.created_at, ratings.updated_at").
		Joins("JOIN users ON users.id = ratings.user_id").
		Where("ratings.store_id = ?", storeID).
		Order("ratings.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the total number of ratings on the platform.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Rating{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
