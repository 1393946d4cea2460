package stores

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storepulse/storepulse-backend/pkg/db/models"
)

// Repository exposes store-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a stores repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// CreateInTx inserts a store, optionally inside the provided transaction.
func (r *Repository) CreateInTx(ctx context.Context, tx *gorm.DB, dto CreateStoreDTO) (*models.Store, error) {
	store := dto.ToModel()
	if err := r.conn(tx).WithContext(ctx).Create(store).Error; err != nil {
		return nil, err
	}
	return store, nil
}

// Exists reports whether a store with the given ID is present.
func (r *Repository) Exists(ctx context.Context, storeID uuid.UUID) (bool, error) {
	var store models.Store
	err := r.db.WithContext(ctx).Select("id").First(&store, "id = ?", storeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindByID loads a store by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// ListWithAggregates returns filtered stores with rating sums and the calling
// user's own rating, ordered by name.
func (r *Repository) ListWithAggregates(ctx context.Context, filter ListStoresFilter, userID uuid.UUID) ([]AggregateRow, error) {
	q := r.db.WithContext(ctx).
		Table("stores").
		Select(`stores.id, stores.name, stores.email, stores.address, stores.owner_id,
			stores.created_at, stores.updated_at,
			COALESCE(SUM(ratings.rating), 0) AS rating_sum,
			COUNT(ratings.id) AS rating_count,
			(SELECT r2.rating FROM ratings r2 WHERE r2.store_id = stores.id AND r2.user_id = ?) AS user_rating`, userID).
		Joins("LEFT JOIN ratings ON ratings.store_id = stores.id")

	if filter.Name != "" {
		q = q.Where("stores.name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.Address != "" {
		q = q.Where("stores.address ILIKE ?", "%"+filter.Address+"%")
	}

	var rows []AggregateRow
	if err := q.Group("stores.id").Order("stores.name ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByOwnerWithAggregates returns the owner's stores with rating sums.
func (r *Repository) ListByOwnerWithAggregates(ctx context.Context, ownerID uuid.UUID) ([]AggregateRow, error) {
	var rows []AggregateRow
	err := r.db.WithContext(ctx).
		Table("stores").
		Select(`stores.id, stores.name, stores.email, stores.address, stores.owner_id,
			stores.created_at, stores.updated_at,
			COALESCE(SUM(ratings.rating), 0) AS rating_sum,
			COUNT(ratings.id) AS rating_count`).
		Joins("LEFT JOIN ratings ON ratings.store_id = stores.id").
		Where("stores.owner_id = ?", ownerID).
		Group("stores.id").
		Order("stores.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindOwned loads a store only when it belongs to the given owner.
func (r *Repository) FindOwned(ctx context.Context, storeID, ownerID uuid.UUID) (*models.Store, error) {
	var store models.Store
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", storeID, ownerID).
		First(&store).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// RatersForStore lists the users who rated the store, newest rating first.
func (r *Repository) RatersForStore(ctx context.Context, storeID uuid.UUID) ([]RaterDTO, error) {
	var raters []RaterDTO
	err := r.db.WithContext(ctx).
		Table("ratings").
		Select("users.id AS user_id, users.name, users.email, ratings.rating, ratings.created_at AS rated_at").
		Joins("JOIN users ON users.id = ratings.user_id").
		Where("ratings.store_id = ?", storeID).
		Order("ratings.created_at DESC").
		Scan(&raters).Error
	if err != nil {
		return nil, err
	}
	return raters, nil
}

// Count returns the total number of stores.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Store{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
