package stores

import (
	"time"

	"github.com/google/uuid"

	"github.com/storepulse/storepulse-backend/internal/ratings"
	"github.com/storepulse/storepulse-backend/pkg/db/models"
)

// StoreDTO is the transport shape for a store without aggregates.
type StoreDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoreListItem is a store row enriched with rating aggregates for listings.
// UserRating carries the calling user's own score when present.
type StoreListItem struct {
	StoreDTO
	OverallRating *string `json:"overall_rating"`
	UserRating    *int    `json:"user_rating,omitempty"`
	RatingCount   int64   `json:"rating_count"`
}

// RaterDTO identifies a user who rated one of the owner's stores.
type RaterDTO struct {
	UserID  uuid.UUID `json:"user_id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Rating  int       `json:"rating"`
	RatedAt time.Time `json:"rated_at"`
}

// OwnedStoreDTO is the dashboard view of a single owned store.
type OwnedStoreDTO struct {
	StoreDTO
	AverageRating *string    `json:"average_rating"`
	RatingCount   int64      `json:"rating_count"`
	Raters        []RaterDTO `json:"raters,omitempty"`
}

// CreateStoreDTO holds the data required by the repo to persist a new store.
type CreateStoreDTO struct {
	Name    string
	Email   string
	Address string
	OwnerID uuid.UUID
}

// ListStoresFilter narrows the public store listing.
type ListStoresFilter struct {
	Name    string
	Address string
}

// AggregateRow is the flat scan target for store listings with rating sums.
type AggregateRow struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Address     string
	OwnerID     uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RatingSum   int64
	RatingCount int64
	UserRating  *int
}

func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Address:   m.Address,
		OwnerID:   m.OwnerID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (c CreateStoreDTO) ToModel() *models.Store {
	return &models.Store{
		Name:    c.Name,
		Email:   c.Email,
		Address: c.Address,
		OwnerID: c.OwnerID,
	}
}

func (row AggregateRow) toListItem() StoreListItem {
	return StoreListItem{
		StoreDTO: StoreDTO{
			ID:        row.ID,
			Name:      row.Name,
			Email:     row.Email,
			Address:   row.Address,
			OwnerID:   row.OwnerID,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
		OverallRating: ratings.AverageOf(row.RatingSum, row.RatingCount),
		UserRating:    row.UserRating,
		RatingCount:   row.RatingCount,
	}
}
