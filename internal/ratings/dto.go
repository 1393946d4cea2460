package ratings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storepulse/storepulse-backend/pkg/db/models"
)

// RatingDTO is the transport shape for a single submitted rating.
type RatingDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	StoreID   uuid.UUID `json:"store_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmitResult pairs the stored rating with the store's recomputed average.
type SubmitResult struct {
	Rating  RatingDTO `json:"rating"`
	Average *string   `json:"average_rating"`
}

// StoreRatingDTO is one rating joined with its rater, for the store feed.
type StoreRatingDTO struct {
	ID        uuid.UUID `json:"id"`
	Rating    int       `json:"rating"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoreRatings is the read payload for a store's rating feed, newest first.
type StoreRatings struct {
	StoreID     uuid.UUID        `json:"store_id"`
	Average     *string          `json:"average_rating"`
	RatingCount int64            `json:"rating_count"`
	Ratings     []StoreRatingDTO `json:"ratings"`
}

// RatingStats carries the raw aggregates a repository computed for a store.
type RatingStats struct {
	Sum   int64
	Count int64
}

func FromModel(m *models.Rating) RatingDTO {
	if m == nil {
		return RatingDTO{}
	}
	return RatingDTO{
		ID:        m.ID,
		UserID:    m.UserID,
		StoreID:   m.StoreID,
		Rating:    m.Rating,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// AverageOf renders sum/count as a 2-decimal string, or nil when there are no
// ratings. Decimal division keeps 14/3 at "4.67" rather than a float artifact.
func AverageOf(sum, count int64) *string {
	if count <= 0 {
		return nil
	}
	avg := decimal.NewFromInt(sum).Div(decimal.NewFromInt(count)).Round(2)
	rendered := avg.StringFixed(2)
	return &rendered
}
