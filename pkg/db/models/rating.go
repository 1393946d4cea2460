package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating is one user's score for one store. The composite unique index keeps
// resubmissions as updates, never duplicate rows.
type Rating struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_ratings_user_store"`
	StoreID   uuid.UUID `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_ratings_user_store"`
	Rating    int       `gorm:"column:rating;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
