package ratings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storepulse/storepulse-backend/pkg/db"
	"github.com/storepulse/storepulse-backend/pkg/db/models"
	pkgerrors "github.com/storepulse/storepulse-backend/pkg/errors"
)

const ratingsUniqueConstraint = "idx_ratings_user_store"

// Service defines the behavior needed by the ratings controller.
type Service interface {
	SubmitOrUpdate(ctx context.Context, userID, storeID uuid.UUID, value int) (*SubmitResult, error)
	ListForStore(ctx context.Context, storeID uuid.UUID) (*StoreRatings, error)
}

type ratingRepository interface {
	FindByUserAndStore(ctx context.Context, userID, storeID uuid.UUID) (*models.Rating, error)
	Create(ctx context.Context, rating *models.Rating) error
	UpdateValue(ctx context.Context, id uuid.UUID, value int) error
	StatsForStore(ctx context.Context, storeID uuid.UUID) (RatingStats, error)
	ListForStore(ctx context.Context, storeID uuid.UUID) ([]StoreRatingDTO, error)
}

type storeFinder interface {
	Exists(ctx context.Context, storeID uuid.UUID) (bool, error)
}

type service struct {
	ratings ratingRepository
	stores  storeFinder
}

// ServiceParams bundles the dependencies required to build a ratings service.
type ServiceParams struct {
	RatingRepo ratingRepository
	StoreRepo  storeFinder
}

// NewService constructs a ratings service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.RatingRepo == nil {
		return nil, fmt.Errorf("rating repository is required")
	}
	if params.StoreRepo == nil {
		return nil, fmt.Errorf("store repository is required")
	}
	return &service{
		ratings: params.RatingRepo,
		stores:  params.StoreRepo,
	}, nil
}

// SubmitOrUpdate records the caller's score for a store. A second submission
// by the same user overwrites the first; the store's average is recomputed
// from the full rating set and returned alongside the stored row.
func (s *service) SubmitOrUpdate(ctx context.Context, userID, storeID uuid.UUID, value int) (*SubmitResult, error) {
	if value < 1 || value > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	exists, err := s.stores.Exists(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup store")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}

	rating, err := s.upsert(ctx, userID, storeID, value)
	if err != nil {
		return nil, err
	}

	stats, err := s.ratings.StatsForStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recompute average")
	}

	return &SubmitResult{
		Rating:  FromModel(rating),
		Average: AverageOf(stats.Sum, stats.Count),
	}, nil
}

func (s *service) upsert(ctx context.Context, userID, storeID uuid.UUID, value int) (*models.Rating, error) {
	existing, err := s.ratings.FindByUserAndStore(ctx, userID, storeID)
	switch {
	case err == nil:
		if err := s.ratings.UpdateValue(ctx, existing.ID, value); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update rating")
		}
		existing.Rating = value
		return existing, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		rating := &models.Rating{UserID: userID, StoreID: storeID, Rating: value}
		if createErr := s.ratings.Create(ctx, rating); createErr != nil {
			// a concurrent first submission won the insert; fall back to update
			if db.IsUniqueViolation(createErr, ratingsUniqueConstraint) {
				return s.retryAsUpdate(ctx, userID, storeID, value)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, createErr, "create rating")
		}
		return rating, nil

	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup rating")
	}
}

func (s *service) retryAsUpdate(ctx context.Context, userID, storeID uuid.UUID, value int) (*models.Rating, error) {
	existing, err := s.ratings.FindByUserAndStore(ctx, userID, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "concurrent rating submission")
	}
	if err := s.ratings.UpdateValue(ctx, existing.ID, value); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update rating")
	}
	existing.Rating = value
	return existing, nil
}

// ListForStore returns the store's rating feed with rater identity plus the
// live aggregate, newest rating first.
func (s *service) ListForStore(ctx context.Context, storeID uuid.UUID) (*StoreRatings, error) {
	exists, err := s.stores.Exists(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup store")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}

	rows, err := s.ratings.ListForStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list ratings")
	}

	stats, err := s.ratings.StatsForStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate ratings")
	}

	return &StoreRatings{
		StoreID:     storeID,
		Average:     AverageOf(stats.Sum, stats.Count),
		RatingCount: stats.Count,
		Ratings:     rows,
	}, nil
}
