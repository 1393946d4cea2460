package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storepulse/storepulse-backend/internal/ratings"
	"github.com/storepulse/storepulse-backend/pkg/db"
	"github.com/storepulse/storepulse-backend/pkg/db/models"
	"github.com/storepulse/storepulse-backend/pkg/enums"
	pkgerrors "github.com/storepulse/storepulse-backend/pkg/errors"
)

const storesEmailConstraint = "stores_email_key"

// Service defines the behavior needed by the stores controller.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, filter ListStoresFilter) ([]StoreListItem, error)
	Create(ctx context.Context, req CreateStoreDTO) (*StoreDTO, error)
	ListOwned(ctx context.Context, ownerID uuid.UUID) ([]OwnedStoreDTO, error)
	GetOwned(ctx context.Context, ownerID, storeID uuid.UUID) (*OwnedStoreDTO, error)
}

type storeRepository interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, dto CreateStoreDTO) (*models.Store, error)
	ListWithAggregates(ctx context.Context, filter ListStoresFilter, userID uuid.UUID) ([]AggregateRow, error)
	ListByOwnerWithAggregates(ctx context.Context, ownerID uuid.UUID) ([]AggregateRow, error)
	FindOwned(ctx context.Context, storeID, ownerID uuid.UUID) (*models.Store, error)
	RatersForStore(ctx context.Context, storeID uuid.UUID) ([]RaterDTO, error)
}

type ownerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateRoleInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, role enums.Role) error
}

type transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	stores storeRepository
	users  ownerRepository
	tx     transactor
}

// ServiceParams bundles the dependencies required to build a stores service.
type ServiceParams struct {
	StoreRepo  storeRepository
	UserRepo   ownerRepository
	Transactor transactor
}

// NewService constructs a stores service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.StoreRepo == nil {
		return nil, fmt.Errorf("store repository is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Transactor == nil {
		return nil, fmt.Errorf("transactor is required")
	}
	return &service{
		stores: params.StoreRepo,
		users:  params.UserRepo,
		tx:     params.Transactor,
	}, nil
}

// List returns every store matching the filter, with the overall average and
// the calling user's own rating attached to each row.
func (s *service) List(ctx context.Context, userID uuid.UUID, filter ListStoresFilter) ([]StoreListItem, error) {
	rows, err := s.stores.ListWithAggregates(ctx, filter, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stores")
	}

	items := make([]StoreListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toListItem())
	}
	return items, nil
}

// Create registers a new store and promotes its owner to store_owner when the
// owner still holds the plain user role. Admins keep their role.
func (s *service) Create(ctx context.Context, req CreateStoreDTO) (*StoreDTO, error) {
	if req.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner is required")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	owner, err := s.users.FindByID(ctx, req.OwnerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "owner not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup owner")
	}

	var created *models.Store
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		store, err := s.stores.CreateInTx(ctx, tx, req)
		if err != nil {
			return err
		}
		created = store

		if owner.Role == enums.RoleUser {
			if err := s.users.UpdateRoleInTx(ctx, tx, owner.ID, enums.RoleStoreOwner); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, storesEmailConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store email already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create store")
	}

	return FromModel(created), nil
}

// ListOwned returns the caller's stores with their live aggregates.
func (s *service) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]OwnedStoreDTO, error) {
	rows, err := s.stores.ListByOwnerWithAggregates(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list owned stores")
	}

	owned := make([]OwnedStoreDTO, 0, len(rows))
	for _, row := range rows {
		item := row.toListItem()
		owned = append(owned, OwnedStoreDTO{
			StoreDTO:      item.StoreDTO,
			AverageRating: item.OverallRating,
			RatingCount:   item.RatingCount,
		})
	}
	return owned, nil
}

// GetOwned returns a single owned store with its aggregate and the users who
// rated it. A store belonging to someone else reads as not found.
func (s *service) GetOwned(ctx context.Context, ownerID, storeID uuid.UUID) (*OwnedStoreDTO, error) {
	store, err := s.stores.FindOwned(ctx, storeID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup store")
	}

	raters, err := s.stores.RatersForStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list raters")
	}

	var sum int64
	for _, rater := range raters {
		sum += int64(rater.Rating)
	}
	count := int64(len(raters))

	return &OwnedStoreDTO{
		StoreDTO:      *FromModel(store),
		AverageRating: ratings.AverageOf(sum, count),
		RatingCount:   count,
		Raters:        raters,
	}, nil
}
